package world

// Event is one diagnostic record. Free-form keys; every event carries "t"
// (tick) and "type".
type Event map[string]any

// EventSink receives diagnostic events. Implementations live in
// internal/persistence; a nil sink disables diagnostics entirely.
type EventSink interface {
	WriteEvent(Event) error
}

// Stats are cumulative run counters, exposed for the host HUD.
type Stats struct {
	Ticks              uint64
	Distance           float32 // furthest viewer position seen
	SegmentsSpawned    int64
	SegmentsRetired    int64
	PoolGrows          int64
	ObstaclesPlaced    int64
	CollectiblesPlaced int64
	SceneryPlaced      int64
	TemplateFailures   int64
	BiomeTransitions   int64
}
