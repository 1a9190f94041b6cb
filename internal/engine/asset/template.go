package asset

// LoadState of a template cache entry.
type LoadState uint8

const (
	StatePending LoadState = iota
	StateReady
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateReady:
		return "READY"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Template is a canonical, shared geometry definition keyed by name. Created
// on first request, never destroyed before process teardown. All writes
// happen on the engine loop (Resolve/Poll); fetch goroutines only report
// results over the registry's completion channel.
type Template struct {
	name   string
	state  LoadState
	doc    *Document
	bounds Bounds

	// gen increments every time the template's geometry changes (pending →
	// ready). Late async completions against instances that re-bound or died
	// compare generations and no-op.
	gen uint64
}

func (t *Template) Name() string       { return t.name }
func (t *Template) State() LoadState   { return t.state }
func (t *Template) Doc() *Document     { return t.doc }
func (t *Template) Bounds() Bounds     { return t.bounds }
func (t *Template) Generation() uint64 { return t.gen }

// SizingTarget returns the desired normalized size, or 0 when unknown.
func (t *Template) SizingTarget() float32 {
	if t.doc == nil {
		return 0
	}
	return t.doc.Sizing.Target
}

func (t *Template) SizingAxis() string {
	if t.doc == nil || t.doc.Sizing.Axis == "" {
		return AxisLargest
	}
	return t.doc.Sizing.Axis
}

// PlaceholderName is the designated stand-in template for pending and failed
// resolutions.
const PlaceholderName = "PLACEHOLDER"

// newPlaceholder builds the procedural box used whenever real geometry is
// not (or never will be) available.
func newPlaceholder() *Template {
	doc := &Document{
		Name:   PlaceholderName,
		Mesh:   "unit_box",
		Sizing: Sizing{Target: 1.0, Axis: AxisLargest},
		Root: Node{
			Name: "box",
			Dims: [3]float32{1, 1, 1},
		},
	}
	return &Template{
		name:   PlaceholderName,
		state:  StateReady,
		doc:    doc,
		bounds: ComputeBounds(doc),
		gen:    1,
	}
}
