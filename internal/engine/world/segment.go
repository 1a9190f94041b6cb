package world

import (
	"horizon.run/internal/engine/instance"
	"horizon.run/internal/engine/spawn"
)

// Biome is the visual/gameplay style stamped on a segment at spawn.
type Biome uint8

const (
	BiomeNormal Biome = iota
	BiomeHazard
)

func (b Biome) String() string {
	if b == BiomeHazard {
		return "HAZARD"
	}
	return "NORMAL"
}

// SegmentID is the pool slot identity. Stable for the life of the process.
type SegmentID int32

// EntityRef is one obstacle/collectible/scenery piece placed on a segment.
type EntityRef struct {
	Kind     spawn.Kind
	Instance instance.ID
	Lane     int
	Offset   float32
}

// Segment is a recyclable world tile. Position is the leading edge along the
// travel axis; the tile covers (Position-Length, Position]. The object is
// created once per pool slot and only ever toggled between pooled-inactive
// and active.
type Segment struct {
	id SegmentID

	Index    int64 // spawn sequence number, 0-based
	Position float32
	Length   float32
	Width    float32
	Active   bool
	Biome    Biome

	owned    []instance.ID
	entities []EntityRef
}

func (s *Segment) ID() SegmentID { return s.id }

// Owner is the instance-manager scope for everything this segment places.
func (s *Segment) Owner() instance.Owner { return instance.Owner(s.id) }

// Entities exposes the placed content (read-only use).
func (s *Segment) Entities() []EntityRef { return s.entities }

// OwnedInstances exposes the instance ids this segment holds.
func (s *Segment) OwnedInstances() []instance.ID { return s.owned }

// Contains reports whether z falls on this tile.
func (s *Segment) Contains(z float32) bool {
	return s.Active && z > s.Position-s.Length && z <= s.Position
}

func (s *Segment) addEntity(ref EntityRef) {
	s.owned = append(s.owned, ref.Instance)
	s.entities = append(s.entities, ref)
}

// clear drops content references but keeps the backing arrays for reuse.
func (s *Segment) clear() {
	s.owned = s.owned[:0]
	s.entities = s.entities[:0]
	s.Biome = BiomeNormal
}
