package world

import "fmt"

// Pool is a fixed-capacity arena of segment slots with a linear-scan free
// list. Exhaustion grows the pool by one slot; nothing is ever freed, so
// recycling allocates nothing. Single writer of the active flags.
type Pool struct {
	slots []*Segment
	width float32
	grown int
}

func NewPool(capacity int, width float32) (*Pool, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("pool: capacity must be >= 1, got %d", capacity)
	}
	p := &Pool{width: width}
	p.slots = make([]*Segment, 0, capacity)
	for i := 0; i < capacity; i++ {
		p.slots = append(p.slots, &Segment{id: SegmentID(i), Width: width})
	}
	return p, nil
}

// Acquire returns a free slot, growing the pool when none is left. The
// second result reports whether a grow happened (diagnostic only, never an
// error). Linear scan: pool sizes are tens of entries.
func (p *Pool) Acquire() (*Segment, bool) {
	for _, s := range p.slots {
		if !s.Active {
			s.Active = true
			return s, false
		}
	}
	s := &Segment{id: SegmentID(len(p.slots)), Width: p.width, Active: true}
	p.slots = append(p.slots, s)
	p.grown++
	return s, true
}

// Release returns a segment to the free list. Content must already have been
// released by the caller; this only flips state and clears references.
func (p *Pool) Release(s *Segment) {
	if !s.Active {
		return
	}
	s.Active = false
	s.clear()
}

func (p *Pool) Size() int  { return len(p.slots) }
func (p *Pool) Grown() int { return p.grown }

func (p *Pool) ActiveCount() int {
	n := 0
	for _, s := range p.slots {
		if s.Active {
			n++
		}
	}
	return n
}
