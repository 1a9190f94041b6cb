package world

// Streamer drives the pool: it owns the one scalar of streaming state,
// lastSpawned, and turns viewer movement into spawn/retire work. Both passes
// are O(active segments); the active window is bounded by
// tilesAhead+tilesBehind+1, which is what makes the world effectively
// infinite in constant memory.
type Streamer struct {
	pool *Pool

	tilesAhead    int
	tilesBehind   int
	segmentLength float32
	safeSegments  int

	lastSpawned float32
	nextIndex   int64
	active      []*Segment // ordered by position
}

func NewStreamer(pool *Pool, tilesAhead, tilesBehind int, segmentLength float32, safeSegments int) *Streamer {
	return &Streamer{
		pool:          pool,
		tilesAhead:    tilesAhead,
		tilesBehind:   tilesBehind,
		segmentLength: segmentLength,
		safeSegments:  safeSegments,
	}
}

// SpawnPass extends the world until it covers tilesAhead segments past the
// viewer. activate is called for every new segment; populate is false for
// the first safeSegments tiles so nothing can be placed before the player
// has had time to react. Returns (segments spawned, pool grows).
func (st *Streamer) SpawnPass(viewerZ float32, activate func(seg *Segment, populate bool)) (int, int) {
	spawned, grows := 0, 0
	horizon := viewerZ + float32(st.tilesAhead)*st.segmentLength
	for st.lastSpawned < horizon {
		seg, grew := st.pool.Acquire()
		if grew {
			grows++
		}
		seg.Index = st.nextIndex
		seg.Position = st.lastSpawned + st.segmentLength
		seg.Length = st.segmentLength
		activate(seg, seg.Index >= int64(st.safeSegments))
		st.active = append(st.active, seg)
		st.lastSpawned = seg.Position
		st.nextIndex++
		spawned++
	}
	return spawned, grows
}

// RetirePass releases every active segment that fell behind the viewer,
// however many that is: a large viewer jump is caught up in a single call.
func (st *Streamer) RetirePass(viewerZ float32, retire func(*Segment)) int {
	cutoff := viewerZ - float32(st.tilesBehind)*st.segmentLength
	kept := st.active[:0]
	retired := 0
	for _, seg := range st.active {
		if seg.Position < cutoff {
			retire(seg)
			retired++
			continue
		}
		kept = append(kept, seg)
	}
	// Zero the tail so retired segments are not pinned by the slice.
	for i := len(kept); i < len(st.active); i++ {
		st.active[i] = nil
	}
	st.active = kept
	return retired
}

// Active returns the live window, ordered by position.
func (st *Streamer) Active() []*Segment { return st.active }

// SegmentAt finds the active segment covering z, or nil.
func (st *Streamer) SegmentAt(z float32) *Segment {
	for _, seg := range st.active {
		if seg.Contains(z) {
			return seg
		}
	}
	return nil
}

// LastSpawned exposes the streaming frontier.
func (st *Streamer) LastSpawned() float32 { return st.lastSpawned }
