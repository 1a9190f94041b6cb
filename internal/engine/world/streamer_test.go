package world

import "testing"

func newTestStreamer(t *testing.T) (*Streamer, *Pool) {
	t.Helper()
	p, err := NewPool(8, 9)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	return NewStreamer(p, 5, 2, 20, 2), p
}

func TestSpawnPass_CoversHorizon(t *testing.T) {
	st, _ := newTestStreamer(t)

	var populated []bool
	spawned, grows := st.SpawnPass(0, func(seg *Segment, populate bool) {
		populated = append(populated, populate)
	})
	if spawned != 5 || grows != 0 {
		t.Fatalf("spawned = %d grows = %d", spawned, grows)
	}
	if st.LastSpawned() != 100 {
		t.Fatalf("frontier = %v, want 100", st.LastSpawned())
	}

	active := st.Active()
	for i, seg := range active {
		if seg.Index != int64(i) {
			t.Fatalf("segment %d has index %d", i, seg.Index)
		}
		if want := float32((i + 1) * 20); seg.Position != want {
			t.Fatalf("segment %d at %v, want %v", i, seg.Position, want)
		}
	}

	// The first safeSegments tiles stay empty of content.
	if populated[0] || populated[1] {
		t.Fatalf("safe segments flagged for population: %v", populated)
	}
	if !populated[2] || !populated[3] || !populated[4] {
		t.Fatalf("later segments not flagged: %v", populated)
	}

	// No viewer movement, nothing more to do.
	spawned, _ = st.SpawnPass(0, func(*Segment, bool) {})
	if spawned != 0 {
		t.Fatalf("idle spawn pass spawned %d", spawned)
	}
}

func TestRetirePass_DropsBehindViewer(t *testing.T) {
	st, pool := newTestStreamer(t)
	st.SpawnPass(0, func(*Segment, bool) {})

	// At z=90 the cutoff is 50: segments at 20 and 40 retire.
	var retired []int64
	n := st.RetirePass(90, func(seg *Segment) {
		retired = append(retired, seg.Index)
		pool.Release(seg)
	})
	if n != 2 || len(retired) != 2 || retired[0] != 0 || retired[1] != 1 {
		t.Fatalf("retired %v", retired)
	}
	if len(st.Active()) != 3 {
		t.Fatalf("active = %d", len(st.Active()))
	}
}

func TestWindow_BoundedUnderSteadyAdvance(t *testing.T) {
	st, pool := newTestStreamer(t)
	const maxWindow = 5 + 2 + 1

	for z := float32(0); z <= 2000; z += 7 {
		st.SpawnPass(z, func(*Segment, bool) {})
		st.RetirePass(z, pool.Release)
		if n := len(st.Active()); n > maxWindow {
			t.Fatalf("window grew to %d at z=%v", n, z)
		}
		// The window always covers the viewer's surroundings.
		if st.LastSpawned() < z+5*20 {
			t.Fatalf("frontier %v behind horizon at z=%v", st.LastSpawned(), z)
		}
	}
	// Steady advance recycles. Spawning before retiring can momentarily hold
	// one extra segment, so at most a single grow is tolerated.
	if pool.Grown() > 1 {
		t.Fatalf("pool grew %d times under steady advance", pool.Grown())
	}
}

func TestRetirePass_CatchesUpLargeJump(t *testing.T) {
	st, pool := newTestStreamer(t)
	st.SpawnPass(0, func(*Segment, bool) {})

	// A teleport far ahead: one spawn pass extends, one retire pass drops
	// everything that fell behind, in the same frame.
	st.SpawnPass(500, func(*Segment, bool) {})
	n := st.RetirePass(500, pool.Release)
	if n == 0 {
		t.Fatalf("nothing retired after the jump")
	}
	for _, seg := range st.Active() {
		if seg.Position < 500-2*20 {
			t.Fatalf("segment at %v left behind the window", seg.Position)
		}
	}
	if len(st.Active()) != 8 {
		t.Fatalf("active = %d, want the full window", len(st.Active()))
	}
}

func TestSegmentAt(t *testing.T) {
	st, _ := newTestStreamer(t)
	st.SpawnPass(0, func(*Segment, bool) {})

	if seg := st.SegmentAt(30); seg == nil || seg.Index != 1 {
		t.Fatalf("z=30 resolved to %+v", seg)
	}
	// Tiles cover (Position-Length, Position]: the boundary belongs to the
	// earlier tile.
	if seg := st.SegmentAt(20); seg == nil || seg.Index != 0 {
		t.Fatalf("z=20 resolved to %+v", seg)
	}
	if seg := st.SegmentAt(0); seg != nil {
		t.Fatalf("z=0 resolved to index %d", seg.Index)
	}
	if seg := st.SegmentAt(500); seg != nil {
		t.Fatalf("z=500 resolved to index %d", seg.Index)
	}
}
