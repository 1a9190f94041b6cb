package spawn

import (
	"math"
	"sort"
	"testing"
)

func testConfig() Config {
	return Config{
		Seed:                   1337,
		Lanes:                  3,
		BaseObstacleChance:     0.35,
		MaxObstaclesPerSegment: 3,
		MinSpacing:             6,
		CollectibleChance:      0.4,
		SceneryPerSegment:      4,
	}
}

func TestPlan_Deterministic(t *testing.T) {
	a, err := NewScheduler(testConfig(), NewDifficulty(0, 3))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	b, _ := NewScheduler(testConfig(), NewDifficulty(0, 3))

	for idx := int64(0); idx < 50; idx++ {
		pa := a.Plan(idx, 20, false)
		pb := b.Plan(idx, 20, false)
		if len(pa) != len(pb) {
			t.Fatalf("segment %d: %d vs %d placements", idx, len(pa), len(pb))
		}
		for i := range pa {
			if pa[i] != pb[i] {
				t.Fatalf("segment %d placement %d differs: %+v vs %+v", idx, i, pa[i], pb[i])
			}
		}
	}
}

func TestPlan_DifferentSeedsDiffer(t *testing.T) {
	a, _ := NewScheduler(testConfig(), NewDifficulty(0, 3))
	cfg := testConfig()
	cfg.Seed = 42
	b, _ := NewScheduler(cfg, NewDifficulty(0, 3))

	same := 0
	for idx := int64(0); idx < 50; idx++ {
		pa := a.Plan(idx, 20, false)
		pb := b.Plan(idx, 20, false)
		if len(pa) == len(pb) {
			eq := true
			for i := range pa {
				if pa[i] != pb[i] {
					eq = false
					break
				}
			}
			if eq {
				same++
			}
		}
	}
	if same == 50 {
		t.Fatalf("all 50 segments identical across different seeds")
	}
}

func TestPlan_BoundsAndSpacing(t *testing.T) {
	cfg := testConfig()
	cfg.BaseObstacleChance = 1 // force the obstacle pass every segment
	diff := NewDifficulty(0, 3)
	diff.Advance(1e9) // max density
	s, _ := NewScheduler(cfg, diff)

	const length = float32(20)
	for idx := int64(0); idx < 200; idx++ {
		plan := s.Plan(idx, length, false)
		var obstacles []float32
		for _, p := range plan {
			if p.Offset < 0 || p.Offset >= length {
				t.Fatalf("segment %d: offset %v outside segment", idx, p.Offset)
			}
			switch p.Kind {
			case KindObstacle, KindHazard, KindCollectible:
				if p.Lane < 0 || p.Lane >= cfg.Lanes {
					t.Fatalf("segment %d: %v lane %d out of range", idx, p.Kind, p.Lane)
				}
			case KindScenery:
				if p.Lane != -1 && p.Lane != cfg.Lanes {
					t.Fatalf("segment %d: scenery lane %d not on a strip", idx, p.Lane)
				}
			}
			if p.Kind == KindObstacle {
				obstacles = append(obstacles, p.Offset)
			}
		}
		if len(obstacles) == 0 {
			t.Fatalf("segment %d: forced obstacle pass produced none", idx)
		}
		if len(obstacles) > cfg.MaxObstaclesPerSegment {
			t.Fatalf("segment %d: %d obstacles over cap", idx, len(obstacles))
		}
		// The slot pitch absorbs the jitter, so MinSpacing is a hard floor
		// on the gap between any obstacle pair.
		sort.Slice(obstacles, func(i, j int) bool { return obstacles[i] < obstacles[j] })
		for i := 1; i < len(obstacles); i++ {
			gap := obstacles[i] - obstacles[i-1]
			if gap < cfg.MinSpacing-1e-4 {
				t.Fatalf("segment %d: obstacle gap %v below min spacing %v", idx, gap, cfg.MinSpacing)
			}
		}
	}
}

func TestPlan_HazardBiomeSwitchesKind(t *testing.T) {
	cfg := testConfig()
	cfg.BaseObstacleChance = 1
	s, _ := NewScheduler(cfg, NewDifficulty(0, 3))

	plan := s.Plan(3, 20, true)
	sawHazard := false
	for _, p := range plan {
		if p.Kind == KindObstacle {
			t.Fatalf("plain obstacle planned in a hazard segment")
		}
		if p.Kind == KindHazard {
			sawHazard = true
		}
	}
	if !sawHazard {
		t.Fatalf("no hazard placements in a forced hazard segment")
	}
}

func TestPlan_ZeroChancesStillScenery(t *testing.T) {
	cfg := testConfig()
	cfg.BaseObstacleChance = 0
	cfg.CollectibleChance = 0
	s, _ := NewScheduler(cfg, NewDifficulty(0, 3))

	plan := s.Plan(5, 20, false)
	if len(plan) != cfg.SceneryPerSegment {
		t.Fatalf("placements = %d, want scenery only (%d)", len(plan), cfg.SceneryPerSegment)
	}
	for _, p := range plan {
		if p.Kind != KindScenery {
			t.Fatalf("unexpected %v with all chances zeroed", p.Kind)
		}
	}
}

func TestPlan_SortedByOffset(t *testing.T) {
	s, _ := NewScheduler(testConfig(), NewDifficulty(0, 3))
	for idx := int64(0); idx < 30; idx++ {
		plan := s.Plan(idx, 20, false)
		for i := 1; i < len(plan); i++ {
			if plan[i].Offset < plan[i-1].Offset {
				t.Fatalf("segment %d not sorted at %d", idx, i)
			}
		}
	}
}

func TestSegmentSeed_Spreads(t *testing.T) {
	seen := map[int64]bool{}
	for idx := int64(0); idx < 1000; idx++ {
		v := segmentSeed(1337, idx)
		if seen[v] {
			t.Fatalf("seed collision at index %d", idx)
		}
		seen[v] = true
	}
	// Neighbouring indices must not produce nearby seeds.
	d := segmentSeed(1337, 1) - segmentSeed(1337, 2)
	if math.Abs(float64(d)) < 1<<20 {
		t.Fatalf("adjacent segment seeds too close: delta %d", d)
	}
}

func TestNewScheduler_Validation(t *testing.T) {
	bad := []Config{
		{Lanes: 0, MaxObstaclesPerSegment: 1, MinSpacing: 1},
		{Lanes: 3, MaxObstaclesPerSegment: 0, MinSpacing: 1},
		{Lanes: 3, MaxObstaclesPerSegment: 1, MinSpacing: 0},
	}
	for i, cfg := range bad {
		if _, err := NewScheduler(cfg, NewDifficulty(0, 3)); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
