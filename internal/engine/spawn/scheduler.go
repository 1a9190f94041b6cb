package spawn

import (
	"fmt"
	"math/rand"
	"sort"
)

// Kind of a planned placement.
type Kind uint8

const (
	KindObstacle Kind = iota
	KindHazard
	KindCollectible
	KindScenery
)

func (k Kind) String() string {
	switch k {
	case KindObstacle:
		return "OBSTACLE"
	case KindHazard:
		return "HAZARD"
	case KindCollectible:
		return "COLLECTIBLE"
	case KindScenery:
		return "SCENERY"
	default:
		return "UNKNOWN"
	}
}

// Placement is one planned entity inside a segment: a longitudinal offset in
// [0, length) and a lane column. Scenery uses lane -1 / Lanes for the strips
// left and right of the track.
type Placement struct {
	Kind   Kind
	Offset float32
	Lane   int
}

// obstacleJitterFrac is the fraction of MinSpacing an obstacle may drift
// forward inside its slot.
const obstacleJitterFrac = 0.4

type Config struct {
	Seed                   int64
	Lanes                  int
	BaseObstacleChance     float64
	MaxObstaclesPerSegment int
	MinSpacing             float32
	CollectibleChance      float64
	SceneryPerSegment      int
}

// Scheduler plans segment content. Plan is a pure function of (segment
// index, difficulty state, seed): no hidden state, so identical runs place
// identical content.
type Scheduler struct {
	cfg  Config
	diff *Difficulty
}

func NewScheduler(cfg Config, diff *Difficulty) (*Scheduler, error) {
	if cfg.Lanes <= 0 {
		return nil, fmt.Errorf("spawn: lanes must be > 0, got %d", cfg.Lanes)
	}
	if cfg.MaxObstaclesPerSegment < 1 {
		return nil, fmt.Errorf("spawn: max obstacles must be >= 1, got %d", cfg.MaxObstaclesPerSegment)
	}
	if cfg.MinSpacing <= 0 {
		return nil, fmt.Errorf("spawn: min spacing must be > 0, got %v", cfg.MinSpacing)
	}
	return &Scheduler{cfg: cfg, diff: diff}, nil
}

func (s *Scheduler) Difficulty() *Difficulty { return s.diff }

// Plan draws the content for one segment. hazard selects the hazard-biome
// obstacle kind. Placements come back sorted by offset.
func (s *Scheduler) Plan(index int64, length float32, hazard bool) []Placement {
	rng := rand.New(rand.NewSource(segmentSeed(s.cfg.Seed, index)))
	var out []Placement

	// Obstacle pass: one Bernoulli gate, then 1..cap obstacles in distinct
	// spacing slots so no lane-column ever gets an impossible back-to-back
	// pair. The slot pitch carries the jitter headroom on top of MinSpacing,
	// so two jittered neighbours are still at least MinSpacing apart.
	chance := s.diff.ObstacleChance(s.cfg.BaseObstacleChance)
	if rng.Float64() < chance {
		most := s.diff.MaxObstacles(s.cfg.MaxObstaclesPerSegment)
		n := 1 + rng.Intn(most)
		pitch := s.cfg.MinSpacing * (1 + obstacleJitterFrac)
		slots := int(length / pitch)
		if slots < 1 {
			slots = 1
		}
		if n > slots {
			n = slots
		}
		kind := KindObstacle
		if hazard {
			kind = KindHazard
		}
		order := rng.Perm(slots)
		for i := 0; i < n; i++ {
			base := float32(order[i]) * pitch
			jitter := rng.Float32() * s.cfg.MinSpacing * obstacleJitterFrac
			out = append(out, Placement{
				Kind:   kind,
				Offset: base + jitter,
				Lane:   rng.Intn(s.cfg.Lanes),
			})
		}
	}

	// Independent collectible trial: a short single-lane run.
	if rng.Float64() < s.cfg.CollectibleChance {
		lane := rng.Intn(s.cfg.Lanes)
		count := 3 + rng.Intn(3)
		const step = 1.5
		start := rng.Float32() * (length - float32(count)*step)
		if start < 0 {
			start = 0
		}
		for i := 0; i < count; i++ {
			off := start + float32(i)*step
			if off >= length {
				break
			}
			out = append(out, Placement{Kind: KindCollectible, Offset: off, Lane: lane})
		}
	}

	// Non-colliding scenery on the strips beside the track.
	for i := 0; i < s.cfg.SceneryPerSegment; i++ {
		lane := -1
		if rng.Intn(2) == 1 {
			lane = s.cfg.Lanes
		}
		out = append(out, Placement{
			Kind:   KindScenery,
			Offset: rng.Float32() * length,
			Lane:   lane,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Offset != out[j].Offset {
			return out[i].Offset < out[j].Offset
		}
		return out[i].Lane < out[j].Lane
	})
	return out
}

func segmentSeed(seed, index int64) int64 {
	v := uint64(seed) ^ uint64(index)*0x9e3779b97f4a7c15
	return int64(mix64(v))
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
