package tuning

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz int   `yaml:"tick_rate_hz"`
	Seed       int64 `yaml:"seed"`

	// Streaming window.
	TilesAhead    int     `yaml:"tiles_ahead"`
	TilesBehind   int     `yaml:"tiles_behind"`
	SegmentLength float32 `yaml:"segment_length"`
	SegmentWidth  float32 `yaml:"segment_width"`
	Lanes         int     `yaml:"lanes"`
	PoolCapacity  int     `yaml:"pool_capacity"`
	SafeSegments  int     `yaml:"safe_segments"`

	// Level of detail.
	LODDistances  []float32 `yaml:"lod_distances"`
	LODRatios     []float32 `yaml:"lod_ratios"`
	CullDistance  float32   `yaml:"cull_distance"`
	LODHysteresis float32   `yaml:"lod_hysteresis"`
	MaxWorldSize  float32   `yaml:"max_world_size"`

	// Biomes.
	HazardChance    float64 `yaml:"hazard_chance"`
	MaxHazardStreak int     `yaml:"max_hazard_streak"`

	// Spawning and difficulty.
	BaseObstacleChance     float64 `yaml:"base_obstacle_chance"`
	MaxObstaclesPerSegment int     `yaml:"max_obstacles_per_segment"`
	ObstacleMinSpacing     float32 `yaml:"obstacle_min_spacing"`
	CollectibleChance      float64 `yaml:"collectible_chance"`
	SceneryPerSegment      int     `yaml:"scenery_per_segment"`
	DifficultyGrowthRate   float64 `yaml:"difficulty_growth_rate"`
	DifficultyMax          float64 `yaml:"difficulty_max"`

	// Template names handed to the instance layer.
	ObstacleTemplates   []string `yaml:"obstacle_templates"`
	HazardTemplates     []string `yaml:"hazard_templates"`
	CollectibleTemplate string   `yaml:"collectible_template"`
	SceneryTemplates    []string `yaml:"scenery_templates"`

	Resolver ResolverTuning `yaml:"resolver"`
}

type ResolverTuning struct {
	MaxAttempts    int `yaml:"max_attempts"`
	BaseBackoffMs  int `yaml:"base_backoff_ms"`
	MaxBackoffMs   int `yaml:"max_backoff_ms"`
	FetchTimeoutMs int `yaml:"fetch_timeout_ms"`
}

// HysteresisMargin resolves the lod_hysteresis knob: negative disables the
// band entirely (bare threshold switching).
func (t *Tuning) HysteresisMargin() float32 {
	if t.LODHysteresis < 0 {
		return 0
	}
	return t.LODHysteresis
}

// SceneryCount resolves the scenery_per_segment knob: negative means no
// decoration pass at all.
func (t *Tuning) SceneryCount() int {
	if t.SceneryPerSegment < 0 {
		return 0
	}
	return t.SceneryPerSegment
}

func (r *ResolverTuning) BaseBackoff() time.Duration {
	return time.Duration(r.BaseBackoffMs) * time.Millisecond
}

func (r *ResolverTuning) MaxBackoff() time.Duration {
	return time.Duration(r.MaxBackoffMs) * time.Millisecond
}

func (r *ResolverTuning) FetchTimeout() time.Duration {
	return time.Duration(r.FetchTimeoutMs) * time.Millisecond
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.ApplyDefaults()
	return t, nil
}

func Defaults() Tuning {
	var t Tuning
	t.ApplyDefaults()
	return t
}

func (t *Tuning) ApplyDefaults() {
	if t.TickRateHz <= 0 {
		t.TickRateHz = 60
	}
	if t.Seed == 0 {
		t.Seed = 1337
	}
	if t.TilesAhead <= 0 {
		t.TilesAhead = 5
	}
	if t.TilesBehind <= 0 {
		t.TilesBehind = 2
	}
	if t.SegmentLength <= 0 {
		t.SegmentLength = 20
	}
	if t.SegmentWidth <= 0 {
		t.SegmentWidth = 9
	}
	if t.Lanes <= 0 {
		t.Lanes = 3
	}
	if t.PoolCapacity <= 0 {
		t.PoolCapacity = t.TilesAhead + t.TilesBehind + 1
	}
	if t.SafeSegments == 0 {
		t.SafeSegments = 2
	}
	if len(t.LODDistances) == 0 {
		t.LODDistances = []float32{40, 90, 160}
	}
	if len(t.LODRatios) == 0 {
		t.LODRatios = []float32{1.0, 0.5, 0.2}
	}
	if t.CullDistance <= 0 {
		t.CullDistance = t.LODDistances[len(t.LODDistances)-1]
	}
	// Negative means "off" and survives repeated applies; yaml zero is
	// indistinguishable from unset and gets the default.
	if t.LODHysteresis == 0 {
		t.LODHysteresis = 2.0
	}
	if t.MaxWorldSize <= 0 {
		t.MaxWorldSize = 40
	}
	if t.HazardChance <= 0 {
		t.HazardChance = 0.25
	}
	if t.MaxHazardStreak <= 0 {
		t.MaxHazardStreak = 2
	}
	if t.BaseObstacleChance <= 0 {
		t.BaseObstacleChance = 0.35
	}
	if t.MaxObstaclesPerSegment <= 0 {
		t.MaxObstaclesPerSegment = 3
	}
	if t.ObstacleMinSpacing <= 0 {
		t.ObstacleMinSpacing = 6
	}
	if t.CollectibleChance <= 0 {
		t.CollectibleChance = 0.4
	}
	if t.SceneryPerSegment == 0 {
		t.SceneryPerSegment = 4
	}
	if t.DifficultyGrowthRate <= 0 {
		t.DifficultyGrowthRate = 1.0 / 60.0 // one full level per minute
	}
	if t.DifficultyMax <= 0 {
		t.DifficultyMax = 3.0
	}
	if len(t.ObstacleTemplates) == 0 {
		t.ObstacleTemplates = []string{"barrier_low", "barrier_tall", "rock_large"}
	}
	if len(t.HazardTemplates) == 0 {
		t.HazardTemplates = []string{"spike_strip", "lava_crack"}
	}
	if t.CollectibleTemplate == "" {
		t.CollectibleTemplate = "coin"
	}
	if len(t.SceneryTemplates) == 0 {
		t.SceneryTemplates = []string{"tree_dry", "cactus", "boulder_small"}
	}
	t.Resolver.applyDefaults()
}

func (r *ResolverTuning) applyDefaults() {
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = 3
	}
	if r.BaseBackoffMs <= 0 {
		r.BaseBackoffMs = 250
	}
	if r.MaxBackoffMs <= 0 {
		r.MaxBackoffMs = 5000
	}
	if r.FetchTimeoutMs <= 0 {
		r.FetchTimeoutMs = 10000
	}
}

// Validate rejects programmer-error configurations before the engine loop
// starts. Asset failures at runtime degrade; these fail fast.
func (t *Tuning) Validate() error {
	if t.TilesAhead < 0 {
		return fmt.Errorf("tiles_ahead must be >= 0, got %d", t.TilesAhead)
	}
	if t.TilesBehind < 0 {
		return fmt.Errorf("tiles_behind must be >= 0, got %d", t.TilesBehind)
	}
	if t.SegmentLength <= 0 {
		return fmt.Errorf("segment_length must be > 0, got %v", t.SegmentLength)
	}
	if len(t.LODDistances) != len(t.LODRatios) {
		return fmt.Errorf("lod_distances (%d) and lod_ratios (%d) must have equal length",
			len(t.LODDistances), len(t.LODRatios))
	}
	for i := 1; i < len(t.LODDistances); i++ {
		if t.LODDistances[i] <= t.LODDistances[i-1] {
			return fmt.Errorf("lod_distances must be strictly increasing: [%d]=%v <= [%d]=%v",
				i, t.LODDistances[i], i-1, t.LODDistances[i-1])
		}
	}
	for i, r := range t.LODRatios {
		if r <= 0 || r > 1 {
			return fmt.Errorf("lod_ratios[%d] must be in (0,1], got %v", i, r)
		}
	}
	if t.CullDistance < t.LODDistances[len(t.LODDistances)-1] {
		return fmt.Errorf("cull_distance %v below last lod distance %v",
			t.CullDistance, t.LODDistances[len(t.LODDistances)-1])
	}
	if t.HazardChance < 0 || t.HazardChance > 1 {
		return fmt.Errorf("hazard_chance must be in [0,1], got %v", t.HazardChance)
	}
	if t.MaxHazardStreak < 1 {
		return fmt.Errorf("max_hazard_streak must be >= 1, got %d", t.MaxHazardStreak)
	}
	if t.DifficultyMax < 1 {
		return fmt.Errorf("difficulty_max must be >= 1, got %v", t.DifficultyMax)
	}
	if t.MaxObstaclesPerSegment < 1 {
		return fmt.Errorf("max_obstacles_per_segment must be >= 1, got %d", t.MaxObstaclesPerSegment)
	}
	return nil
}
