package spawn

// Difficulty is the time-driven scalar controlling spawn probability and
// density. Monotonically non-decreasing, clamped to [1, max]. Owned by the
// scheduler; advanced once per tick from the engine loop.
type Difficulty struct {
	level float64
	rate  float64 // levels per second
	max   float64
}

func NewDifficulty(ratePerSecond, max float64) *Difficulty {
	if max < 1 {
		max = 1
	}
	return &Difficulty{level: 1, rate: ratePerSecond, max: max}
}

// Advance moves the curve forward by dt seconds. Negative dt is ignored so
// host clock hiccups can never walk difficulty backwards.
func (d *Difficulty) Advance(dtSeconds float64) {
	if dtSeconds <= 0 {
		return
	}
	d.level += d.rate * dtSeconds
	if d.level > d.max {
		d.level = d.max
	}
}

func (d *Difficulty) Level() float64 { return d.level }
func (d *Difficulty) Max() float64   { return d.max }

// ObstacleChance derives the per-segment obstacle gate: base chance scaled
// linearly by the current level, clamped to [0, 1].
func (d *Difficulty) ObstacleChance(base float64) float64 {
	c := base * d.level
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// MaxObstacles derives the per-segment obstacle cap: 1 at level 1, the
// configured cap at max level, linear in between.
func (d *Difficulty) MaxObstacles(configured int) int {
	if configured < 1 {
		return 1
	}
	if d.max <= 1 {
		return configured
	}
	n := 1 + int((d.level-1)/(d.max-1)*float64(configured-1)+0.5)
	if n < 1 {
		n = 1
	}
	if n > configured {
		n = configured
	}
	return n
}
