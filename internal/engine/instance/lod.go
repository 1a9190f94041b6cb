package instance

import "fmt"

// Level of detail. 0 is the finest level; the culled level sits past the
// last configured threshold.
type Level int8

const (
	LevelHigh   Level = 0
	LevelMedium Level = 1
	LevelLow    Level = 2
)

// Config is the ordered LOD ladder: distance thresholds (strictly
// increasing) with a detail ratio per level, a cull distance, and a
// hysteresis margin that keeps instances sitting on a boundary from
// flickering between levels.
type Config struct {
	Distances  []float32
	Ratios     []float32
	Cull       float32
	Hysteresis float32
}

func (c Config) Validate() error {
	if len(c.Distances) == 0 {
		return fmt.Errorf("lod: no distance thresholds")
	}
	if len(c.Distances) != len(c.Ratios) {
		return fmt.Errorf("lod: %d distances vs %d ratios", len(c.Distances), len(c.Ratios))
	}
	for i := 1; i < len(c.Distances); i++ {
		if c.Distances[i] <= c.Distances[i-1] {
			return fmt.Errorf("lod: thresholds not strictly increasing at %d", i)
		}
	}
	for i, r := range c.Ratios {
		if r <= 0 || r > 1 {
			return fmt.Errorf("lod: ratio[%d]=%v out of (0,1]", i, r)
		}
	}
	if c.Cull < c.Distances[len(c.Distances)-1] {
		return fmt.Errorf("lod: cull %v below last threshold %v", c.Cull, c.Distances[len(c.Distances)-1])
	}
	if c.Hysteresis < 0 {
		return fmt.Errorf("lod: negative hysteresis")
	}
	return nil
}

// CullLevel is the level value meaning "not drawn at all".
func (c Config) CullLevel() Level { return Level(len(c.Distances)) }

// LevelFor is the bare threshold comparison: level i when d <= Distances[i],
// the lowest level out to Cull, culled beyond.
func (c Config) LevelFor(d float32) Level {
	for i, th := range c.Distances {
		if d <= th {
			return Level(i)
		}
	}
	if d <= c.Cull {
		return Level(len(c.Distances) - 1)
	}
	return c.CullLevel()
}

// LevelWithHysteresis selects the level for distance d given the current
// level. A change only happens once d clears the crossed boundary by the
// hysteresis margin, in either direction.
func (c Config) LevelWithHysteresis(d float32, cur Level) Level {
	raw := c.LevelFor(d)
	if raw == cur || c.Hysteresis == 0 {
		return raw
	}
	if raw > cur {
		// Degrading: must clear the outer edge of the current level.
		if d <= c.upperEdge(cur)+c.Hysteresis {
			return cur
		}
		return raw
	}
	// Refining: must come back inside the target level's edge by the margin.
	if d >= c.upperEdge(raw)-c.Hysteresis {
		return cur
	}
	return raw
}

// upperEdge is the far boundary of a level. The lowest level extends to the
// cull distance.
func (c Config) upperEdge(l Level) float32 {
	last := len(c.Distances) - 1
	if int(l) >= last {
		if c.Cull > c.Distances[last] {
			return c.Cull
		}
		return c.Distances[last]
	}
	return c.Distances[l]
}

// Ratio returns the detail ratio for a drawable level.
func (c Config) Ratio(l Level) float32 {
	if int(l) < 0 || int(l) >= len(c.Ratios) {
		return 0
	}
	return c.Ratios[l]
}
