package world

import (
	"math/rand"

	"horizon.run/internal/engine/scene"
)

// BiomeSelector is the hysteretic two-state machine choosing a biome per
// spawned segment. A Hazard proposal is accepted only while the running
// streak is under the cap; otherwise the segment is forced Normal and the
// streak resets.
type BiomeSelector struct {
	hazardChance float64
	maxStreak    int
	streak       int
	rng          *rand.Rand
}

func NewBiomeSelector(hazardChance float64, maxStreak int, seed int64) *BiomeSelector {
	if maxStreak < 1 {
		maxStreak = 1
	}
	return &BiomeSelector{
		hazardChance: hazardChance,
		maxStreak:    maxStreak,
		rng:          rand.New(rand.NewSource(seed)),
	}
}

// Choose draws the biome for the next spawned segment.
func (b *BiomeSelector) Choose() Biome {
	if b.rng.Float64() < b.hazardChance {
		if b.streak < b.maxStreak {
			b.streak++
			return BiomeHazard
		}
		b.streak = 0
		return BiomeNormal
	}
	b.streak = 0
	return BiomeNormal
}

// Streak exposes the current consecutive-hazard count.
func (b *BiomeSelector) Streak() int { return b.streak }

// hazardAmbient is what the environment looks like inside a hazard biome.
// The normal-state parameters are whatever the sink held at startup.
var hazardAmbient = scene.EnvironmentParams{
	FogDensity:  0.035,
	AmbientTint: [3]float32{0.82, 0.48, 0.42},
}

// Ambient applies/reverts environment parameters when the viewer crosses a
// biome boundary. Edge-triggered: one sink write per crossing, never per
// tick.
type Ambient struct {
	sink    scene.EnvironmentSink
	base    scene.EnvironmentParams // snapshot captured once at startup
	applied Biome
}

func NewAmbient(sink scene.EnvironmentSink) *Ambient {
	return &Ambient{sink: sink, base: sink.Current(), applied: BiomeNormal}
}

// Update reconciles the sink with the biome the viewer currently occupies.
// Returns true when a transition fired.
func (a *Ambient) Update(current Biome) bool {
	if current == a.applied {
		return false
	}
	a.applied = current
	if current == BiomeHazard {
		a.sink.Apply(hazardAmbient)
	} else {
		a.sink.Apply(a.base)
	}
	return true
}

// Applied exposes the last biome written to the sink.
func (a *Ambient) Applied() Biome { return a.applied }
