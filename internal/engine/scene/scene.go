package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Handle identifies an object created in the render host. Zero is never a
// valid handle.
type Handle int64

// Transform is the placement of one instance in world space.
type Transform struct {
	Position  mgl32.Vec3
	RotationY float32 // radians around the travel-up axis
	Scale     float32
}

// Host is the opaque render/scene sink. The engine only creates, toggles,
// degrades and disposes objects; how they are drawn is the host's business.
type Host interface {
	Create(template string, tf Transform) Handle
	SetEnabled(h Handle, on bool)
	// SetDetail applies a material/mesh detail ratio in (0,1]. Called only on
	// LOD level changes, never per tick.
	SetDetail(h Handle, ratio float32)
	Dispose(h Handle)
}

// EnvironmentParams are the ambient parameters biome transitions write.
type EnvironmentParams struct {
	FogDensity  float32
	AmbientTint [3]float32
}

// EnvironmentSink accepts ambient parameter writes and exposes the current
// values so a snapshot can be captured at startup.
type EnvironmentSink interface {
	Apply(p EnvironmentParams)
	Current() EnvironmentParams
}
