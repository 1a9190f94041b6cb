package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestRecorder_TracksLiveObjects(t *testing.T) {
	r := NewRecorder()
	h1 := r.Create("crate", Transform{Position: mgl32.Vec3{1, 0, 2}, Scale: 1})
	h2 := r.Create("coin", Transform{Scale: 0.5})
	if h1 == h2 {
		t.Fatalf("handles collide")
	}
	if r.LiveCount() != 2 {
		t.Fatalf("live = %d", r.LiveCount())
	}

	r.SetEnabled(h1, false)
	r.SetDetail(h2, 0.5)
	r.Dispose(h1)
	if r.LiveCount() != 1 {
		t.Fatalf("live after dispose = %d", r.LiveCount())
	}

	ops := r.Ops()
	wantKinds := []string{"create", "create", "disable", "detail", "dispose"}
	if len(ops) != len(wantKinds) {
		t.Fatalf("ops = %d, want %d", len(ops), len(wantKinds))
	}
	for i, k := range wantKinds {
		if ops[i].Kind != k {
			t.Fatalf("op %d = %s, want %s", i, ops[i].Kind, k)
		}
	}
	if got := r.OpsOfKind("create"); len(got) != 2 || got[0].Template != "crate" {
		t.Fatalf("creates = %+v", got)
	}
}

func TestMemEnvironment(t *testing.T) {
	base := EnvironmentParams{FogDensity: 0.01, AmbientTint: [3]float32{1, 1, 1}}
	m := NewMemEnvironment(base)
	if m.Current() != base {
		t.Fatalf("initial = %+v", m.Current())
	}
	next := EnvironmentParams{FogDensity: 0.05, AmbientTint: [3]float32{0.8, 0.5, 0.4}}
	m.Apply(next)
	if m.Current() != next || m.Applies() != 1 {
		t.Fatalf("apply not recorded: %+v applies=%d", m.Current(), m.Applies())
	}
}
