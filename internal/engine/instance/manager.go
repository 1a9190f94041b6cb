package instance

import (
	"log"

	"github.com/go-gl/mathgl/mgl32"

	"horizon.run/internal/engine/asset"
	"horizon.run/internal/engine/scene"
)

// ID identifies one placed instance. Zero is never valid.
type ID int64

// Owner scopes a group of instances to the segment or decoration group that
// created them. Releasing the owner releases everything it still holds.
type Owner int64

// degenerate bounds below this extent skip normalization entirely rather
// than divide by near-zero.
const minNormalizableExtent = 1e-4

type inst struct {
	id       ID
	owner    Owner
	template string // requested template name, not the effective one
	path     asset.Path
	tf       scene.Transform
	handle   scene.Handle

	tpl      *asset.Template
	boundGen uint64
	// placeholderUp is set while the host object is the placeholder standing
	// in for a still-pending template.
	placeholderUp bool

	level   Level
	visible bool
	refs    int
}

// Manager creates and destroys instances, tracks their distance to the
// viewer, and drives LOD switching. Single writer of all per-instance LOD
// state; must only be called from the engine loop.
type Manager struct {
	host   scene.Host
	reg    *asset.Registry
	cfg    Config
	logger *log.Logger // optional

	maxWorldSize float32
	lodEnabled   bool

	byID    map[ID]*inst
	byOwner map[Owner]map[ID]struct{}
	byName  map[string]map[ID]struct{}
	nextID  ID
}

func NewManager(host scene.Host, reg *asset.Registry, cfg Config, maxWorldSize float32, logger *log.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		host:         host,
		reg:          reg,
		cfg:          cfg,
		logger:       logger,
		maxWorldSize: maxWorldSize,
		lodEnabled:   true,
		byID:         map[ID]*inst{},
		byOwner:      map[Owner]map[ID]struct{}{},
		byName:       map[string]map[ID]struct{}{},
	}
	reg.SetReadyFunc(m.templateReady)
	return m, nil
}

// SetLODEnabled toggles distance tracking. Instances created while disabled
// are still placed, just never degraded or culled.
func (m *Manager) SetLODEnabled(on bool) { m.lodEnabled = on }

// Create places an instance of the named template at pos. If the template is
// not Ready yet the placeholder geometry goes up in its place and is swapped
// once resolution completes; Failed templates keep the placeholder forever.
// Returns the instance id and the instantiation path taken.
func (m *Manager) Create(name string, owner Owner, pos mgl32.Vec3, rotY float32) (ID, asset.Path) {
	t := m.reg.Resolve(name)
	path := asset.ChoosePath(t)
	effective := t
	if t.State() != asset.StateReady {
		effective = m.reg.Placeholder()
	}

	tf := scene.Transform{
		Position:  pos,
		RotationY: rotY,
		Scale:     m.normalizeScale(effective),
	}

	m.nextID++
	in := &inst{
		id:            m.nextID,
		owner:         owner,
		template:      name,
		path:          path,
		tf:            tf,
		handle:        m.host.Create(effective.Name(), tf),
		tpl:           t,
		boundGen:      t.Generation(),
		placeholderUp: t.State() == asset.StatePending,
		level:         LevelHigh,
		visible:       true,
		refs:          1,
	}
	m.byID[in.id] = in
	ownerSet(m.byOwner, owner)[in.id] = struct{}{}
	if in.placeholderUp {
		nameSet(m.byName, name)[in.id] = struct{}{}
	}
	return in.id, path
}

// Retain adds a reference to a live instance. Unknown ids are ignored.
func (m *Manager) Retain(id ID) {
	if in, ok := m.byID[id]; ok {
		in.refs++
	}
}

// Release drops one reference; at zero the host object is disposed and LOD
// tracking removed. Releasing an unknown or already-released id is a no-op.
func (m *Manager) Release(id ID) {
	in, ok := m.byID[id]
	if !ok {
		return
	}
	in.refs--
	if in.refs > 0 {
		return
	}
	m.host.Dispose(in.handle)
	delete(m.byID, id)
	if set := m.byOwner[in.owner]; set != nil {
		delete(set, id)
		if len(set) == 0 {
			delete(m.byOwner, in.owner)
		}
	}
	if set := m.byName[in.template]; set != nil {
		delete(set, id)
		if len(set) == 0 {
			delete(m.byName, in.template)
		}
	}
}

// ReleaseOwned releases every instance still held by owner and reports how
// many were dropped.
func (m *Manager) ReleaseOwned(owner Owner) int {
	set := m.byOwner[owner]
	if len(set) == 0 {
		return 0
	}
	ids := make([]ID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	for _, id := range ids {
		m.Release(id)
	}
	return len(ids)
}

// UpdateLOD recomputes every tracked instance's level against the viewer
// position. Host writes happen only on state changes.
func (m *Manager) UpdateLOD(viewer mgl32.Vec3) {
	if !m.lodEnabled {
		return
	}
	for _, in := range m.byID {
		d := in.tf.Position.Sub(viewer).Len()
		next := m.cfg.LevelWithHysteresis(d, in.level)
		if next == in.level {
			continue
		}
		in.level = next
		culled := next == m.cfg.CullLevel()
		if culled == in.visible {
			in.visible = !culled
			m.host.SetEnabled(in.handle, in.visible)
		}
		if !culled {
			m.host.SetDetail(in.handle, m.cfg.Ratio(next))
		}
	}
}

// templateReady swaps placeholder geometry for instances bound to a template
// that just resolved. Instances released in the meantime are simply absent
// from the index, so the late completion no-ops against them.
func (m *Manager) templateReady(t *asset.Template) {
	set := m.byName[t.Name()]
	if len(set) == 0 {
		return
	}
	ids := make([]ID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	for _, id := range ids {
		in, ok := m.byID[id]
		if !ok || !in.placeholderUp || in.boundGen == t.Generation() {
			continue
		}
		// Re-derive the normalization against the real bounds and replace
		// the host object, preserving visibility and detail state.
		in.tf.Scale = m.normalizeScale(t)
		m.host.Dispose(in.handle)
		in.handle = m.host.Create(t.Name(), in.tf)
		in.path = asset.ChoosePath(t)
		in.boundGen = t.Generation()
		in.placeholderUp = false
		if !in.visible {
			m.host.SetEnabled(in.handle, false)
		} else if in.level != LevelHigh && in.level != m.cfg.CullLevel() {
			m.host.SetDetail(in.handle, m.cfg.Ratio(in.level))
		}
		delete(set, id)
	}
	if len(set) == 0 {
		delete(m.byName, t.Name())
	}
}

// normalizeScale sizes the instance so its policy dimension matches the
// template's sizing target, clamped to the absolute world-size limit.
// Degenerate bounds return scale 1 rather than propagate Inf/NaN.
func (m *Manager) normalizeScale(t *asset.Template) float32 {
	dim := t.Bounds().Along(t.SizingAxis())
	target := t.SizingTarget()
	if dim < minNormalizableExtent || target <= 0 {
		if m.logger != nil && target > 0 {
			m.logger.Printf("template %s: degenerate bounds, skipping normalization", t.Name())
		}
		return 1
	}
	s := target / dim
	if m.maxWorldSize > 0 {
		if largest := t.Bounds().Largest(); largest*s > m.maxWorldSize {
			s = m.maxWorldSize / largest
		}
	}
	return s
}

// Count reports live instances.
func (m *Manager) Count() int { return len(m.byID) }

// OwnedCount reports live instances held by owner.
func (m *Manager) OwnedCount(owner Owner) int { return len(m.byOwner[owner]) }

// LevelOf exposes LOD state for tests and debug overlays.
func (m *Manager) LevelOf(id ID) (Level, bool) {
	in, ok := m.byID[id]
	if !ok {
		return 0, false
	}
	return in.level, true
}

// VisibleOf exposes visibility state.
func (m *Manager) VisibleOf(id ID) (bool, bool) {
	in, ok := m.byID[id]
	if !ok {
		return false, false
	}
	return in.visible, true
}

// PathOf exposes the instantiation path taken for an instance.
func (m *Manager) PathOf(id ID) (asset.Path, bool) {
	in, ok := m.byID[id]
	if !ok {
		return 0, false
	}
	return in.path, true
}

func ownerSet(m map[Owner]map[ID]struct{}, o Owner) map[ID]struct{} {
	s := m[o]
	if s == nil {
		s = map[ID]struct{}{}
		m[o] = s
	}
	return s
}

func nameSet(m map[string]map[ID]struct{}, n string) map[ID]struct{} {
	s := m[n]
	if s == nil {
		s = map[ID]struct{}{}
		m[n] = s
	}
	return s
}
