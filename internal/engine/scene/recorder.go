package scene

import "sync"

// Op is one recorded host call.
type Op struct {
	Kind     string // "create", "enable", "disable", "detail", "dispose"
	Handle   Handle
	Template string
	Tf       Transform
	Ratio    float32
}

// Recorder is an in-memory Host. It backs the headless runner and the engine
// tests; it records every call so tests can assert exact host traffic.
type Recorder struct {
	mu     sync.Mutex
	next   Handle
	ops    []Op
	live   map[Handle]string
	hidden map[Handle]bool
}

func NewRecorder() *Recorder {
	return &Recorder{
		live:   map[Handle]string{},
		hidden: map[Handle]bool{},
	}
}

func (r *Recorder) Create(template string, tf Transform) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	h := r.next
	r.live[h] = template
	r.ops = append(r.ops, Op{Kind: "create", Handle: h, Template: template, Tf: tf})
	return h
}

func (r *Recorder) SetEnabled(h Handle, on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kind := "enable"
	if !on {
		kind = "disable"
	}
	r.hidden[h] = !on
	r.ops = append(r.ops, Op{Kind: kind, Handle: h})
}

func (r *Recorder) SetDetail(h Handle, ratio float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, Op{Kind: "detail", Handle: h, Ratio: ratio})
}

func (r *Recorder) Dispose(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, h)
	delete(r.hidden, h)
	r.ops = append(r.ops, Op{Kind: "dispose", Handle: h})
}

// LiveCount reports objects created and not yet disposed.
func (r *Recorder) LiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Ops returns a copy of the recorded call log.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Op, len(r.ops))
	copy(out, r.ops)
	return out
}

// OpsOfKind filters the call log.
func (r *Recorder) OpsOfKind(kind string) []Op {
	var out []Op
	for _, op := range r.Ops() {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

// MemEnvironment is an EnvironmentSink holding plain values.
type MemEnvironment struct {
	mu      sync.Mutex
	cur     EnvironmentParams
	applies int
}

func NewMemEnvironment(initial EnvironmentParams) *MemEnvironment {
	return &MemEnvironment{cur: initial}
}

func (m *MemEnvironment) Apply(p EnvironmentParams) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cur = p
	m.applies++
}

func (m *MemEnvironment) Current() EnvironmentParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur
}

// Applies reports how many Apply calls were made; biome transitions are
// edge-triggered, so this stays small.
func (m *MemEnvironment) Applies() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applies
}
