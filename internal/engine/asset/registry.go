package asset

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"
)

// Loader fetches the backing document for a template name. Implementations
// may hit a local cache, the filesystem, or the remote resolver; the registry
// only depends on this contract.
type Loader interface {
	LoadTemplate(ctx context.Context, name string) (*Document, error)
}

// RetryConfig bounds the async fetch: capped attempts with exponential
// backoff plus jitter.
type RetryConfig struct {
	MaxAttempts  int
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
	FetchTimeout time.Duration
}

func (c *RetryConfig) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 250 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Second
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
}

type completion struct {
	name string
	doc  *Document
	err  error
}

// ReadyFunc is invoked from Poll (engine loop) when a pending template turns
// ready, so bound instances can re-derive their normalization.
type ReadyFunc func(t *Template)

// FailFunc is invoked from Poll when a template fails permanently.
type FailFunc func(name string, err error)

// Registry owns the template cache. Resolve and Poll must be called from the
// engine loop only; the registry is the single writer of cache entries.
type Registry struct {
	loader Loader
	retry  RetryConfig
	logger *log.Logger // optional

	cache       map[string]*Template
	placeholder *Template
	done        chan completion

	onReady ReadyFunc
	onFail  FailFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	rng    *rand.Rand
	rngMu  sync.Mutex
}

func NewRegistry(loader Loader, retry RetryConfig, logger *log.Logger) *Registry {
	retry.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		loader:      loader,
		retry:       retry,
		logger:      logger,
		cache:       map[string]*Template{},
		placeholder: newPlaceholder(),
		done:        make(chan completion, 256),
		ctx:         ctx,
		cancel:      cancel,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetReadyFunc registers the single ready listener (the instance manager).
func (r *Registry) SetReadyFunc(fn ReadyFunc) { r.onReady = fn }

// SetFailFunc registers the single permanent-failure listener.
func (r *Registry) SetFailFunc(fn FailFunc) { r.onFail = fn }

// Placeholder returns the designated stand-in template. Always Ready.
func (r *Registry) Placeholder() *Template { return r.placeholder }

// Resolve returns the cache entry for name, creating a Pending one and
// kicking off the async fetch on a miss. Never blocks on I/O: a miss returns
// immediately with state Pending.
func (r *Registry) Resolve(name string) *Template {
	if name == PlaceholderName {
		return r.placeholder
	}
	if t, ok := r.cache[name]; ok {
		return t
	}
	t := &Template{name: name, state: StatePending}
	r.cache[name] = t
	r.wg.Add(1)
	go r.fetch(name)
	return t
}

// Poll drains completed fetches and folds them into the cache. Called once
// per tick before the spawn pass; returns the number of entries applied.
func (r *Registry) Poll() int {
	n := 0
	for {
		select {
		case c := <-r.done:
			r.apply(c)
			n++
		default:
			return n
		}
	}
}

func (r *Registry) apply(c completion) {
	t, ok := r.cache[c.name]
	if !ok || t.state != StatePending {
		// Entry replaced or already settled; late completion is a no-op.
		return
	}
	if c.err != nil {
		t.state = StateFailed
		if r.logger != nil {
			r.logger.Printf("template %s failed permanently: %v", c.name, c.err)
		}
		if r.onFail != nil {
			r.onFail(c.name, c.err)
		}
		return
	}
	t.doc = c.doc
	t.bounds = ComputeBounds(c.doc)
	t.state = StateReady
	t.gen++
	if r.onReady != nil {
		r.onReady(t)
	}
}

func (r *Registry) fetch(name string) {
	defer r.wg.Done()

	delay := r.retry.BaseBackoff
	var lastErr error
	for attempt := 1; attempt <= r.retry.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(r.ctx, r.retry.FetchTimeout)
		doc, err := r.loader.LoadTemplate(ctx, name)
		cancel()
		if err == nil {
			r.report(completion{name: name, doc: doc})
			return
		}
		lastErr = err
		if attempt == r.retry.MaxAttempts {
			break
		}
		select {
		case <-r.ctx.Done():
			r.report(completion{name: name, err: r.ctx.Err()})
			return
		case <-time.After(delay + r.jitter(delay)):
		}
		delay *= 2
		if delay > r.retry.MaxBackoff {
			delay = r.retry.MaxBackoff
		}
	}
	r.report(completion{name: name, err: lastErr})
}

func (r *Registry) report(c completion) {
	select {
	case r.done <- c:
	case <-r.ctx.Done():
	}
}

func (r *Registry) jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return time.Duration(r.rng.Int63n(int64(d)/2 + 1))
}

// Close cancels in-flight fetches and waits for their goroutines.
func (r *Registry) Close() {
	r.cancel()
	r.wg.Wait()
}
