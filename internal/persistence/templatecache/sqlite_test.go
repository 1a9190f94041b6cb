package templatecache

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"horizon.run/internal/engine/asset"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "templates.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// waitHit polls Get until the async writer has landed the entry.
func waitHit(t *testing.T, c *Cache, name string) []byte {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		raw, ok, err := c.Get(name)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if ok {
			return raw
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("entry %s never appeared", name)
	return nil
}

func TestCache_PutGetRoundTrip(t *testing.T) {
	c := openTestCache(t)

	if _, ok, err := c.Get("crate"); err != nil || ok {
		t.Fatalf("fresh cache hit: ok=%v err=%v", ok, err)
	}

	doc := []byte(`{"name":"crate","mesh":"box","sizing":{"target":2},"root":{"name":"n","dims":[1,1,1]}}`)
	c.Put("crate", doc)
	raw := waitHit(t, c, "crate")
	if string(raw) != string(doc) {
		t.Fatalf("round trip mangled the document:\n%s\n%s", doc, raw)
	}

	// Overwrite wins.
	doc2 := []byte(`{"name":"crate","mesh":"box2","sizing":{"target":3},"root":{"name":"n","dims":[2,2,2]}}`)
	c.Put("crate", doc2)
	deadline := time.Now().Add(5 * time.Second)
	for {
		raw, _, err := c.Get("crate")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if string(raw) == string(doc2) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("overwrite never landed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCache_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.db")
	c, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	doc := []byte(`{"name":"coin","sizing":{"target":1},"root":{"name":"n","dims":[1,1,1]}}`)
	c.Put("coin", doc)
	waitHit(t, c, "coin")
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	c2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c2.Close()
	raw, ok, err := c2.Get("coin")
	if err != nil || !ok {
		t.Fatalf("entry lost across reopen: ok=%v err=%v", ok, err)
	}
	if string(raw) != string(doc) {
		t.Fatalf("entry corrupted across reopen")
	}
}

func TestCache_PutAfterCloseIsNoop(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "templates.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	c.Put("late", []byte(`{}`)) // must not panic on the closed channel
	_ = c.Close()               // double close is fine too
}

func TestCache_PutRacingCloseDoesNotPanic(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "templates.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		doc := []byte(`{"name":"r","sizing":{"target":1},"root":{"name":"n","dims":[1,1,1]}}`)
		for i := 0; i < 10000; i++ {
			c.Put("r", doc)
		}
	}()
	time.Sleep(time.Millisecond)
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	<-done // the writer must survive Close landing mid-loop
}

type countingLoader struct {
	calls atomic.Int32
	fail  bool
}

func (l *countingLoader) LoadTemplate(_ context.Context, name string) (*asset.Document, error) {
	l.calls.Add(1)
	if l.fail {
		return nil, errors.New("resolver down")
	}
	return &asset.Document{
		Name:   name,
		Mesh:   "box",
		Sizing: asset.Sizing{Target: 2},
		Root:   asset.Node{Name: "n", Dims: [3]float32{1, 1, 1}},
	}, nil
}

func TestLoader_MissFallsThroughAndWritesBack(t *testing.T) {
	c := openTestCache(t)
	next := &countingLoader{}
	l := Loader{Cache: c, Next: next}

	doc, err := l.LoadTemplate(context.Background(), "crate")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Name != "crate" {
		t.Fatalf("doc name = %s", doc.Name)
	}
	if next.calls.Load() != 1 {
		t.Fatalf("upstream calls = %d", next.calls.Load())
	}

	// Once the write-back lands, the next load is served locally.
	waitHit(t, c, "crate")
	doc2, err := l.LoadTemplate(context.Background(), "crate")
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if doc2.Name != "crate" || doc2.Sizing.Target != 2 {
		t.Fatalf("cached doc differs: %+v", doc2)
	}
	if next.calls.Load() != 1 {
		t.Fatalf("cache hit still called upstream: %d", next.calls.Load())
	}
}

func TestLoader_UpstreamErrorPropagates(t *testing.T) {
	c := openTestCache(t)
	l := Loader{Cache: c, Next: &countingLoader{fail: true}}
	if _, err := l.LoadTemplate(context.Background(), "ghost"); err == nil {
		t.Fatalf("expected upstream error")
	}
	if _, ok, _ := c.Get("ghost"); ok {
		t.Fatalf("failed fetch was cached")
	}
}

func TestLoader_CorruptEntryRefetches(t *testing.T) {
	c := openTestCache(t)
	// A syntactically valid but undecodable document (missing name).
	c.Put("broken", []byte(`{"sizing":{"target":1},"root":{"name":"n","dims":[1,1,1]}}`))
	waitHit(t, c, "broken")

	next := &countingLoader{}
	l := Loader{Cache: c, Next: next}
	doc, err := l.LoadTemplate(context.Background(), "broken")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Name != "broken" {
		t.Fatalf("doc name = %s", doc.Name)
	}
	if next.calls.Load() != 1 {
		t.Fatalf("corrupt entry did not fall through: %d calls", next.calls.Load())
	}
}
