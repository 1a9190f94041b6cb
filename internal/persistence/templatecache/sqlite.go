package templatecache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"horizon.run/internal/engine/asset"
)

// Cache is a local content-addressed store of resolved template documents,
// so restarts (and resolver outages) do not refetch everything. Reads are
// synchronous; writes go through a single writer goroutine so the fetch path
// never blocks on sqlite.
type Cache struct {
	db *sql.DB

	enc *zstd.Encoder
	dec *zstd.Decoder

	ch chan putReq
	wg sync.WaitGroup

	// mu guards closed and the channel close, so a Put racing Close can
	// never send on a closed channel.
	mu     sync.Mutex
	closed bool
}

type putReq struct {
	name string
	raw  []byte
}

func Open(path string) (*Cache, error) {
	if path == "" {
		return nil, fmt.Errorf("empty cache path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma: %w", err)
		}
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS templates (
  name       TEXT PRIMARY KEY,
  digest     TEXT NOT NULL,
  doc_zstd   BLOB NOT NULL,
  stored_at  TEXT NOT NULL
);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("schema: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	c := &Cache{
		db:  db,
		enc: enc,
		dec: dec,
		ch:  make(chan putReq, 256),
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.loop()
	}()
	return c, nil
}

// Get returns the raw document for name, or ok=false on a miss.
func (c *Cache) Get(name string) ([]byte, bool, error) {
	var blob []byte
	err := c.db.QueryRow(`SELECT doc_zstd FROM templates WHERE name = ?`, name).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	raw, err := c.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, false, fmt.Errorf("cache entry %s: %w", name, err)
	}
	return raw, true, nil
}

// Put stores a fetched document asynchronously. Drops the write if the
// buffer is full or the cache is closed; the cache is an optimization, not a
// source of truth.
func (c *Cache) Put(name string, raw []byte) {
	cp := make([]byte, len(raw))
	copy(cp, raw)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- putReq{name: name, raw: cp}:
	default:
	}
}

func (c *Cache) loop() {
	for req := range c.ch {
		blob := c.enc.EncodeAll(req.raw, nil)
		sum := sha256.Sum256(req.raw)
		_, _ = c.db.Exec(`
INSERT INTO templates(name, digest, doc_zstd, stored_at) VALUES(?,?,?,?)
ON CONFLICT(name) DO UPDATE SET digest=excluded.digest, doc_zstd=excluded.doc_zstd, stored_at=excluded.stored_at`,
			req.name, hex.EncodeToString(sum[:]), blob, time.Now().UTC().Format(time.RFC3339))
	}
}

func (c *Cache) Close() error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
	c.mu.Unlock()
	c.wg.Wait()
	c.dec.Close()
	_ = c.enc.Close()
	return c.db.Close()
}

// Loader layers the cache in front of another loader: hits decode locally,
// misses fall through and write back on success.
type Loader struct {
	Cache *Cache
	Next  asset.Loader
}

func (l Loader) LoadTemplate(ctx context.Context, name string) (*asset.Document, error) {
	if raw, ok, err := l.Cache.Get(name); err == nil && ok {
		doc, derr := asset.DecodeDocument(raw)
		if derr == nil {
			return doc, nil
		}
		// Corrupt entry: ignore and refetch.
	}
	doc, err := l.Next.LoadTemplate(ctx, name)
	if err != nil {
		return nil, err
	}
	if raw, merr := doc.Marshal(); merr == nil {
		l.Cache.Put(name, raw)
	}
	return doc, nil
}
