package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"horizon.run/internal/engine/world"
)

func TestEventLogger_WritesReadableJSONL(t *testing.T) {
	dir := t.TempDir()
	l := NewEventLogger(dir)

	events := []world.Event{
		{"t": uint64(1), "type": "POOL_GROW", "size": 9},
		{"t": uint64(2), "type": "BIOME_SHIFT", "biome": "HAZARD"},
		{"t": uint64(3), "type": "TEMPLATE_FAILED", "name": "ghost", "err": "boom"},
	}
	for _, ev := range events {
		if err := l.WriteEvent(ev); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "events", "events-*.jsonl.zst"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("log files = %v (err %v)", matches, err)
	}

	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	var got []map[string]any
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line %d not json: %v", len(got), err)
		}
		got = append(got, m)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != len(events) {
		t.Fatalf("lines = %d, want %d", len(got), len(events))
	}
	if got[1]["type"] != "BIOME_SHIFT" || got[1]["biome"] != "HAZARD" {
		t.Fatalf("line 1 = %v", got[1])
	}
	if got[2]["name"] != "ghost" {
		t.Fatalf("line 2 = %v", got[2])
	}
}

func TestEventLogger_CloseWithoutWrites(t *testing.T) {
	l := NewEventLogger(t.TempDir())
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
