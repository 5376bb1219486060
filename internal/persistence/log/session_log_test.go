package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"holoui.ai/internal/menu"
)

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	var out []map[string]any
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		out = append(out, m)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestJSONLZstdWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "x")
	now := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	if err := w.Write(map[string]int{"n": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	first := w.Path()
	now = now.Add(2 * time.Minute)
	if err := w.Write(map[string]int{"n": 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	second := w.Path()
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if filepath.Base(first) != "x-2026-03-01-10.jsonl.zst" || filepath.Base(second) != "x-2026-03-01-11.jsonl.zst" {
		t.Fatalf("paths: %s %s", first, second)
	}
	if got := readLines(t, first); len(got) != 1 || got[0]["n"] != float64(1) {
		t.Fatalf("first file: %v", got)
	}
	if got := readLines(t, second); len(got) != 1 || got[0]["n"] != float64(2) {
		t.Fatalf("second file: %v", got)
	}
}

func TestJSONLZstdWriter_ReopenAppends(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		w := NewJSONLZstdWriter(dir, "x")
		w.now = func() time.Time { return now }
		if err := w.Write(map[string]int{"n": i}); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	got := readLines(t, filepath.Join(dir, "x-2026-03-01-10.jsonl.zst"))
	if len(got) != 2 {
		t.Fatalf("got %d lines want 2", len(got))
	}
}

func TestSessionLog_WritesEvents(t *testing.T) {
	dir := t.TempDir()
	l := NewSessionLog(dir, 16, zerolog.Nop())
	at := time.Now()
	l.Record(menu.SessionEvent{Kind: menu.EventOpen, ObserverID: "o1", MenuID: "main", At: at})
	l.Record(menu.SessionEvent{Kind: menu.EventClose, ObserverID: "o1", MenuID: "main", Remember: true, At: at})
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	l.Record(menu.SessionEvent{Kind: menu.EventOpen, ObserverID: "late"})

	files, _ := filepath.Glob(filepath.Join(dir, "audit", "sessions-*.jsonl.zst"))
	if len(files) != 1 {
		t.Fatalf("got %d files want 1", len(files))
	}
	got := readLines(t, files[0])
	if len(got) != 2 {
		t.Fatalf("got %d lines want 2", len(got))
	}
	if got[0]["kind"] != "open" || got[1]["kind"] != "close" || got[1]["remember"] != true {
		t.Fatalf("entries: %v", got)
	}
	if got[0]["observer_id"] != "o1" || got[0]["menu_id"] != "main" {
		t.Fatalf("entry: %v", got[0])
	}
}

func TestSessionLog_DropsWhenFull(t *testing.T) {
	l := &SessionLog{ch: make(chan menu.SessionEvent, 1), log: zerolog.Nop()}
	l.Record(menu.SessionEvent{Kind: menu.EventOpen})
	l.Record(menu.SessionEvent{Kind: menu.EventOpen})
	l.Record(menu.SessionEvent{Kind: menu.EventOpen})
	st := l.Stats()
	if st.DroppedTotal != 2 || st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("stats: %+v", st)
	}
}
