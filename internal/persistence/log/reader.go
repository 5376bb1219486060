package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"

	"holoui.ai/internal/menu"
)

// AuditFiles lists the session audit files under dataDir in write order.
func AuditFiles(dataDir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dataDir, "audit", "sessions-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ReadAudit decodes one audit file and calls fn for each event. Lines that
// do not decode are skipped and counted.
func ReadAudit(path string, fn func(menu.SessionEvent)) (skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return 0, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var r auditRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil || r.ObserverID == "" {
			skipped++
			continue
		}
		at, err := time.Parse(time.RFC3339Nano, r.At)
		if err != nil {
			skipped++
			continue
		}
		fn(menu.SessionEvent{
			Kind:       menu.EventKind(r.Kind),
			ObserverID: r.ObserverID,
			MenuID:     r.MenuID,
			Remember:   r.Remember,
			At:         at,
		})
	}
	if err := sc.Err(); err != nil {
		return skipped, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return skipped, nil
}
