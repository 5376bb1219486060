package log

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"holoui.ai/internal/menu"
)

// auditRecord is one line of the session audit log.
type auditRecord struct {
	At         string `json:"at"`
	Kind       string `json:"kind"`
	ObserverID string `json:"observer_id"`
	MenuID     string `json:"menu_id,omitempty"`
	Remember   bool   `json:"remember,omitempty"`
}

// SessionLog writes session lifecycle events to hourly zstd JSONL files
// under <dir>/audit. Record never blocks; events are dropped when the
// queue is full.
type SessionLog struct {
	w   *JSONLZstdWriter
	log zerolog.Logger

	ch   chan menu.SessionEvent
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
	failed  atomic.Uint64
}

type SessionLogStats struct {
	QueueDepth    int
	QueueCapacity int
	DroppedTotal  uint64
	WriteFailures uint64
}

func NewSessionLog(dataDir string, queue int, logger zerolog.Logger) *SessionLog {
	if queue <= 0 {
		queue = 4096
	}
	l := &SessionLog{
		w:   NewJSONLZstdWriter(filepath.Join(dataDir, "audit"), "sessions"),
		log: logger.With().Str("component", "session_log").Logger(),
		ch:  make(chan menu.SessionEvent, queue),
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.loop()
	}()
	return l
}

func (l *SessionLog) Record(ev menu.SessionEvent) {
	if l == nil || l.closed.Load() {
		return
	}
	select {
	case l.ch <- ev:
	default:
		if l.dropped.Add(1) == 1 {
			l.log.Warn().Msg("audit queue full, dropping events")
		}
	}
}

func (l *SessionLog) Stats() SessionLogStats {
	return SessionLogStats{
		QueueDepth:    len(l.ch),
		QueueCapacity: cap(l.ch),
		DroppedTotal:  l.dropped.Load(),
		WriteFailures: l.failed.Load(),
	}
}

// Close drains the queue and closes the current file.
func (l *SessionLog) Close() error {
	var err error
	l.once.Do(func() {
		l.closed.Store(true)
		close(l.ch)
		l.wg.Wait()
		err = l.w.Close()
	})
	return err
}

func (l *SessionLog) loop() {
	flush := time.NewTicker(time.Second)
	defer flush.Stop()
	for {
		select {
		case ev, ok := <-l.ch:
			if !ok {
				return
			}
			l.write(ev)
		case <-flush.C:
			if err := l.w.Flush(); err != nil {
				l.log.Error().Err(err).Msg("flush audit log")
			}
		}
	}
}

func (l *SessionLog) write(ev menu.SessionEvent) {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	rec := auditRecord{
		At:         at.UTC().Format(time.RFC3339Nano),
		Kind:       string(ev.Kind),
		ObserverID: ev.ObserverID,
		MenuID:     ev.MenuID,
		Remember:   ev.Remember,
	}
	if err := l.w.Write(rec); err != nil {
		l.failed.Add(1)
		l.log.Error().Err(err).Str("observer", ev.ObserverID).Msg("write audit entry")
	}
}
