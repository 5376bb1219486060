package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"holoui.ai/internal/menu"
	"holoui.ai/internal/menu/def"
)

// SQLiteStore remembers the last menu per observer and indexes session
// events. Reads are served from memory; writes go through a single writer
// goroutine so callers never wait on disk.
type SQLiteStore struct {
	db  *sql.DB
	log zerolog.Logger

	mu   sync.RWMutex
	last map[string]string

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed      atomic.Bool
	dropLast    atomic.Uint64
	dropEvent   atomic.Uint64
	dropMenu    atomic.Uint64
	writeFailed atomic.Uint64
}

type reqKind int

const (
	reqLast reqKind = iota + 1
	reqEvent
	reqMenu
)

type req struct {
	kind reqKind

	observerID string
	menuID     string
	digest     string
	event      menu.SessionEvent
	at         time.Time
}

type Stats struct {
	QueueDepth       int
	QueueCapacity    int
	DropLastTotal    uint64
	DropEventTotal   uint64
	DropMenuTotal    uint64
	WriteFailedTotal uint64
}

func OpenSQLite(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
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

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	last, err := loadLast(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load last sessions: %w", err)
	}

	s := &SQLiteStore{
		db:   db,
		log:  logger.With().Str("component", "indexdb").Logger(),
		last: last,
		ch:   make(chan req, 16384),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS last_sessions (
			observer_id TEXT PRIMARY KEY,
			menu_id TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			at TEXT NOT NULL,
			kind TEXT NOT NULL,
			observer_id TEXT NOT NULL,
			menu_id TEXT NOT NULL,
			remember INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_session_events_observer ON session_events(observer_id, seq);`,
		`CREATE TABLE IF NOT EXISTS menus (
			menu_id TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func loadLast(db *sql.DB) (map[string]string, error) {
	rows, err := db.Query(`SELECT observer_id, menu_id FROM last_sessions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var obs, id string
		if err := rows.Scan(&obs, &id); err != nil {
			return nil, err
		}
		out[obs] = id
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteStore) Stats() Stats {
	return Stats{
		QueueDepth:       len(s.ch),
		QueueCapacity:    cap(s.ch),
		DropLastTotal:    s.dropLast.Load(),
		DropEventTotal:   s.dropEvent.Load(),
		DropMenuTotal:    s.dropMenu.Load(),
		WriteFailedTotal: s.writeFailed.Load(),
	}
}

// SaveLast remembers menuID for the observer; an empty menuID forgets it.
func (s *SQLiteStore) SaveLast(observerID, menuID string) {
	if s == nil || observerID == "" {
		return
	}
	s.mu.Lock()
	if menuID == "" {
		delete(s.last, observerID)
	} else {
		s.last[observerID] = menuID
	}
	s.mu.Unlock()
	s.enqueue(req{kind: reqLast, observerID: observerID, menuID: menuID, at: time.Now()}, &s.dropLast)
}

func (s *SQLiteStore) LoadLast(observerID string) (string, bool) {
	if s == nil {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.last[observerID]
	return id, ok
}

// Record indexes a session event.
func (s *SQLiteStore) Record(ev menu.SessionEvent) {
	if s == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	s.enqueue(req{kind: reqEvent, event: ev}, &s.dropEvent)
}

// UpsertMenus records the digest of every loaded menu definition.
func (s *SQLiteStore) UpsertMenus(set def.Set) {
	if s == nil {
		return
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	now := time.Now()
	for _, id := range ids {
		s.enqueue(req{kind: reqMenu, menuID: set[id].ID, digest: set[id].Digest, at: now}, &s.dropMenu)
	}
}

func (s *SQLiteStore) enqueue(r req, drops *atomic.Uint64) {
	if s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		drops.Add(1)
	}
}

// History returns the most recent committed events of one observer, newest
// first.
func (s *SQLiteStore) History(ctx context.Context, observerID string, limit int) ([]menu.SessionEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, kind, menu_id, remember FROM session_events WHERE observer_id = ? ORDER BY seq DESC LIMIT ?`,
		observerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []menu.SessionEvent
	for rows.Next() {
		var at, kind, menuID string
		var remember int
		if err := rows.Scan(&at, &kind, &menuID, &remember); err != nil {
			return nil, err
		}
		t, _ := time.Parse(time.RFC3339Nano, at)
		out = append(out, menu.SessionEvent{
			Kind:       menu.EventKind(kind),
			ObserverID: observerID,
			MenuID:     menuID,
			Remember:   remember != 0,
			At:         t,
		})
	}
	return out, rows.Err()
}

// MenuDigest returns the last recorded digest of a menu.
func (s *SQLiteStore) MenuDigest(ctx context.Context, menuID string) (string, bool, error) {
	var digest string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM menus WHERE menu_id = ?`, strings.ToLower(menuID)).Scan(&digest)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return digest, true, nil
}

func (s *SQLiteStore) loop() {
	ctx := context.Background()

	upsertLast, _ := s.db.Prepare(`INSERT OR REPLACE INTO last_sessions(observer_id,menu_id,updated_at) VALUES(?,?,?)`)
	deleteLast, _ := s.db.Prepare(`DELETE FROM last_sessions WHERE observer_id = ?`)
	insertEvent, _ := s.db.Prepare(`INSERT INTO session_events(at,kind,observer_id,menu_id,remember) VALUES(?,?,?,?,?)`)
	upsertMenu, _ := s.db.Prepare(`INSERT OR REPLACE INTO menus(menu_id,digest,updated_at) VALUES(?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{upsertLast, deleteLast, insertEvent, upsertMenu} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			s.log.Error().Err(err).Msg("begin tx")
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.writeFailed.Add(1)
			s.log.Error().Err(err).Msg("commit")
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func(err error) {
		s.writeFailed.Add(1)
		s.log.Error().Err(err).Msg("write failed, rolling back batch")
		if tx != nil {
			_ = tx.Rollback()
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) {
		if st == nil || tx == nil {
			return
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback(err)
			return
		}
		opCount++
	}

	idle := time.NewTicker(commitMaxWait)
	defer idle.Stop()
	for {
		select {
		case r, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			begin()
			if tx == nil {
				continue
			}
			switch r.kind {
			case reqLast:
				if r.menuID == "" {
					exec(deleteLast, r.observerID)
				} else {
					exec(upsertLast, r.observerID, r.menuID, r.at.UTC().Format(time.RFC3339Nano))
				}
			case reqEvent:
				ev := r.event
				remember := 0
				if ev.Remember {
					remember = 1
				}
				exec(insertEvent, ev.At.UTC().Format(time.RFC3339Nano), string(ev.Kind), ev.ObserverID, ev.MenuID, remember)
			case reqMenu:
				exec(upsertMenu, strings.ToLower(r.menuID), r.digest, r.at.UTC().Format(time.RFC3339Nano))
			}
			if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
		case <-idle.C:
			if time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
		}
	}
}
