package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxelnav.ai/internal/protocol"
	"voxelnav.ai/internal/sim/tuning"
)

// SQLiteIndex is a queryable secondary index of runs and stuck events.
// Writes are queued to a single writer goroutine; the compressed JSONL logs
// remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropEvents atomic.Uint64
	dropRuns   atomic.Uint64
}

type reqKind int

const (
	reqEvent reqKind = iota + 1
	reqRun
)

type req struct {
	kind reqKind

	event protocol.StuckEvent
	run   runRow
}

type runRow struct {
	Info       protocol.RunInfo
	RecordedAt string
}

// Stats reports queue pressure on the writer goroutine.
type Stats struct {
	QueueDepth      int
	QueueCapacity   int
	DropEventsTotal uint64
	DropRunsTotal   uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
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

	s := &SQLiteIndex{
		db: db,
		// Full-stuck storms across many agents arrive in bursts.
		ch: make(chan req, 65536),
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
		"PRAGMA foreign_keys=ON;",
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
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tunings (
			digest TEXT PRIMARY KEY,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			scenario TEXT NOT NULL,
			seed INTEGER NOT NULL,
			ticks INTEGER NOT NULL,
			agents TEXT NOT NULL,
			world_digest TEXT,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS stuck_events (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			agent_id TEXT NOT NULL,
			agent_type TEXT,
			kind TEXT NOT NULL,
			level INTEGER NOT NULL,
			global_timeout INTEGER NOT NULL,
			amount REAL NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (run_id, tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_stuck_agent_tick ON stuck_events(agent_id, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_stuck_kind ON stuck_events(run_id, kind);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:      len(s.ch),
		QueueCapacity:   cap(s.ch),
		DropEventsTotal: s.dropEvents.Load(),
		DropRunsTotal:   s.dropRuns.Load(),
	}
}

// WriteStuckEvent queues ev for indexing. It never blocks the simulation:
// when the writer falls behind the event is counted as dropped.
func (s *SQLiteIndex) WriteStuckEvent(ev protocol.StuckEvent) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqEvent, event: ev}:
	default:
		s.dropEvents.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordRun(info protocol.RunInfo) {
	if s == nil || s.closed.Load() {
		return
	}
	if info.RunID == "" {
		return
	}
	r := runRow{Info: info, RecordedAt: time.Now().UTC().Format(time.RFC3339Nano)}
	select {
	case s.ch <- req{kind: reqRun, run: r}:
	default:
		s.dropRuns.Add(1)
	}
}

// UpsertTuning stores the tuning values a run actually applied, keyed by the
// digest of their canonical JSON. It returns that digest.
func (s *SQLiteIndex) UpsertTuning(tune tuning.Tuning) (string, error) {
	if s == nil {
		return "", nil
	}
	b, err := json.Marshal(tune)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	digest := hex.EncodeToString(sum[:])
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return "", err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO tunings(digest,json,updated_at) VALUES(?,?,?)`, digest, string(b), now); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return digest, nil
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertEvent, _ := s.db.Prepare(`INSERT OR REPLACE INTO stuck_events(run_id,tick,seq,agent_id,agent_type,kind,level,global_timeout,amount,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertRun, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(run_id,scenario,seed,ticks,agents,world_digest,recorded_at) VALUES(?,?,?,?,?,?,?)`)
	defer func() {
		if insertEvent != nil {
			_ = insertEvent.Close()
		}
		if insertRun != nil {
			_ = insertRun.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		lastRun  string
		lastTick uint64
		seq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
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
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqEvent:
			ev := r.event
			// Several events can share a tick (FULL_STUCK then its recovery steps).
			if ev.RunID != lastRun || ev.Tick != lastTick {
				lastRun = ev.RunID
				lastTick = ev.Tick
				seq = 0
			}
			cur := seq
			seq++
			raw, _ := json.Marshal(ev)
			if insertEvent != nil {
				if _, err := tx.Stmt(insertEvent).Exec(
					ev.RunID,
					int64(ev.Tick),
					cur,
					ev.AgentID,
					ev.AgentType,
					ev.Kind,
					ev.Level,
					ev.GlobalTimeout,
					ev.Amount,
					string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqRun:
			info := r.run.Info
			if insertRun != nil {
				if _, err := tx.Stmt(insertRun).Exec(
					info.RunID,
					info.Scenario,
					info.Seed,
					int64(info.Ticks),
					strings.Join(info.Agents, ","),
					info.WorldDigest,
					r.run.RecordedAt,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
