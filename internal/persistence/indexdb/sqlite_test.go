package indexdb

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"voxelnav.ai/internal/protocol"
	"voxelnav.ai/internal/sim/tuning"
)

func TestSQLiteIndex_RecordRunAndEvents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")

	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	idx.RecordRun(protocol.RunInfo{
		Type:     protocol.TypeRunInfo,
		RunID:    "run_1",
		Scenario: "walled",
		Seed:     42,
		Ticks:    500,
		Agents:   []string{"A1", "A2"},
	})
	events := []protocol.StuckEvent{
		{RunID: "run_1", Tick: 21, AgentID: "A1", Kind: "FULL_STUCK"},
		{RunID: "run_1", Tick: 21, AgentID: "A1", Kind: "TELEPORT_GOAL"},
		{RunID: "run_1", Tick: 21, AgentID: "A1", Kind: "DAMAGE", Amount: 4},
		{RunID: "run_1", Tick: 30, AgentID: "A2", Kind: "SOFT_RESET", Level: 1},
	}
	for _, ev := range events {
		if err := idx.WriteStuckEvent(ev); err != nil {
			t.Fatalf("WriteStuckEvent: %v", err)
		}
	}
	if _, err := idx.UpsertTuning(tuning.Defaults()); err != nil {
		t.Fatalf("UpsertTuning: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	var (
		scenario string
		seed     int64
		agents   string
	)
	row := db.QueryRow(`SELECT scenario,seed,agents FROM runs WHERE run_id='run_1'`)
	if err := row.Scan(&scenario, &seed, &agents); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if scenario != "walled" || seed != 42 || agents != "A1,A2" {
		t.Fatalf("run row mismatch: scenario=%q seed=%d agents=%q", scenario, seed, agents)
	}

	var (
		maxSeq int
		amount float64
	)
	if err := db.QueryRow(`SELECT MAX(seq) FROM stuck_events WHERE tick=21`).Scan(&maxSeq); err != nil {
		t.Fatalf("Scan seq: %v", err)
	}
	if maxSeq != 2 {
		t.Fatalf("max seq at tick 21=%d want 2", maxSeq)
	}
	if err := db.QueryRow(`SELECT amount FROM stuck_events WHERE kind='DAMAGE'`).Scan(&amount); err != nil {
		t.Fatalf("Scan amount: %v", err)
	}
	if amount != 4 {
		t.Fatalf("amount=%v want 4", amount)
	}

	sum, err := SummarizeRun(path, "run_1")
	if err != nil {
		t.Fatalf("SummarizeRun: %v", err)
	}
	if len(sum) != 4 {
		t.Fatalf("summary rows=%d want 4: %+v", len(sum), sum)
	}
	if sum[0].AgentID != "A1" || sum[0].Kind != "DAMAGE" || sum[0].Count != 1 {
		t.Fatalf("first summary row %+v", sum[0])
	}
	if sum[3].AgentID != "A2" || sum[3].Kind != "SOFT_RESET" {
		t.Fatalf("last summary row %+v", sum[3])
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqEvent}

	_ = s.WriteStuckEvent(protocol.StuckEvent{Tick: 2})
	s.RecordRun(protocol.RunInfo{RunID: "run_x"})
	s.RecordRun(protocol.RunInfo{})

	st := s.Stats()
	if st.DropEventsTotal != 1 {
		t.Fatalf("DropEventsTotal=%d want=1", st.DropEventsTotal)
	}
	if st.DropRunsTotal != 1 {
		t.Fatalf("DropRunsTotal=%d want=1", st.DropRunsTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_NilIsNoop(t *testing.T) {
	var s *SQLiteIndex
	if err := s.WriteStuckEvent(protocol.StuckEvent{}); err != nil {
		t.Fatalf("nil WriteStuckEvent: %v", err)
	}
	s.RecordRun(protocol.RunInfo{RunID: "x"})
	if st := s.Stats(); st.QueueCapacity != 0 {
		t.Fatalf("nil stats %+v", st)
	}
}
