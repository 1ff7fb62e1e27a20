package indexdb

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// KindCount is one row of a per-agent event summary.
type KindCount struct {
	AgentID string
	Kind    string
	Count   int
}

// SummarizeRun counts stuck events per agent and kind for one run. It opens
// its own read connection so it can be used after the index is closed.
func SummarizeRun(path, runID string) ([]KindCount, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`SELECT agent_id, kind, COUNT(*) FROM stuck_events WHERE run_id=? GROUP BY agent_id, kind ORDER BY agent_id, kind`, runID)
	if err != nil {
		return nil, fmt.Errorf("summarize %s: %w", runID, err)
	}
	defer rows.Close()

	var out []KindCount
	for rows.Next() {
		var kc KindCount
		if err := rows.Scan(&kc.AgentID, &kc.Kind, &kc.Count); err != nil {
			return nil, err
		}
		out = append(out, kc)
	}
	return out, rows.Err()
}
