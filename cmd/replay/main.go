package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"voxelnav.ai/internal/persistence/indexdb"
	persistlog "voxelnav.ai/internal/persistence/log"
	"voxelnav.ai/internal/persistence/snapshot"
	"voxelnav.ai/internal/protocol"
	"voxelnav.ai/internal/sim/scenario"
	"voxelnav.ai/internal/sim/tuning"
)

func main() {
	var (
		eventsDir    = flag.String("events", "", "events dir containing events-*.jsonl.zst")
		runsDir      = flag.String("runs", "", "runs dir containing runs-*.jsonl.zst (default: sibling of -events)")
		indexPath    = flag.String("index", "", "sqlite index to print the per-agent summary from (optional)")
		runID        = flag.String("run_id", "", "run id to summarize from -index (default: the recorded run)")
		snapPath     = flag.String("snapshot", "", "path to .snap.zst to inspect and digest-check (optional)")
		scenarioPath = flag.String("scenario", "", "scenario yaml to re-simulate and verify against (optional)")
		tuningPath   = flag.String("tuning", "./configs/tuning.yaml", "tuning used for the recorded run")
		seed         = flag.Int64("seed", 0, "seed override used for the recorded run (0 keeps the scenario value)")
		agent        = flag.String("agent", "", "only consider this agent id")
		fromTick     = flag.Uint64("from_tick", 0, "start at tick (inclusive, optional)")
		toTick       = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
		ticks        = flag.Uint64("ticks", 0, "tick the recorded run stopped at (0 reads it from the run log)")
	)
	flag.Parse()

	if *snapPath != "" {
		if err := inspectSnapshot(*snapPath); err != nil {
			fmt.Fprintln(os.Stderr, "snapshot:", err)
			os.Exit(1)
		}
		if *eventsDir == "" {
			return
		}
	}
	if *eventsDir == "" {
		fmt.Fprintln(os.Stderr, "missing -events")
		os.Exit(2)
	}

	files, err := persistlog.ListFiles(*eventsDir, "events")
	if err != nil {
		fmt.Fprintln(os.Stderr, "list events:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no events files found in", *eventsDir)
		os.Exit(1)
	}

	f := filter{agent: strings.TrimSpace(*agent), from: *fromTick, to: *toTick}
	var recorded []protocol.StuckEvent
	for _, path := range files {
		err := persistlog.ReadEvents(path, func(ev protocol.StuckEvent) error {
			if f.keep(ev) {
				recorded = append(recorded, ev)
			}
			return nil
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "read events:", err)
			os.Exit(1)
		}
	}
	summarize(recorded)

	if *runsDir == "" {
		*runsDir = filepath.Join(filepath.Dir(filepath.Clean(*eventsDir)), "runs")
	}
	info, haveInfo, err := persistlog.LastRun(*runsDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "read runs:", err)
		os.Exit(1)
	}
	if haveInfo {
		fmt.Printf("run=%s scenario=%s seed=%d ticks=%d stopped=%d\n", info.RunID, info.Scenario, info.Seed, info.Ticks, info.StoppedTick)
	}

	if *indexPath != "" {
		id := *runID
		if id == "" {
			id = info.RunID
		}
		if id == "" {
			fmt.Fprintln(os.Stderr, "missing -run_id for -index")
			os.Exit(2)
		}
		if err := printIndexSummary(os.Stdout, *indexPath, id); err != nil {
			fmt.Fprintln(os.Stderr, "index:", err)
			os.Exit(1)
		}
	}

	if *scenarioPath == "" {
		return
	}

	sc, err := scenario.Load(*scenarioPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load scenario:", err)
		os.Exit(1)
	}
	if *seed != 0 {
		sc.Seed = *seed
	}
	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
		tune = tuning.Defaults()
	}

	bound := *ticks
	if bound == 0 && haveInfo {
		bound = info.StoppedTick
		if bound == 0 {
			bound = info.Ticks
		}
	}

	checked, err := verify(sc, tune, recorded, f, bound)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d events\n", checked)
}

func inspectSnapshot(path string) error {
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return err
	}
	fmt.Printf("snapshot v%d run=%s scenario=%s tick=%d seed=%d chunks=%d agents=%d\n",
		snap.Header.Version, snap.Header.RunID, snap.Scenario, snap.Header.Tick, snap.Seed, len(snap.Chunks), len(snap.Agents))
	if _, err := scenario.RestoreWorld(snap); err != nil {
		return err
	}
	for _, a := range snap.Agents {
		fmt.Printf("  %s hp=%.1f/%.1f level=%d timeout=%d delay=%d\n",
			a.ID, a.HP, a.MaxHP, a.Stuck.StuckLevel, a.Stuck.GlobalTimeout, a.Stuck.ActionDelayRemaining)
	}
	fmt.Println("world digest ok")
	return nil
}

type filter struct {
	agent    string
	from, to uint64
}

func (f filter) keep(ev protocol.StuckEvent) bool {
	if f.agent != "" && ev.AgentID != f.agent {
		return false
	}
	if ev.Tick < f.from {
		return false
	}
	return f.to == 0 || ev.Tick <= f.to
}

// verify re-runs the scenario up to tick stop and checks that it produces
// exactly the recorded events. Engines are seeded from the scenario seed, so
// a divergence means the code or the inputs changed. A zero stop means the
// run went the scenario's full length.
func verify(sc scenario.Scenario, tune tuning.Tuning, recorded []protocol.StuckEvent, f filter, stop uint64) (int, error) {
	var got []protocol.StuckEvent
	sink := sinkFunc(func(ev protocol.StuckEvent) error {
		if f.keep(ev) {
			got = append(got, ev)
		}
		return nil
	})
	run, err := scenario.Build(sc, tune, scenario.BuildOptions{Sink: sink})
	if err != nil {
		return 0, err
	}

	last := stop
	if last == 0 {
		last = sc.Ticks
	}
	if n := len(recorded); n > 0 && recorded[n-1].Tick > last {
		last = recorded[n-1].Tick
	}
	if f.to != 0 && f.to < last {
		last = f.to
	}
	if err := run.RunTo(last); err != nil {
		return 0, err
	}

	for i := range recorded {
		if i >= len(got) {
			return i, fmt.Errorf("missing event %d: want %s", i, describe(recorded[i]))
		}
		if !same(recorded[i], got[i]) {
			return i, fmt.Errorf("event %d mismatch: got %s want %s", i, describe(got[i]), describe(recorded[i]))
		}
	}
	if len(got) > len(recorded) {
		return len(recorded), fmt.Errorf("extra event %d: %s", len(recorded), describe(got[len(recorded)]))
	}
	return len(recorded), nil
}

type sinkFunc func(protocol.StuckEvent) error

func (f sinkFunc) WriteStuckEvent(ev protocol.StuckEvent) error { return f(ev) }

func same(a, b protocol.StuckEvent) bool {
	return a.Tick == b.Tick && a.AgentID == b.AgentID && a.Kind == b.Kind &&
		a.Level == b.Level && a.GlobalTimeout == b.GlobalTimeout && a.Amount == b.Amount &&
		sameVal(a.Destination, b.Destination) && sameVal(a.Pos, b.Pos) && sameVal(a.Cell, b.Cell)
}

func sameVal[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func describe(ev protocol.StuckEvent) string {
	out := fmt.Sprintf("tick=%d agent=%s kind=%s level=%d timeout=%d", ev.Tick, ev.AgentID, ev.Kind, ev.Level, ev.GlobalTimeout)
	if ev.Pos != nil {
		out += fmt.Sprintf(" pos=%v", *ev.Pos)
	}
	return out
}

func printIndexSummary(w io.Writer, path, runID string) error {
	rows, err := indexdb.SummarizeRun(path, runID)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "index run=%s rows=%d\n", runID, len(rows))
	for _, r := range rows {
		fmt.Fprintf(w, "  %s %s=%d\n", r.AgentID, r.Kind, r.Count)
	}
	return nil
}

func summarize(events []protocol.StuckEvent) {
	byAgent := map[string]map[string]int{}
	for _, ev := range events {
		m := byAgent[ev.AgentID]
		if m == nil {
			m = map[string]int{}
			byAgent[ev.AgentID] = m
		}
		m[ev.Kind]++
	}
	ids := make([]string, 0, len(byAgent))
	for id := range byAgent {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Printf("events=%d agents=%d\n", len(events), len(ids))
	for _, id := range ids {
		kinds := make([]string, 0, len(byAgent[id]))
		for k := range byAgent[id] {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		parts := make([]string, 0, len(kinds))
		for _, k := range kinds {
			parts = append(parts, fmt.Sprintf("%s=%d", k, byAgent[id][k]))
		}
		fmt.Printf("  %s %s\n", id, strings.Join(parts, " "))
	}
}
