package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"voxelnav.ai/internal/persistence/indexdb"
	persistlog "voxelnav.ai/internal/persistence/log"
	"voxelnav.ai/internal/persistence/snapshot"
	"voxelnav.ai/internal/protocol"
	"voxelnav.ai/internal/sim/scenario"
	"voxelnav.ai/internal/sim/tuning"
	"voxelnav.ai/internal/sim/world/feature/movement/runtime"
	"voxelnav.ai/internal/transport/observer"
)

func main() {
	var (
		scenarioPath = flag.String("scenario", "", "path to scenario yaml")
		tuningPath   = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml (missing file uses defaults)")
		dataDir      = flag.String("data", "./data", "runtime data directory")
		runID        = flag.String("run_id", "", "run id (default: <scenario>_<unix time>)")
		ticks        = flag.Uint64("ticks", 0, "override scenario tick count")
		seed         = flag.Int64("seed", 0, "override scenario seed (0 keeps the scenario value)")
		disableDB    = flag.Bool("disable_db", false, "disable the sqlite event index")
		observeAddr  = flag.String("observe", "", "serve the observer websocket on this address, e.g. 127.0.0.1:8081")
		realtime     = flag.Bool("realtime", false, "pace ticks at tick_rate_hz instead of running flat out")
		quiet        = flag.Bool("quiet", false, "do not log every stuck event")
		noSnapshot   = flag.Bool("no_snapshot", false, "skip the end-of-run snapshot")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[stucksim] ", log.LstdFlags|log.Lmicroseconds)

	if strings.TrimSpace(*scenarioPath) == "" {
		fmt.Fprintln(os.Stderr, "missing -scenario")
		os.Exit(2)
	}
	sc, err := scenario.Load(*scenarioPath)
	if err != nil {
		logger.Fatalf("load scenario: %v", err)
	}
	if *ticks > 0 {
		sc.Ticks = *ticks
	}
	if *seed != 0 {
		sc.Seed = *seed
	}

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}

	id := strings.TrimSpace(*runID)
	if id == "" {
		id = fmt.Sprintf("%s_%d", sc.Name, time.Now().Unix())
	}
	runDir := filepath.Join(*dataDir, "runs", id)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		logger.Fatalf("run dir: %v", err)
	}

	eventLog := persistlog.NewEventLogger(runDir)
	defer eventLog.Close()
	runLog := persistlog.NewRunLogger(runDir)
	defer runLog.Close()

	var idx *indexdb.SQLiteIndex
	dbPath := filepath.Join(*dataDir, "index", "stuck.sqlite")
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(dbPath)
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		if _, err := idx.UpsertTuning(tune); err != nil {
			logger.Printf("index: upsert tuning: %v", err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	counts := &kindCounter{byAgent: map[string]map[string]int{}}
	sinks := runtime.MultiSink{eventLog, counts}
	if idx != nil {
		sinks = append(sinks, idx)
	}

	var obs *observer.Server
	if addr := strings.TrimSpace(*observeAddr); addr != "" {
		obs = observer.NewServer(logger)
		sinks = append(sinks, obs)
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
			rw.WriteHeader(200)
			_, _ = rw.Write([]byte("ok"))
		})
		mux.HandleFunc("/observer/bootstrap", obs.BootstrapHandler())
		mux.HandleFunc("/observer/ws", obs.WSHandler())
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Printf("observer listening on %s", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Printf("observer server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, c := context.WithTimeout(context.Background(), 2*time.Second)
			defer c()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var eventLogger *log.Logger
	if !*quiet {
		eventLogger = logger
	}
	run, err := scenario.Build(sc, tune, scenario.BuildOptions{RunID: id, Logger: eventLogger, Sink: sinks})
	if err != nil {
		logger.Fatalf("build scenario: %v", err)
	}

	info := run.Info()
	if err := runLog.WriteRun(info); err != nil {
		logger.Printf("run log: %v", err)
	}
	if idx != nil {
		idx.RecordRun(info)
	}
	if obs != nil {
		obs.SetRunInfo(info)
	}
	logger.Printf("run=%s scenario=%s seed=%d ticks=%d agents=%d digest=%s", id, sc.Name, sc.Seed, sc.Ticks, len(info.Agents), info.WorldDigest)

	var pace <-chan time.Time
	if *realtime {
		t := time.NewTicker(time.Second / time.Duration(tune.TickRateHz))
		defer t.Stop()
		pace = t.C
	}

	start := time.Now()
loop:
	for run.System.CurrentTick() < sc.Ticks {
		if pace != nil {
			select {
			case <-ctx.Done():
				break loop
			case <-pace:
			}
		} else if ctx.Err() != nil {
			break
		}
		if err := run.Step(); err != nil {
			logger.Printf("step: %v", err)
			break
		}
	}
	logger.Printf("stopped at tick=%d after %s", run.System.CurrentTick(), time.Since(start).Round(time.Millisecond))

	info.StoppedTick = run.System.CurrentTick()
	if err := runLog.WriteRun(info); err != nil {
		logger.Printf("run log: %v", err)
	}

	if !*noSnapshot {
		snap := run.Snapshot()
		path := filepath.Join(runDir, "snapshots", fmt.Sprintf("%d.snap.zst", snap.Header.Tick))
		if err := snapshot.WriteSnapshot(path, snap); err != nil {
			logger.Printf("snapshot write: %v", err)
		} else {
			logger.Printf("snapshot=%s chunks=%d", path, len(snap.Chunks))
		}
	}

	counts.print(os.Stdout)
	for _, aid := range run.System.AgentIDs() {
		a := run.System.Agent(aid)
		fmt.Printf("agent %s pos=(%.1f,%.1f,%.1f) hp=%.1f/%.1f\n", aid, a.Pos.X, a.Pos.Y, a.Pos.Z, a.HP, a.MaxHP)
	}

	if idx != nil {
		st := idx.Stats()
		if st.DropEventsTotal > 0 {
			logger.Printf("index dropped %d events", st.DropEventsTotal)
		}
		if err := idx.Close(); err != nil {
			logger.Printf("index close: %v", err)
		}
	}
}

// kindCounter tallies events per agent for the end-of-run summary.
type kindCounter struct {
	byAgent map[string]map[string]int
}

func (k *kindCounter) WriteStuckEvent(ev protocol.StuckEvent) error {
	m := k.byAgent[ev.AgentID]
	if m == nil {
		m = map[string]int{}
		k.byAgent[ev.AgentID] = m
	}
	m[ev.Kind]++
	return nil
}

func (k *kindCounter) print(f *os.File) {
	ids := make([]string, 0, len(k.byAgent))
	for id := range k.byAgent {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		kinds := make([]string, 0, len(k.byAgent[id]))
		for kind := range k.byAgent[id] {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		parts := make([]string, 0, len(kinds))
		for _, kind := range kinds {
			parts = append(parts, fmt.Sprintf("%s=%d", kind, k.byAgent[id][kind]))
		}
		fmt.Fprintf(f, "events %s %s\n", id, strings.Join(parts, " "))
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
