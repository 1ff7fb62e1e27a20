package scenario

import (
	"fmt"
	"log"

	"voxelnav.ai/internal/nav/stuck"
	"voxelnav.ai/internal/protocol"
	"voxelnav.ai/internal/sim/tuning"
	"voxelnav.ai/internal/sim/world/feature/movement/runtime"
	"voxelnav.ai/internal/sim/world/logic/mathx"
	"voxelnav.ai/internal/sim/world/terrain/store"
)

type BuildOptions struct {
	RunID  string
	Logger *log.Logger
	Sink   runtime.EventSink
}

// Run is a built scenario ready to step.
type Run struct {
	Scenario Scenario
	RunID    string
	World    *store.ChunkStore
	System   *runtime.System

	log      *log.Logger
	nextEdit int
}

// Build generates the world, applies fills and registers every agent with
// an engine configured from the tuning profile named by its type.
func Build(sc Scenario, tune tuning.Tuning, opts BuildOptions) (*Run, error) {
	w := store.NewChunkStore(store.WorldGen{
		Seed:             sc.Seed,
		BoundaryR:        sc.World.BoundaryR,
		MinY:             sc.World.MinY,
		MaxY:             sc.World.MaxY,
		GroundY:          sc.World.GroundY,
		SpawnClearRadius: sc.World.SpawnClearRadius,
		ObstaclePermille: sc.World.ObstaclePermille,
	})
	for _, f := range sc.Fills {
		applyFill(w, f)
	}

	sys := runtime.NewSystem(w, runtime.SystemConfig{
		RunID:            opts.RunID,
		ReplanEveryTicks: tune.ReplanEveryTicks,
		MaxPathVisited:   tune.MaxPathVisited,
		Logger:           opts.Logger,
		Sink:             opts.Sink,
	})

	for i, as := range sc.Agents {
		cfg, ok := tune.StuckConfig(as.Type)
		if !ok && opts.Logger != nil {
			opts.Logger.Printf("agent %s: no %q profile, using %q", as.ID, as.Type, tuning.DefaultProfile)
		}
		a := &runtime.Agent{
			ID:           as.ID,
			Type:         as.Type,
			Pos:          stuck.GridPos{X: as.Pos[0], Y: as.Pos[1], Z: as.Pos[2]}.Center(),
			HP:           as.MaxHP,
			MaxHP:        as.MaxHP,
			TicksPerNode: as.TicksPerNode,
			Unsupervised: as.Unsupervised,
		}
		if as.Destination != nil {
			if err := runtime.SetDestination(w, a, gridPos(*as.Destination)); err != nil {
				return nil, fmt.Errorf("agent %s: %w", as.ID, err)
			}
		}
		rng := mathx.NewSplitMix64(mathx.Hash3(sc.Seed, i, 0, 0))
		if err := sys.AddAgent(a, cfg, rng); err != nil {
			return nil, fmt.Errorf("agent %s: %w", as.ID, err)
		}
	}

	return &Run{
		Scenario: sc,
		RunID:    opts.RunID,
		World:    w,
		System:   sys,
		log:      opts.Logger,
	}, nil
}

// Step applies the edits scheduled for the coming tick, then advances the
// system by one tick.
func (r *Run) Step() error {
	next := r.System.CurrentTick() + 1
	edits := r.Scenario.Edits
	for r.nextEdit < len(edits) && edits[r.nextEdit].Tick <= next {
		if err := r.apply(edits[r.nextEdit]); err != nil {
			return fmt.Errorf("tick %d: %w", next, err)
		}
		r.nextEdit++
	}
	r.System.Step()
	return nil
}

// RunTo steps until the system reaches tick or an edit fails.
func (r *Run) RunTo(tick uint64) error {
	for r.System.CurrentTick() < tick {
		if err := r.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Run) Info() protocol.RunInfo {
	return protocol.RunInfo{
		Type:            protocol.TypeRunInfo,
		ProtocolVersion: protocol.Version,
		RunID:           r.RunID,
		Scenario:        r.Scenario.Name,
		Seed:            r.Scenario.Seed,
		Ticks:           r.Scenario.Ticks,
		Agents:          r.System.AgentIDs(),
		WorldDigest:     r.World.Digest(),
	}
}

func (r *Run) apply(e EditSpec) error {
	switch {
	case e.Fill != nil:
		applyFill(r.World, *e.Fill)
		if r.log != nil {
			r.log.Printf("edit tick=%d fill %v..%v %s", e.Tick, e.Fill.From, e.Fill.To, e.Fill.Block)
		}
	case e.Destination != nil:
		a := r.System.Agent(e.Agent)
		if err := runtime.SetDestination(r.World, a, gridPos(*e.Destination)); err != nil {
			return fmt.Errorf("agent %s: %w", e.Agent, err)
		}
	case e.ClearDestination:
		a := r.System.Agent(e.Agent)
		if a == nil {
			return fmt.Errorf("agent %s: %w", e.Agent, runtime.ErrNoAgent)
		}
		runtime.ClearDestination(a)
	}
	return nil
}

func applyFill(w *store.ChunkStore, f FillSpec) {
	b, _ := BlockID(f.Block)
	w.Fill(f.From[0], f.From[1], f.From[2], f.To[0], f.To[1], f.To[2], b)
}

func gridPos(v [3]int) stuck.GridPos {
	return stuck.GridPos{X: v[0], Y: v[1], Z: v[2]}
}
