package runtime

import (
	"fmt"
	"log"
	"sort"

	"voxelnav.ai/internal/nav/stuck"
	"voxelnav.ai/internal/protocol"
)

// EventSink receives every stuck event the system produces.
type EventSink interface {
	WriteStuckEvent(ev protocol.StuckEvent) error
}

type SystemConfig struct {
	RunID            string
	ReplanEveryTicks int
	MaxPathVisited   int
	Logger           *log.Logger
	Sink             EventSink
}

type entry struct {
	agent  *Agent
	nav    *Nav
	engine *stuck.Engine
}

// System advances agents along their paths and runs one stuck engine per
// agent. It is driven from a single step loop and is not safe for
// concurrent use.
type System struct {
	cfg   SystemConfig
	world WorldEnv

	tick    uint64
	entries []*entry
	byID    map[string]*entry
}

func NewSystem(w WorldEnv, cfg SystemConfig) *System {
	if cfg.ReplanEveryTicks <= 0 {
		cfg.ReplanEveryTicks = 20
	}
	if cfg.MaxPathVisited <= 0 {
		cfg.MaxPathVisited = 4096
	}
	return &System{
		cfg:   cfg,
		world: w,
		byID:  map[string]*entry{},
	}
}

func (s *System) CurrentTick() uint64 { return s.tick }

// AddAgent attaches a fresh engine built from cfg to the agent.
func (s *System) AddAgent(a *Agent, cfg stuck.Config, rng stuck.Rand) error {
	if a == nil || a.ID == "" {
		return ErrInvalidAgent
	}
	if _, ok := s.byID[a.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, a.ID)
	}
	if a.TicksPerNode <= 0 {
		a.TicksPerNode = 1
	}
	e := &entry{
		agent: a,
		nav:   &Nav{Agent: a, World: s.world},
	}
	e.engine = stuck.New(cfg, stuck.Options{
		Rand: rng,
		Observer: stuck.ObserverFunc(func(ev stuck.Event) {
			s.publish(a, ev)
		}),
	})
	s.byID[a.ID] = e
	s.entries = append(s.entries, e)
	sort.Slice(s.entries, func(i, j int) bool { return s.entries[i].agent.ID < s.entries[j].agent.ID })
	return nil
}

// RemoveAgent detaches the agent's engine, discarding its state.
func (s *System) RemoveAgent(id string) bool {
	e, ok := s.byID[id]
	if !ok {
		return false
	}
	e.engine.Detach()
	delete(s.byID, id)
	for i, it := range s.entries {
		if it == e {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	return true
}

func (s *System) Agent(id string) *Agent {
	if e, ok := s.byID[id]; ok {
		return e.agent
	}
	return nil
}

func (s *System) Engine(id string) *stuck.Engine {
	if e, ok := s.byID[id]; ok {
		return e.engine
	}
	return nil
}

func (s *System) AgentIDs() []string {
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.agent.ID)
	}
	return out
}

// Step runs one simulation tick: movement first, then stuck supervision.
func (s *System) Step() {
	s.tick++
	for _, e := range s.entries {
		s.move(e.agent)
	}
	for _, e := range s.entries {
		e.engine.CheckStuck(e.nav)
	}
}

func (s *System) move(a *Agent) {
	if a.Destination == nil {
		a.Path = nil
		return
	}
	dest := *a.Destination
	if a.Pos.DistanceTo(dest.Vec()) < stuck.ArrivalDistance {
		return
	}

	if a.Path == nil || a.Path.Done {
		if a.planned && s.tick-a.lastPlanTick < uint64(s.cfg.ReplanEveryTicks) {
			return
		}
		a.planned = true
		a.lastPlanTick = s.tick
		p, ok := PlanPath(s.world, a.Cell(), dest, s.cfg.MaxPathVisited)
		if !ok {
			a.Path = nil
			return
		}
		a.Path = p
		a.moveCooldown = a.TicksPerNode
		return
	}

	if a.moveCooldown > 1 {
		a.moveCooldown--
		return
	}
	a.moveCooldown = a.TicksPerNode

	next := a.Path.Nodes[a.Path.Active]
	if !Walkable(s.world, next) {
		// Blocked since planning; wait for the stuck engine to react.
		return
	}
	a.Pos = next.Center()
	a.Path.Active++
	if a.Path.Active >= len(a.Path.Nodes) {
		a.Path.Done = true
	}
}

func (s *System) publish(a *Agent, ev stuck.Event) {
	out := ToProtocol(s.cfg.RunID, s.tick, a, ev)
	if s.cfg.Logger != nil {
		s.cfg.Logger.Printf("tick=%d agent=%s kind=%s level=%d timeout=%d", out.Tick, out.AgentID, out.Kind, out.Level, out.GlobalTimeout)
	}
	if s.cfg.Sink == nil {
		return
	}
	if err := s.cfg.Sink.WriteStuckEvent(out); err != nil && s.cfg.Logger != nil {
		s.cfg.Logger.Printf("write stuck event: %v", err)
	}
}

func ToProtocol(runID string, tick uint64, a *Agent, ev stuck.Event) protocol.StuckEvent {
	out := protocol.StuckEvent{
		Type:            protocol.TypeStuckEvent,
		ProtocolVersion: protocol.Version,
		RunID:           runID,
		Tick:            tick,
		AgentID:         a.ID,
		AgentType:       a.Type,
		Kind:            string(ev.Kind),
		Level:           ev.Level,
		GlobalTimeout:   ev.GlobalTimeout,
		Amount:          ev.Amount,
	}
	if ev.Destination != nil {
		out.Destination = &[3]int{ev.Destination.X, ev.Destination.Y, ev.Destination.Z}
	}
	if ev.Pos != nil {
		out.Pos = &[3]float64{ev.Pos.X, ev.Pos.Y, ev.Pos.Z}
	}
	if ev.Cell != nil {
		out.Cell = &[3]int{ev.Cell.X, ev.Cell.Y, ev.Cell.Z}
	}
	return out
}

// MultiSink fans events out to several sinks, returning the first error.
type MultiSink []EventSink

func (m MultiSink) WriteStuckEvent(ev protocol.StuckEvent) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.WriteStuckEvent(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
