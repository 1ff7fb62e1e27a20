package stuck

import (
	"time"

	"voxelnav.ai/internal/sim/world/logic/mathx"
)

const (
	// ArrivalDistance is the distance at which the agent counts as arrived.
	ArrivalDistance = 3.0
	// MaxGlobalTimeout caps the full-stuck timeout regardless of distance.
	MaxGlobalTimeout = 6000
	// MinTimeoutDistance is the distance floor used when scaling the timeout.
	MinTimeoutDistance = 10.0

	MaxStuckLevel = 8

	softResetDelay = 600
	skipAheadDelay = 300

	healthyStreak = 5
	// Squared distance within which a path target counts as leading to the destination.
	pathTargetMatchDistSq = 25
)

// State is the per-agent bookkeeping of an engine.
type State struct {
	StuckLevel           int
	GlobalTimeout        int
	ActionDelayRemaining int
	PreviousDestination  *GridPos
	HadPathLastStep      bool
	LastActiveNodeIndex  int
	ProgressStreak       int
}

type Options struct {
	// Rand drives the level regression roll. Defaults to a time-seeded SplitMix64.
	Rand     Rand
	Observer Observer
}

// Engine supervises a single agent. It is not safe for concurrent use; call
// CheckStuck once per simulation step from the owning step loop.
type Engine struct {
	cfg      Config
	rng      Rand
	obs      Observer
	attached bool

	st State
}

func New(cfg Config, opts Options) *Engine {
	rng := opts.Rand
	if rng == nil {
		rng = mathx.NewSplitMix64(uint64(time.Now().UnixNano()))
	}
	e := &Engine{
		cfg:      cfg,
		rng:      rng,
		obs:      opts.Observer,
		attached: true,
	}
	e.resetGlobal()
	return e
}

func (e *Engine) Config() Config { return e.cfg }

// State returns a copy of the current state.
func (e *Engine) State() State {
	st := e.st
	if st.PreviousDestination != nil {
		p := *st.PreviousDestination
		st.PreviousDestination = &p
	}
	return st
}

// Attach starts supervision from a fresh state.
func (e *Engine) Attach() {
	e.attached = true
	e.resetGlobal()
}

// Detach stops supervision and discards the state. CheckStuck is a no-op until
// the next Attach.
func (e *Engine) Detach() {
	e.attached = false
	e.resetGlobal()
}

func (e *Engine) Attached() bool { return e.attached }

func (e *Engine) resetGlobal() {
	e.st.GlobalTimeout = 0
	e.st.PreviousDestination = nil
	e.resetStuck()
}

func (e *Engine) resetStuck() {
	e.st.ActionDelayRemaining = e.cfg.BaseActionDelay
	e.st.LastActiveNodeIndex = -1
	e.st.ProgressStreak = 0
	e.st.StuckLevel = 0
}

// TimeoutCap is the global timeout after which full-stuck recovery fires for
// an agent at the given distance from its destination.
func (e *Engine) TimeoutCap(distance float64) float64 {
	return timeoutCap(e.cfg.TicksPerGridUnit, distance)
}

func timeoutCap(ticksPerGridUnit int, distance float64) float64 {
	scaled := float64(ticksPerGridUnit) * max(MinTimeoutDistance, distance)
	return min(float64(MaxGlobalTimeout), scaled)
}

func (e *Engine) emit(ev Event) {
	if e.obs == nil {
		return
	}
	ev.Level = e.st.StuckLevel
	ev.GlobalTimeout = e.st.GlobalTimeout
	if ev.Destination == nil && e.st.PreviousDestination != nil {
		d := *e.st.PreviousDestination
		ev.Destination = &d
	}
	e.obs.OnStuckEvent(ev)
}
