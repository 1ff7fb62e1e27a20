package stuck

type EventKind string

const (
	EventSoftReset     EventKind = "SOFT_RESET"
	EventSkipAhead     EventKind = "SKIP_AHEAD"
	EventEscalate      EventKind = "ESCALATE"
	EventRegress       EventKind = "REGRESS"
	EventLadderCeiling EventKind = "LADDER_CEILING"
	EventHealthy       EventKind = "HEALTHY"
	EventFullStuck     EventKind = "FULL_STUCK"
	EventTeleportGoal  EventKind = "TELEPORT_GOAL"
	EventDamage        EventKind = "DAMAGE"
	EventClearCell     EventKind = "CLEAR_CELL"
)

// Event describes one intervention or state change made by the engine.
// Pos is set for teleports and cleared cells; Amount for damage.
type Event struct {
	Kind          EventKind
	Level         int
	GlobalTimeout int
	Destination   *GridPos
	Pos           *Vec3
	Cell          *GridPos
	Amount        float64
}

// Observer receives events synchronously from CheckStuck.
type Observer interface {
	OnStuckEvent(ev Event)
}

type ObserverFunc func(ev Event)

func (f ObserverFunc) OnStuckEvent(ev Event) { f(ev) }
