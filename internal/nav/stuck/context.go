package stuck

// DamageCauseStuck is the cause attached to full-stuck damage.
const DamageCauseStuck = "stuck"

// PathHandle is a read-only view of the agent's current path.
type PathHandle interface {
	IsDone() bool
	ActiveNodeIndex() int
	NodeCount() int
	NodeAt(i int) GridPos
	TargetPos() GridPos
}

// NavigationContext is everything the engine needs from the supervised agent
// and its world. Mutations are expected to take effect immediately.
type NavigationContext interface {
	DesiredDestination() (GridPos, bool)
	// CurrentPath returns nil when the agent has no path.
	CurrentPath() PathHandle
	AgentPosition() Vec3
	AgentMaxHealth() float64
	CanBeSupervisedForStuck() bool

	StopNavigation()
	TeleportAgentTo(pos Vec3)
	DamageAgent(amount float64, cause string)

	IsCellEmpty(pos GridPos) bool
	ClearCell(pos GridPos)
}

// Rand is the randomness the ladder draws from. *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}
