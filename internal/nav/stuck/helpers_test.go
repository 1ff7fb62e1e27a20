package stuck

type fakePath struct {
	nodes  []GridPos
	active int
	done   bool
}

func straightPath(from GridPos, n int) *fakePath {
	nodes := make([]GridPos, n)
	for i := range nodes {
		nodes[i] = GridPos{X: from.X + i, Y: from.Y, Z: from.Z}
	}
	return &fakePath{nodes: nodes}
}

func (p *fakePath) IsDone() bool         { return p.done }
func (p *fakePath) ActiveNodeIndex() int { return p.active }
func (p *fakePath) NodeCount() int       { return len(p.nodes) }
func (p *fakePath) NodeAt(i int) GridPos { return p.nodes[i] }

func (p *fakePath) TargetPos() GridPos {
	if len(p.nodes) == 0 {
		return GridPos{}
	}
	return p.nodes[len(p.nodes)-1]
}

type damageCall struct {
	amount float64
	cause  string
}

type fakeNav struct {
	dest      *GridPos
	path      *fakePath
	pos       Vec3
	maxHealth float64
	optOut    bool

	// keepPathOnStop leaves the path in place when navigation is stopped.
	keepPathOnStop bool

	solid map[GridPos]bool

	stops     int
	teleports []Vec3
	damage    []damageCall
	cleared   []GridPos
}

func newFakeNav(pos Vec3, dest GridPos) *fakeNav {
	return &fakeNav{
		dest:      &dest,
		pos:       pos,
		maxHealth: 20,
		solid:     map[GridPos]bool{},
	}
}

func (n *fakeNav) DesiredDestination() (GridPos, bool) {
	if n.dest == nil {
		return GridPos{}, false
	}
	return *n.dest, true
}

func (n *fakeNav) CurrentPath() PathHandle {
	if n.path == nil {
		return nil
	}
	return n.path
}

func (n *fakeNav) AgentPosition() Vec3           { return n.pos }
func (n *fakeNav) AgentMaxHealth() float64       { return n.maxHealth }
func (n *fakeNav) CanBeSupervisedForStuck() bool { return !n.optOut }

func (n *fakeNav) StopNavigation() {
	n.stops++
	if !n.keepPathOnStop {
		n.path = nil
	}
}

func (n *fakeNav) TeleportAgentTo(pos Vec3) {
	n.teleports = append(n.teleports, pos)
	n.pos = pos
}

func (n *fakeNav) DamageAgent(amount float64, cause string) {
	n.damage = append(n.damage, damageCall{amount: amount, cause: cause})
}

func (n *fakeNav) IsCellEmpty(pos GridPos) bool { return !n.solid[pos] }

func (n *fakeNav) ClearCell(pos GridPos) {
	delete(n.solid, pos)
	n.cleared = append(n.cleared, pos)
}

func (n *fakeNav) mutations() int {
	return n.stops + len(n.teleports) + len(n.damage) + len(n.cleared)
}

// seqRand replays vals and then repeats the last one.
type seqRand struct {
	vals []int
	i    int
}

func (r *seqRand) Intn(n int) int {
	if len(r.vals) == 0 {
		return 0
	}
	v := r.vals[len(r.vals)-1]
	if r.i < len(r.vals) {
		v = r.vals[r.i]
		r.i++
	}
	return v % n
}

func neverRegress() Rand  { return &seqRand{vals: []int{1}} }
func alwaysRegress() Rand { return &seqRand{vals: []int{0}} }

type eventLog struct {
	events []Event
}

func (l *eventLog) OnStuckEvent(ev Event) { l.events = append(l.events, ev) }

func (l *eventLog) count(kind EventKind) int {
	n := 0
	for _, ev := range l.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}
