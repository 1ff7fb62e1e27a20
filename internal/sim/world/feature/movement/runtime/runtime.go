package runtime

import (
	"voxelnav.ai/internal/nav/stuck"
	"voxelnav.ai/internal/sim/world/logic/movement"
)

// WorldEnv is the block access the runtime needs. *store.ChunkStore satisfies it.
type WorldEnv interface {
	InBounds(x, y, z int) bool
	IsEmpty(x, y, z int) bool
	Clear(x, y, z int) bool
}

type Agent struct {
	ID   string
	Type string

	Pos   stuck.Vec3
	HP    float64
	MaxHP float64

	Destination *stuck.GridPos
	Path        *Path

	// Unsupervised agents opt out of stuck handling.
	Unsupervised bool
	TicksPerNode int

	moveCooldown int
	lastPlanTick uint64
	planned      bool
}

func (a *Agent) Cell() stuck.GridPos { return a.Pos.Cell() }

// Path is a planned route. Node 0 is the cell the agent started from;
// Active is the index of the node the agent is walking toward.
type Path struct {
	Nodes  []stuck.GridPos
	Active int
	Done   bool
}

func NewPath(nodes []stuck.GridPos) *Path {
	p := &Path{Nodes: nodes, Active: 1}
	if len(nodes) <= 1 {
		p.Active = len(nodes)
		p.Done = true
	}
	return p
}

func (p *Path) IsDone() bool               { return p.Done }
func (p *Path) ActiveNodeIndex() int       { return p.Active }
func (p *Path) NodeCount() int             { return len(p.Nodes) }
func (p *Path) NodeAt(i int) stuck.GridPos { return p.Nodes[i] }

func (p *Path) TargetPos() stuck.GridPos {
	if len(p.Nodes) == 0 {
		return stuck.GridPos{}
	}
	return p.Nodes[len(p.Nodes)-1]
}

// Walkable reports whether a two-cell-tall agent can stand at p.
func Walkable(w WorldEnv, p stuck.GridPos) bool {
	if !w.InBounds(p.X, p.Y, p.Z) {
		return false
	}
	return w.IsEmpty(p.X, p.Y, p.Z) && w.IsEmpty(p.X, p.Y+1, p.Z) && !w.IsEmpty(p.X, p.Y-1, p.Z)
}

func PlanPath(w WorldEnv, from, to stuck.GridPos, maxVisited int) (*Path, bool) {
	nodes, ok := movement.PlanPath(
		movement.Pos{X: from.X, Y: from.Y, Z: from.Z},
		movement.Pos{X: to.X, Y: to.Y, Z: to.Z},
		maxVisited,
		func(p movement.Pos) bool {
			return Walkable(w, stuck.GridPos{X: p.X, Y: p.Y, Z: p.Z})
		},
	)
	if !ok {
		return nil, false
	}
	out := make([]stuck.GridPos, len(nodes))
	for i, n := range nodes {
		out[i] = stuck.GridPos{X: n.X, Y: n.Y, Z: n.Z}
	}
	return NewPath(out), true
}
