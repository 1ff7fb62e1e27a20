package runtime

import "voxelnav.ai/internal/nav/stuck"

// Nav exposes one agent and its world to the stuck engine.
type Nav struct {
	Agent *Agent
	World WorldEnv
}

var _ stuck.NavigationContext = (*Nav)(nil)

func (n *Nav) DesiredDestination() (stuck.GridPos, bool) {
	if n.Agent.Destination == nil {
		return stuck.GridPos{}, false
	}
	return *n.Agent.Destination, true
}

func (n *Nav) CurrentPath() stuck.PathHandle {
	if n.Agent.Path == nil {
		return nil
	}
	return n.Agent.Path
}

func (n *Nav) AgentPosition() stuck.Vec3     { return n.Agent.Pos }
func (n *Nav) AgentMaxHealth() float64       { return n.Agent.MaxHP }
func (n *Nav) CanBeSupervisedForStuck() bool { return !n.Agent.Unsupervised }

func (n *Nav) IsCellEmpty(p stuck.GridPos) bool {
	return n.World.IsEmpty(p.X, p.Y, p.Z)
}

// StopNavigation drops the path but keeps the destination.
func (n *Nav) StopNavigation() {
	n.Agent.Path = nil
}

// TeleportAgentTo moves the agent and drops its path, which no longer starts
// where the agent stands.
func (n *Nav) TeleportAgentTo(pos stuck.Vec3) {
	n.Agent.Pos = pos
	n.Agent.Path = nil
	n.Agent.moveCooldown = 0
}

func (n *Nav) DamageAgent(amount float64, cause string) {
	n.Agent.HP -= amount
	if n.Agent.HP < 0 {
		n.Agent.HP = 0
	}
}

func (n *Nav) ClearCell(p stuck.GridPos) {
	n.World.Clear(p.X, p.Y, p.Z)
}
