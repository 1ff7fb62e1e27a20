package runtime

import (
	"errors"

	"voxelnav.ai/internal/nav/stuck"
)

var (
	ErrNoAgent      = errors.New("agent not found")
	ErrOutOfBounds  = errors.New("destination out of bounds")
	ErrDuplicateID  = errors.New("duplicate agent id")
	ErrInvalidAgent = errors.New("invalid agent")
)

// SetDestination points the agent at a new goal and drops its current path.
func SetDestination(w WorldEnv, a *Agent, dest stuck.GridPos) error {
	if a == nil {
		return ErrNoAgent
	}
	if !w.InBounds(dest.X, dest.Y, dest.Z) {
		return ErrOutOfBounds
	}
	d := dest
	a.Destination = &d
	a.Path = nil
	a.planned = false
	return nil
}

func ClearDestination(a *Agent) {
	if a == nil {
		return
	}
	a.Destination = nil
	a.Path = nil
}
