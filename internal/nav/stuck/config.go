package stuck

import (
	"errors"
	"fmt"
)

const (
	DefaultTicksPerGridUnit        = 200
	DefaultBaseActionDelay         = 200
	DefaultFullStuckDamageFraction = 0.2
)

// Config holds the tunables of one agent type. Build it with NewBuilder or
// DefaultConfig; the engine copies it and never mutates it.
type Config struct {
	TeleportSkipSteps       int
	TicksPerGridUnit        int
	BaseActionDelay         int
	FullStuckBreakRange     int
	FullStuckDamageFraction float64
	TeleportOnFullStuck     bool
	DamageOnFullStuck       bool
}

func DefaultConfig() Config {
	return Config{
		TicksPerGridUnit:        DefaultTicksPerGridUnit,
		BaseActionDelay:         DefaultBaseActionDelay,
		FullStuckDamageFraction: DefaultFullStuckDamageFraction,
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.TeleportSkipSteps < 0 {
		errs = append(errs, fmt.Errorf("teleport_skip_steps must be >= 0 (got %d)", c.TeleportSkipSteps))
	}
	if c.TicksPerGridUnit <= 0 {
		errs = append(errs, fmt.Errorf("ticks_per_grid_unit must be > 0 (got %d)", c.TicksPerGridUnit))
	}
	if c.BaseActionDelay < 0 {
		errs = append(errs, fmt.Errorf("base_action_delay must be >= 0 (got %d)", c.BaseActionDelay))
	}
	if c.FullStuckBreakRange < 0 {
		errs = append(errs, fmt.Errorf("full_stuck_break_range must be >= 0 (got %d)", c.FullStuckBreakRange))
	}
	if c.FullStuckDamageFraction < 0 || c.FullStuckDamageFraction > 1 {
		errs = append(errs, fmt.Errorf("full_stuck_damage_fraction must be in [0,1] (got %g)", c.FullStuckDamageFraction))
	}
	return errors.Join(errs...)
}

type Builder struct {
	cfg Config
}

func NewBuilder() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

// WithTeleportSkipSteps enables skipping ahead n nodes along the path at stuck level 2.
func (b *Builder) WithTeleportSkipSteps(n int) *Builder {
	b.cfg.TeleportSkipSteps = n
	return b
}

func (b *Builder) WithTicksPerGridUnit(ticks int) *Builder {
	b.cfg.TicksPerGridUnit = ticks
	return b
}

func (b *Builder) WithBaseActionDelay(ticks int) *Builder {
	b.cfg.BaseActionDelay = ticks
	return b
}

func (b *Builder) WithFullStuckBreakRange(cells int) *Builder {
	b.cfg.FullStuckBreakRange = cells
	return b
}

func (b *Builder) WithTeleportOnFullStuck() *Builder {
	b.cfg.TeleportOnFullStuck = true
	return b
}

func (b *Builder) WithDamageOnFullStuck(fraction float64) *Builder {
	b.cfg.FullStuckDamageFraction = fraction
	b.cfg.DamageOnFullStuck = true
	return b
}

// Build returns the finished config with out-of-range values clamped.
func (b *Builder) Build() Config {
	c := b.cfg
	if c.TeleportSkipSteps < 0 {
		c.TeleportSkipSteps = 0
	}
	if c.TicksPerGridUnit <= 0 {
		c.TicksPerGridUnit = DefaultTicksPerGridUnit
	}
	if c.BaseActionDelay < 0 {
		c.BaseActionDelay = 0
	}
	if c.FullStuckBreakRange < 0 {
		c.FullStuckBreakRange = 0
	}
	if c.FullStuckDamageFraction < 0 {
		c.FullStuckDamageFraction = 0
	}
	if c.FullStuckDamageFraction > 1 {
		c.FullStuckDamageFraction = 1
	}
	return c
}
