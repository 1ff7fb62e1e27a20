package tuning

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"voxelnav.ai/internal/nav/stuck"
)

const DefaultProfile = "default"

type Tuning struct {
	TickRateHz       int `yaml:"tick_rate_hz"`
	ReplanEveryTicks int `yaml:"replan_every_ticks"`
	MaxPathVisited   int `yaml:"max_path_visited"`

	Profiles map[string]StuckProfile `yaml:"profiles"`
}

// StuckProfile is the YAML form of stuck.Config. Unset fields keep the
// engine defaults.
type StuckProfile struct {
	TeleportSkipSteps       *int     `yaml:"teleport_skip_steps"`
	TicksPerGridUnit        *int     `yaml:"ticks_per_grid_unit"`
	BaseActionDelay         *int     `yaml:"base_action_delay"`
	FullStuckBreakRange     *int     `yaml:"full_stuck_break_range"`
	FullStuckDamageFraction *float64 `yaml:"full_stuck_damage_fraction"`
	TeleportOnFullStuck     bool     `yaml:"teleport_on_full_stuck"`
	DamageOnFullStuck       bool     `yaml:"damage_on_full_stuck"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:       20,
		ReplanEveryTicks: 20,
		MaxPathVisited:   4096,
		Profiles: map[string]StuckProfile{
			DefaultProfile: {},
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) Normalize() {
	d := Defaults()
	if t.TickRateHz <= 0 {
		t.TickRateHz = d.TickRateHz
	}
	if t.ReplanEveryTicks <= 0 {
		t.ReplanEveryTicks = d.ReplanEveryTicks
	}
	if t.MaxPathVisited <= 0 {
		t.MaxPathVisited = d.MaxPathVisited
	}
	if t.Profiles == nil {
		t.Profiles = map[string]StuckProfile{}
	}
	if _, ok := t.Profiles[DefaultProfile]; !ok {
		t.Profiles[DefaultProfile] = StuckProfile{}
	}
}

func (t Tuning) Validate() error {
	for _, name := range t.ProfileNames() {
		if err := t.Profiles[name].Config().Validate(); err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
	}
	return nil
}

func (t Tuning) ProfileNames() []string {
	names := make([]string, 0, len(t.Profiles))
	for name := range t.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StuckConfig returns the engine config for an agent type, falling back to
// the default profile for unknown types.
func (t Tuning) StuckConfig(agentType string) (stuck.Config, bool) {
	p, ok := t.Profiles[agentType]
	if !ok {
		return t.Profiles[DefaultProfile].Config(), false
	}
	return p.Config(), true
}

// Config converts the profile without clamping so Validate can report bad values.
func (p StuckProfile) Config() stuck.Config {
	c := stuck.DefaultConfig()
	if p.TeleportSkipSteps != nil {
		c.TeleportSkipSteps = *p.TeleportSkipSteps
	}
	if p.TicksPerGridUnit != nil {
		c.TicksPerGridUnit = *p.TicksPerGridUnit
	}
	if p.BaseActionDelay != nil {
		c.BaseActionDelay = *p.BaseActionDelay
	}
	if p.FullStuckBreakRange != nil {
		c.FullStuckBreakRange = *p.FullStuckBreakRange
	}
	if p.FullStuckDamageFraction != nil {
		c.FullStuckDamageFraction = *p.FullStuckDamageFraction
	}
	c.TeleportOnFullStuck = p.TeleportOnFullStuck
	c.DamageOnFullStuck = p.DamageOnFullStuck
	return c
}
