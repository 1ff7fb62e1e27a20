package scenario

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"voxelnav.ai/internal/sim/world/terrain/store"
)

// Scenario is a scripted navigation run: a generated world, hand-placed
// blocks, agents with goals and timed edits that move goals or walls.
type Scenario struct {
	Name  string `yaml:"name"`
	Seed  int64  `yaml:"seed"`
	Ticks uint64 `yaml:"ticks"`

	World  WorldSpec   `yaml:"world"`
	Fills  []FillSpec  `yaml:"fills,omitempty"`
	Agents []AgentSpec `yaml:"agents"`
	Edits  []EditSpec  `yaml:"edits,omitempty"`
}

type WorldSpec struct {
	BoundaryR        int `yaml:"boundary_r"`
	MinY             int `yaml:"min_y"`
	MaxY             int `yaml:"max_y"`
	GroundY          int `yaml:"ground_y"`
	SpawnClearRadius int `yaml:"spawn_clear_radius"`
	ObstaclePermille int `yaml:"obstacle_permille"`
}

// FillSpec sets every cell of the inclusive box From..To to Block.
type FillSpec struct {
	From  [3]int `yaml:"from"`
	To    [3]int `yaml:"to"`
	Block string `yaml:"block"`
}

type AgentSpec struct {
	ID           string  `yaml:"id"`
	Type         string  `yaml:"type"`
	Pos          [3]int  `yaml:"pos"`
	Destination  *[3]int `yaml:"destination,omitempty"`
	MaxHP        float64 `yaml:"max_hp"`
	TicksPerNode int     `yaml:"ticks_per_node"`
	Unsupervised bool    `yaml:"unsupervised"`
}

// EditSpec runs before the simulation step of its tick. Exactly one of
// Fill, Destination or ClearDestination applies.
type EditSpec struct {
	Tick             uint64    `yaml:"tick"`
	Fill             *FillSpec `yaml:"fill,omitempty"`
	Agent            string    `yaml:"agent,omitempty"`
	Destination      *[3]int   `yaml:"destination,omitempty"`
	ClearDestination bool      `yaml:"clear_destination,omitempty"`
}

var blockNames = map[string]uint16{
	"air":   store.BlockAir,
	"stone": store.BlockStone,
	"dirt":  store.BlockDirt,
	"log":   store.BlockLog,
}

func BlockID(name string) (uint16, bool) {
	b, ok := blockNames[strings.ToLower(strings.TrimSpace(name))]
	return b, ok
}

func Load(path string) (Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	sc, err := Parse(b)
	if err != nil {
		return sc, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

func Parse(b []byte) (Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(b, &sc); err != nil {
		return sc, err
	}
	sc.Normalize()
	if err := sc.Validate(); err != nil {
		return sc, err
	}
	return sc, nil
}

func (sc *Scenario) Normalize() {
	if sc.Name == "" {
		sc.Name = "unnamed"
	}
	if sc.Ticks == 0 {
		sc.Ticks = 1000
	}
	if sc.World.MaxY <= sc.World.MinY {
		sc.World.MinY = -8
		sc.World.MaxY = 32
	}
	for i := range sc.Agents {
		a := &sc.Agents[i]
		if a.Type == "" {
			a.Type = "default"
		}
		if a.MaxHP <= 0 {
			a.MaxHP = 20
		}
		if a.TicksPerNode <= 0 {
			a.TicksPerNode = 1
		}
	}
	sort.SliceStable(sc.Edits, func(i, j int) bool { return sc.Edits[i].Tick < sc.Edits[j].Tick })
}

func (sc Scenario) Validate() error {
	var errs []error
	if sc.World.BoundaryR < 0 {
		errs = append(errs, fmt.Errorf("world.boundary_r must be >= 0"))
	}
	if sc.World.GroundY <= sc.World.MinY || sc.World.GroundY >= sc.World.MaxY-1 {
		errs = append(errs, fmt.Errorf("world.ground_y must leave solid ground and headroom inside [min_y,max_y)"))
	}
	if sc.World.ObstaclePermille < 0 || sc.World.ObstaclePermille > 1000 {
		errs = append(errs, fmt.Errorf("world.obstacle_permille must be in [0,1000]"))
	}
	for i, f := range sc.Fills {
		if _, ok := BlockID(f.Block); !ok {
			errs = append(errs, fmt.Errorf("fills[%d]: unknown block %q", i, f.Block))
		}
	}
	if len(sc.Agents) == 0 {
		errs = append(errs, fmt.Errorf("agents: at least one agent is required"))
	}
	seen := map[string]bool{}
	for i, a := range sc.Agents {
		if strings.TrimSpace(a.ID) == "" {
			errs = append(errs, fmt.Errorf("agents[%d]: missing id", i))
			continue
		}
		if seen[a.ID] {
			errs = append(errs, fmt.Errorf("agents[%d]: duplicate id %q", i, a.ID))
		}
		seen[a.ID] = true
	}
	for i, e := range sc.Edits {
		if e.Tick == 0 {
			errs = append(errs, fmt.Errorf("edits[%d]: tick must be >= 1", i))
		}
		n := 0
		if e.Fill != nil {
			n++
			if _, ok := BlockID(e.Fill.Block); !ok {
				errs = append(errs, fmt.Errorf("edits[%d]: unknown block %q", i, e.Fill.Block))
			}
		}
		if e.Destination != nil {
			n++
		}
		if e.ClearDestination {
			n++
		}
		if n != 1 {
			errs = append(errs, fmt.Errorf("edits[%d]: exactly one of fill, destination, clear_destination is required", i))
		}
		if (e.Destination != nil || e.ClearDestination) && !seen[e.Agent] {
			errs = append(errs, fmt.Errorf("edits[%d]: unknown agent %q", i, e.Agent))
		}
	}
	return errors.Join(errs...)
}
