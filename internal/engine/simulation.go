// Package engine runs the tick loop: perception, decision, movement, trade,
// forage, regeneration and housekeeping, in that order, every tick.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/cmfunderburk/vmt-dev-sub000/internal/agents"
	"github.com/cmfunderburk/vmt-dev-sub000/internal/economy"
	"github.com/cmfunderburk/vmt-dev-sub000/internal/scenario"
	"github.com/cmfunderburk/vmt-dev-sub000/internal/world"
)

// Simulation is the state of one run. It is not safe for concurrent use;
// readers outside the tick loop consume TickReports instead.
type Simulation struct {
	Scenario scenario.Scenario
	Params   scenario.Params
	Seed     int64
	RunID    string // Stamped on every TickReport; empty when not persisted

	Tick uint64 // Last completed tick; 0 before the first Step
	Mode Mode

	Grid       *world.Grid
	Index      *world.SpatialIndex
	Agents     []*agents.Agent // Sorted by id; Agents[i].ID == i
	AgentIndex map[agents.AgentID]*agents.Agent
	Claims     map[world.Position]agents.AgentID // Resource cell → claiming agent

	rng    *rand.Rand
	pairs  []economy.PairType
	report *TickReport
	log    *slog.Logger
}

// New builds a simulation from a validated scenario and a seed. All
// randomness of the run comes from one generator seeded here: resources are
// seeded first, then agents.
func New(cfg scenario.Scenario, seed int64) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		Scenario:   cfg,
		Params:     cfg.Params,
		Seed:       seed,
		Grid:       world.NewGrid(cfg.GridSize),
		Index:      world.NewSpatialIndex(cfg.BucketSize()),
		AgentIndex: make(map[agents.AgentID]*agents.Agent, cfg.Agents),
		Claims:     make(map[world.Position]agents.AgentID),
		rng:        rand.New(rand.NewSource(seed)),
		pairs:      cfg.Params.ExchangeRegime.AdmissiblePairs(),
		log:        slog.Default().With("component", "engine"),
	}

	rs := cfg.ResourceSeed
	var stocked int
	if rs.Clustered {
		stocked = s.Grid.SeedClustered(world.ClusterConfig{
			Seed:    seed,
			Density: rs.Density,
			Amount:  cfg.Params.ResourceMaxAmount,
			Scale:   rs.NoiseScale,
		})
	} else {
		stocked = s.Grid.SeedResources(s.rng, rs.Density, cfg.Params.ResourceMaxAmount)
	}

	ag, err := agents.NewSpawner(s.rng).Spawn(cfg)
	if err != nil {
		return nil, fmt.Errorf("spawn agents: %w", err)
	}
	s.Agents = ag
	for _, a := range ag {
		s.AgentIndex[a.ID] = a
		s.Index.Insert(int(a.ID), a.Pos)
	}
	s.Mode = ModeAt(cfg.ModeSchedule, 1)

	s.log.Info("simulation created",
		"scenario", cfg.Name,
		"seed", seed,
		"grid", cfg.GridSize,
		"agents", len(ag),
		"resource_cells", stocked,
		"regime", cfg.Params.ExchangeRegime,
	)
	return s, nil
}

// SetLogger replaces the engine logger.
func (s *Simulation) SetLogger(l *slog.Logger) {
	if l != nil {
		s.log = l
	}
}

// Agent returns the agent with the given id, or nil.
func (s *Simulation) Agent(id agents.AgentID) *agents.Agent {
	return s.AgentIndex[id]
}

// Step advances the simulation by exactly one tick. The phase order never
// changes; the mode only decides whether trade and forage do any work.
// An *InvariantViolation stops the run.
func (s *Simulation) Step() (*TickReport, error) {
	s.Tick++
	s.report = &TickReport{RunID: s.RunID, Tick: s.Tick}

	if mode := ModeAt(s.Scenario.ModeSchedule, s.Tick); mode != s.Mode {
		s.changeMode(mode)
	}
	s.report.Mode = s.Mode

	views := s.perceive()
	s.decide(views)
	s.move()
	if s.Mode.AllowsTrade() {
		s.trade()
	}
	if s.Mode.AllowsForage() {
		s.forage()
	}
	s.report.Regrown = s.Grid.Regenerate(s.Tick, s.Params.ResourceGrowthRate, s.Params.ResourceRegenCooldown)
	if err := s.housekeeping(); err != nil {
		return nil, err
	}

	r := s.finishReport()
	s.report = nil
	return r, nil
}

// Run steps until maxTicks ticks have completed in total, ctx is cancelled
// or a step fails. Cancellation is only observed between ticks.
func (s *Simulation) Run(ctx context.Context, maxTicks uint64, sink Sink) error {
	for s.Tick < maxTicks {
		if err := ctx.Err(); err != nil {
			return err
		}
		r, err := s.Step()
		if err != nil {
			return err
		}
		if sink != nil {
			sink.Record(r)
		}
	}
	return nil
}

// changeMode clears every pairing and forage commitment without cooldowns.
func (s *Simulation) changeMode(next Mode) {
	s.log.Info("mode change", "tick", s.Tick, "from", s.Mode, "to", next)
	for _, a := range s.Agents {
		if p, ok := a.Partner(); ok && a.ID < p {
			s.recordPairing(EventUnpair, a.ID, p, ReasonModeChange)
		}
	}
	for _, a := range s.Agents {
		a.Unpair()
		a.ClearForage()
	}
	clear(s.Claims)
	s.Mode = next
}

func (s *Simulation) recordPairing(kind string, a, b agents.AgentID, reason string) {
	lo, hi := a, b
	if hi < lo {
		lo, hi = hi, lo
	}
	s.report.Pairings = append(s.report.Pairings, PairingEvent{
		Tick: s.Tick, Kind: kind, A: int(lo), B: int(hi), Reason: reason,
	})
}

func (s *Simulation) finishReport() *TickReport {
	r := s.report
	r.Agents = make([]AgentSnapshot, len(s.Agents))
	for i, a := range s.Agents {
		r.Agents[i] = snapshotAgent(a)
	}
	r.Resources = snapshotResources(s.Grid)
	r.Digest = s.StateDigest()
	return r
}

// Totals returns the sum of each good held by agents.
func (s *Simulation) Totals() economy.Inventory {
	var total economy.Inventory
	for _, a := range s.Agents {
		total = total.Plus(a.Inventory)
	}
	return total
}
