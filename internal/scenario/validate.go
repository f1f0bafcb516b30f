package scenario

import (
	"fmt"
	"math"
)

// Validate runs the semantic checks the schema cannot express. It returns
// the first problem found as a *ConfigurationError.
func (s Scenario) Validate() error {
	if s.GridSize < 1 {
		return fieldErr("grid_size", "must be >= 1, got %d", s.GridSize)
	}
	if s.Agents < 0 {
		return fieldErr("agents", "must be >= 0, got %d", s.Agents)
	}
	if len(s.Positions) == 0 && s.Agents > s.GridSize*s.GridSize {
		return fieldErr("agents", "%d agents do not fit on a %dx%d grid", s.Agents, s.GridSize, s.GridSize)
	}
	if err := s.validatePositions(); err != nil {
		return err
	}

	inv := s.InitialInventories
	for _, d := range []struct {
		field string
		dist  Distribution
	}{
		{"initial_inventories.A", inv.A},
		{"initial_inventories.B", inv.B},
		{"initial_inventories.M", inv.M},
	} {
		if err := d.dist.validate(d.field, s.Agents); err != nil {
			return err
		}
	}

	if err := s.validateUtilities(); err != nil {
		return err
	}
	if err := s.Params.validate(); err != nil {
		return err
	}

	if d := s.ResourceSeed.Density; d < 0 || d > 1 {
		return fieldErr("resource_seed.density", "must be in [0, 1], got %g", d)
	}
	if ms := s.ModeSchedule; ms != nil {
		if ms.Type != "global_cycle" {
			return fieldErr("mode_schedule.type", "unknown schedule %q", ms.Type)
		}
		if ms.ForageTicks < 1 || ms.TradeTicks < 1 {
			return fieldErr("mode_schedule", "forage_ticks and trade_ticks must be >= 1")
		}
		if ms.StartMode != "forage" && ms.StartMode != "trade" {
			return fieldErr("mode_schedule.start_mode", "must be forage or trade, got %q", ms.StartMode)
		}
	}
	return nil
}

func (s Scenario) validatePositions() error {
	if len(s.Positions) == 0 {
		return nil
	}
	if len(s.Positions) != s.Agents {
		return fieldErr("positions", "%d positions for %d agents", len(s.Positions), s.Agents)
	}
	seen := make(map[[2]int]int, len(s.Positions))
	for i, p := range s.Positions {
		field := fmt.Sprintf("positions[%d]", i)
		if p[0] < 0 || p[1] < 0 || p[0] >= s.GridSize || p[1] >= s.GridSize {
			return fieldErr(field, "(%d,%d) is off the %dx%d grid", p[0], p[1], s.GridSize, s.GridSize)
		}
		if j, dup := seen[p]; dup {
			return fieldErr(field, "same cell as positions[%d]", j)
		}
		seen[p] = i
	}
	return nil
}

func (s Scenario) validateUtilities() error {
	mix := s.Utilities.Mix
	if len(mix) == 0 {
		return fieldErr("utilities.mix", "at least one utility is required")
	}
	total := 0.0
	for i, m := range mix {
		field := fmt.Sprintf("utilities.mix[%d]", i)
		if m.Weight <= 0 {
			return fieldErr(field+".weight", "must be positive, got %g", m.Weight)
		}
		total += m.Weight
		u, err := m.Build()
		if err != nil {
			return &ConfigurationError{Field: field, Msg: "invalid utility", Err: err}
		}
		// Subsistence forms need every possible starting bundle above gamma.
		if err := u.ValidateEndowment(s.InitialInventories.A.Lowest(), s.InitialInventories.B.Lowest()); err != nil {
			return &ConfigurationError{Field: field, Msg: "initial inventories", Err: err}
		}
	}
	if math.Abs(total-1) > 1e-6 {
		return fieldErr("utilities.mix", "weights must sum to 1, got %g", total)
	}
	return nil
}

func (p Params) validate() error {
	switch {
	case p.Spread < 0 || p.Spread >= 1:
		return fieldErr("params.spread", "must be in [0, 1), got %g", p.Spread)
	case p.VisionRadius < 0:
		return fieldErr("params.vision_radius", "must be >= 0")
	case p.InteractionRadius < 0:
		return fieldErr("params.interaction_radius", "must be >= 0")
	case p.MoveBudgetPerTick < 0:
		return fieldErr("params.move_budget_per_tick", "must be >= 0")
	case p.DAMax < 1:
		return fieldErr("params.dA_max", "must be >= 1")
	case p.Epsilon <= 0:
		return fieldErr("params.epsilon", "must be positive")
	case p.Beta <= 0 || p.Beta > 1:
		return fieldErr("params.beta", "must be in (0, 1], got %g", p.Beta)
	case p.ForageRate < 1:
		return fieldErr("params.forage_rate", "must be >= 1")
	case p.ResourceGrowthRate < 0:
		return fieldErr("params.resource_growth_rate", "must be >= 0")
	case p.ResourceMaxAmount < 1:
		return fieldErr("params.resource_max_amount", "must be >= 1")
	case p.ResourceRegenCooldown < 0:
		return fieldErr("params.resource_regen_cooldown", "must be >= 0")
	case p.TradeCooldownTicks < 0:
		return fieldErr("params.trade_cooldown_ticks", "must be >= 0")
	case !p.ExchangeRegime.Valid():
		return fieldErr("params.exchange_regime", "unknown regime %q", p.ExchangeRegime)
	case p.LambdaMoney <= 0:
		return fieldErr("params.lambda_money", "must be positive")
	case p.PriceCandidates < 1:
		return fieldErr("params.price_candidates", "must be >= 1")
	}
	return nil
}
