package scenario

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cmfunderburk/vmt-dev-sub000/internal/economy"
)

const twoAgentYAML = `
name: two_agent
grid_size: 8
agents: 2
positions: [[0, 0], [5, 5]]
initial_inventories:
  A: [10, 0]
  B: [0, 10]
  M: 0
utilities:
  mix:
    - type: linear
      weight: 1.0
      params: {vA: 1, vB: 1}
params:
  vision_radius: 10
  interaction_radius: 1
  move_budget_per_tick: 1
  dA_max: 5
  spread: 0.0
`

func TestDefault_Validates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default scenario invalid: %v", err)
	}
}

func TestParse_TwoAgent(t *testing.T) {
	s, err := Parse([]byte(twoAgentYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.GridSize != 8 || s.Agents != 2 || len(s.Positions) != 2 {
		t.Fatalf("unexpected scenario: %+v", s)
	}
	if !s.InitialInventories.A.IsList() || s.InitialInventories.A.Values[0] != 10 {
		t.Fatalf("A distribution not decoded as list: %+v", s.InitialInventories.A)
	}
	if got := s.InitialInventories.M.Sample(nil, 1); got != 0 {
		t.Fatalf("fixed M = %d", got)
	}
	if s.Params.VisionRadius != 10 || s.Params.DAMax != 5 {
		t.Fatalf("params not decoded: %+v", s.Params)
	}
	// Untouched params keep their defaults.
	if s.Params.Beta != DefaultParams().Beta || s.Params.ExchangeRegime != economy.RegimeBarterOnly {
		t.Fatalf("defaults lost: %+v", s.Params)
	}
	if len(s.Utilities.Mix) != 1 || s.Utilities.Mix[0].Type != "linear" {
		t.Fatalf("utility mix not replaced: %+v", s.Utilities.Mix)
	}
}

func TestParse_Rejects(t *testing.T) {
	cases := []struct {
		name  string
		yaml  string
		field string
	}{
		{
			name:  "unknown param",
			yaml:  "params:\n  visoin_radius: 3\n",
			field: "params",
		},
		{
			name:  "weights do not sum to one",
			yaml:  "utilities:\n  mix:\n    - {type: ces, weight: 0.5, params: {rho: 0.5, wA: 1, wB: 1}}\n    - {type: linear, weight: 0.2, params: {vA: 1, vB: 1}}\n",
			field: "utilities.mix",
		},
		{
			name:  "subsistence above endowment",
			yaml:  "initial_inventories:\n  A: {uniform_int: [1, 5]}\n  B: 10\nutilities:\n  mix:\n    - {type: stone_geary, weight: 1, params: {alpha_A: 0.5, alpha_B: 0.5, gamma_A: 2, gamma_B: 2}}\n",
			field: "utilities.mix[0]",
		},
		{
			name:  "list length mismatch",
			yaml:  "agents: 3\ninitial_inventories:\n  A: [1, 2]\n",
			field: "initial_inventories.A",
		},
		{
			name:  "duplicate position",
			yaml:  "agents: 2\npositions: [[1, 1], [1, 1]]\n",
			field: "positions[1]",
		},
		{
			name:  "bad regime",
			yaml:  "params:\n  exchange_regime: gift\n",
			field: "params/exchange_regime",
		},
		{
			name:  "beta out of range",
			yaml:  "params:\n  beta: 1.5\n",
			field: "params/beta",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil {
				t.Fatalf("expected error")
			}
			var ce *ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("want *ConfigurationError, got %T: %v", err, err)
			}
			if !strings.HasPrefix(ce.Field, tc.field) {
				t.Fatalf("field = %q, want prefix %q (%v)", ce.Field, tc.field, err)
			}
		})
	}
}

func TestParse_ModeSchedule(t *testing.T) {
	s, err := Parse([]byte("mode_schedule:\n  type: global_cycle\n  forage_ticks: 3\n  trade_ticks: 2\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.ModeSchedule == nil || s.ModeSchedule.StartMode != "forage" {
		t.Fatalf("start mode default not applied: %+v", s.ModeSchedule)
	}
}

func TestDistribution_Sample(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	u := Uniform(3, 5)
	for i := 0; i < 100; i++ {
		v := u.Sample(rng, i)
		if v < 3 || v > 5 {
			t.Fatalf("uniform sample %d out of range", v)
		}
	}
	if List(4, 9).Sample(rng, 1) != 9 || Fixed(2).Sample(rng, 0) != 2 {
		t.Fatalf("list/fixed sample wrong")
	}
	if List(4, 1, 9).Lowest() != 1 {
		t.Fatalf("lowest wrong")
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "two_agent.yaml")
	if err := os.WriteFile(path, []byte(twoAgentYAML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Name != "two_agent" {
		t.Fatalf("name=%q", s.Name)
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoad_ShippedScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "scenarios", "*.yaml"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(paths) == 0 {
		t.Fatalf("no shipped scenarios found")
	}
	for _, p := range paths {
		if _, err := Load(p); err != nil {
			t.Fatalf("%s: %v", p, err)
		}
	}
}

func TestValidateSchema_JSONTypes(t *testing.T) {
	if err := validateSchema([]byte(twoAgentYAML)); err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}
	if err := validateSchema(nil); err != nil {
		t.Fatalf("empty document rejected: %v", err)
	}
	err := validateSchema([]byte("params:\n  spread: wide\n"))
	var ce *ConfigurationError
	if !errors.As(err, &ce) || !strings.HasPrefix(ce.Field, "params/spread") {
		t.Fatalf("string spread: %v", err)
	}
}
