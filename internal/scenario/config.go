// Package scenario loads and validates simulation scenarios. The engine only
// ever sees a Scenario that has passed Validate.
package scenario

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/cmfunderburk/vmt-dev-sub000/internal/economy"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "mem:///scenario.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add scenario schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Scenario is the full description of one run.
type Scenario struct {
	Name               string        `yaml:"name" json:"name"`
	GridSize           int           `yaml:"grid_size" json:"grid_size"`
	Agents             int           `yaml:"agents" json:"agents"`
	Positions          [][2]int      `yaml:"positions,omitempty" json:"positions,omitempty"`
	InitialInventories Inventories   `yaml:"initial_inventories" json:"initial_inventories"`
	Utilities          Utilities     `yaml:"utilities" json:"utilities"`
	ResourceSeed       ResourceSeed  `yaml:"resource_seed" json:"resource_seed"`
	ModeSchedule       *ModeSchedule `yaml:"mode_schedule,omitempty" json:"mode_schedule,omitempty"`
	Params             Params        `yaml:"params" json:"params"`
}

// Inventories holds the starting distribution of each good.
type Inventories struct {
	A Distribution `yaml:"A" json:"A"`
	B Distribution `yaml:"B" json:"B"`
	M Distribution `yaml:"M" json:"M"`
}

// Utilities is the weighted mix agents draw their utility function from.
type Utilities struct {
	Mix []UtilitySpec `yaml:"mix" json:"mix"`
}

// UtilitySpec is one entry of the mix.
type UtilitySpec struct {
	Type   string             `yaml:"type" json:"type"`
	Weight float64            `yaml:"weight" json:"weight"`
	Params map[string]float64 `yaml:"params" json:"params"`
}

// Build returns the utility described by the entry.
func (u UtilitySpec) Build() (economy.Utility, error) {
	return economy.NewUtility(u.Type, u.Params)
}

// ResourceSeed controls initial resource placement. Seeded amounts equal
// params.resource_max_amount.
type ResourceSeed struct {
	Density    float64 `yaml:"density" json:"density"`
	Clustered  bool    `yaml:"clustered" json:"clustered"`
	NoiseScale float64 `yaml:"noise_scale" json:"noise_scale"`
}

// ModeSchedule alternates global forage-only and trade-only phases.
type ModeSchedule struct {
	Type        string `yaml:"type" json:"type"`
	ForageTicks int    `yaml:"forage_ticks" json:"forage_ticks"`
	TradeTicks  int    `yaml:"trade_ticks" json:"trade_ticks"`
	StartMode   string `yaml:"start_mode" json:"start_mode"`
}

// Params are the named numeric parameters of the run.
type Params struct {
	Spread                 float64                `yaml:"spread" json:"spread"`
	VisionRadius           int                    `yaml:"vision_radius" json:"vision_radius"`
	InteractionRadius      int                    `yaml:"interaction_radius" json:"interaction_radius"`
	MoveBudgetPerTick      int                    `yaml:"move_budget_per_tick" json:"move_budget_per_tick"`
	DAMax                  int                    `yaml:"dA_max" json:"dA_max"`
	Epsilon                float64                `yaml:"epsilon" json:"epsilon"`
	Beta                   float64                `yaml:"beta" json:"beta"`
	ForageRate             int                    `yaml:"forage_rate" json:"forage_rate"`
	ResourceGrowthRate     int                    `yaml:"resource_growth_rate" json:"resource_growth_rate"`
	ResourceMaxAmount      int                    `yaml:"resource_max_amount" json:"resource_max_amount"`
	ResourceRegenCooldown  int                    `yaml:"resource_regen_cooldown" json:"resource_regen_cooldown"`
	TradeCooldownTicks     int                    `yaml:"trade_cooldown_ticks" json:"trade_cooldown_ticks"`
	EnforceSingleHarvester bool                   `yaml:"enforce_single_harvester" json:"enforce_single_harvester"`
	ExchangeRegime         economy.ExchangeRegime `yaml:"exchange_regime" json:"exchange_regime"`
	LambdaMoney            float64                `yaml:"lambda_money" json:"lambda_money"`
	PriceCandidates        int                    `yaml:"price_candidates" json:"price_candidates"`
	StrictIntegrity        bool                   `yaml:"strict_integrity" json:"strict_integrity"`
}

// DefaultParams returns the parameter defaults applied before a scenario
// file is decoded.
func DefaultParams() Params {
	return Params{
		Spread:                 0,
		VisionRadius:           5,
		InteractionRadius:      1,
		MoveBudgetPerTick:      1,
		DAMax:                  5,
		Epsilon:                1e-12,
		Beta:                   0.95,
		ForageRate:             1,
		ResourceGrowthRate:     1,
		ResourceMaxAmount:      5,
		ResourceRegenCooldown:  5,
		TradeCooldownTicks:     5,
		EnforceSingleHarvester: true,
		ExchangeRegime:         economy.RegimeBarterOnly,
		LambdaMoney:            1,
		PriceCandidates:        16,
	}
}

// Default returns a small runnable scenario.
func Default() Scenario {
	return Scenario{
		Name:     "default",
		GridSize: 24,
		Agents:   20,
		InitialInventories: Inventories{
			A: Uniform(0, 12),
			B: Uniform(0, 12),
			M: Fixed(0),
		},
		Utilities: Utilities{Mix: []UtilitySpec{
			{Type: "ces", Weight: 0.6, Params: map[string]float64{"rho": -0.5, "wA": 1, "wB": 1}},
			{Type: "linear", Weight: 0.4, Params: map[string]float64{"vA": 1, "vB": 1.25}},
		}},
		ResourceSeed: ResourceSeed{Density: 0.1},
		Params:       DefaultParams(),
	}
}

// Load reads and validates a scenario file.
func Load(path string) (Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	s, err := Parse(raw)
	if err != nil {
		return s, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse validates raw YAML against the scenario schema, decodes it over the
// defaults and runs the semantic checks.
func Parse(raw []byte) (Scenario, error) {
	if err := validateSchema(raw); err != nil {
		return Scenario{}, err
	}
	s := Default()
	// Fields absent from the file keep their defaults, except the utility
	// mix which is replaced wholesale when present.
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return Scenario{}, &ConfigurationError{Msg: "decode", Err: err}
	}
	s.Normalize()
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func validateSchema(raw []byte) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return &ConfigurationError{Msg: "decode", Err: err}
	}
	if doc == nil {
		doc = map[string]any{}
	}
	// Round-trip through JSON so the validator sees JSON types.
	js, err := json.Marshal(doc)
	if err != nil {
		return &ConfigurationError{Msg: "convert to json", Err: err}
	}
	var v any
	if err := json.Unmarshal(js, &v); err != nil {
		return &ConfigurationError{Msg: "convert to json", Err: err}
	}
	if err := sch.Validate(v); err != nil {
		field := ""
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			field = leafLocation(ve)
		}
		return &ConfigurationError{Field: field, Msg: "schema", Err: err}
	}
	return nil
}

// leafLocation returns the instance path of the deepest validation cause.
func leafLocation(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return strings.TrimPrefix(ve.InstanceLocation, "/")
}

// Normalize canonicalizes string fields.
func (s *Scenario) Normalize() {
	s.Params.ExchangeRegime = economy.ExchangeRegime(strings.ToLower(strings.TrimSpace(string(s.Params.ExchangeRegime))))
	if s.Params.ExchangeRegime == "" {
		s.Params.ExchangeRegime = economy.RegimeBarterOnly
	}
	for i := range s.Utilities.Mix {
		s.Utilities.Mix[i].Type = strings.ToLower(strings.TrimSpace(s.Utilities.Mix[i].Type))
	}
	if ms := s.ModeSchedule; ms != nil {
		ms.Type = strings.ToLower(strings.TrimSpace(ms.Type))
		ms.StartMode = strings.ToLower(strings.TrimSpace(ms.StartMode))
		if ms.StartMode == "" {
			ms.StartMode = "forage"
		}
	}
}

// BucketSize returns the spatial index bucket side for this scenario.
func (s Scenario) BucketSize() int {
	return max(1, s.Params.VisionRadius, s.Params.InteractionRadius)
}
