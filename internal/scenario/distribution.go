package scenario

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"gopkg.in/yaml.v3"
)

// Distribution describes how a per-agent integer is drawn. In YAML it is a
// scalar (every agent gets the value), a list (one value per agent, by
// index) or {uniform_int: [min, max]} (inclusive).
type Distribution struct {
	Fixed  int
	Values []int
	Min    int
	Max    int
	kind   distKind
}

type distKind uint8

const (
	distFixed distKind = iota
	distList
	distUniform
)

// Fixed returns a distribution that always yields v.
func Fixed(v int) Distribution { return Distribution{Fixed: v, kind: distFixed} }

// List returns a per-agent list distribution.
func List(values ...int) Distribution { return Distribution{Values: values, kind: distList} }

// Uniform returns an inclusive uniform integer distribution.
func Uniform(lo, hi int) Distribution { return Distribution{Min: lo, Max: hi, kind: distUniform} }

// IsList reports whether the distribution is a per-agent list.
func (d Distribution) IsList() bool { return d.kind == distList }

// Sample returns the value for agent index i. Uniform draws consume rng;
// fixed and list values do not.
func (d Distribution) Sample(rng *rand.Rand, i int) int {
	switch d.kind {
	case distList:
		return d.Values[i]
	case distUniform:
		return d.Min + rng.Intn(d.Max-d.Min+1)
	default:
		return d.Fixed
	}
}

// Lowest returns the smallest value the distribution can produce.
func (d Distribution) Lowest() int {
	switch d.kind {
	case distList:
		if len(d.Values) == 0 {
			return 0
		}
		lo := d.Values[0]
		for _, v := range d.Values[1:] {
			lo = min(lo, v)
		}
		return lo
	case distUniform:
		return d.Min
	default:
		return d.Fixed
	}
}

func (d Distribution) validate(field string, agents int) error {
	switch d.kind {
	case distList:
		if len(d.Values) != agents {
			return fieldErr(field, "list has %d values for %d agents", len(d.Values), agents)
		}
	case distUniform:
		if d.Min > d.Max {
			return fieldErr(field, "uniform_int min %d > max %d", d.Min, d.Max)
		}
	}
	if d.Lowest() < 0 {
		return fieldErr(field, "inventories must be non-negative")
	}
	return nil
}

// UnmarshalYAML accepts the scalar, list and uniform_int forms.
func (d *Distribution) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var v int
		if err := n.Decode(&v); err != nil {
			return err
		}
		*d = Fixed(v)
	case yaml.SequenceNode:
		var vs []int
		if err := n.Decode(&vs); err != nil {
			return err
		}
		*d = List(vs...)
	case yaml.MappingNode:
		var m struct {
			UniformInt []int `yaml:"uniform_int"`
		}
		if err := n.Decode(&m); err != nil {
			return err
		}
		if len(m.UniformInt) != 2 {
			return fmt.Errorf("line %d: uniform_int needs [min, max]", n.Line)
		}
		*d = Uniform(m.UniformInt[0], m.UniformInt[1])
	default:
		return fmt.Errorf("line %d: unsupported distribution", n.Line)
	}
	return nil
}

// MarshalJSON emits the same shape the YAML form accepts.
func (d Distribution) MarshalJSON() ([]byte, error) {
	switch d.kind {
	case distList:
		return json.Marshal(d.Values)
	case distUniform:
		return json.Marshal(map[string][]int{"uniform_int": {d.Min, d.Max}})
	default:
		return json.Marshal(d.Fixed)
	}
}

// MarshalYAML emits the same shape UnmarshalYAML accepts.
func (d Distribution) MarshalYAML() (any, error) {
	switch d.kind {
	case distList:
		return d.Values, nil
	case distUniform:
		return map[string][]int{"uniform_int": {d.Min, d.Max}}, nil
	default:
		return d.Fixed, nil
	}
}
