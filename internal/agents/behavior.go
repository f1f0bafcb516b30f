package agents

import (
	"math"
	"sort"

	"github.com/cmfunderburk/vmt-dev-sub000/internal/economy"
	"github.com/cmfunderburk/vmt-dev-sub000/internal/world"
)

// DecisionKind classifies what an agent settled on during the decision pass.
type DecisionKind uint8

const (
	DecisionIdle           DecisionKind = iota
	DecisionPaired                      // Committed to a trading partner
	DecisionForage                      // Committed to a resource cell
	DecisionTradeUnmatched              // Wanted a partner, got none; resolved in cleanup
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionPaired:
		return "paired"
	case DecisionForage:
		return "forage"
	case DecisionTradeUnmatched:
		return "trade_unmatched"
	default:
		return "idle"
	}
}

// Preference is one ranked trading candidate.
type Preference struct {
	Partner    AgentID          `json:"partner"`
	Surplus    float64          `json:"surplus"`
	Discounted float64          `json:"discounted"`
	Distance   int              `json:"distance"`
	Pair       economy.PairType `json:"pair"`
}

// SortPreferences orders candidates by descending discounted surplus, then
// ascending partner id.
func SortPreferences(prefs []Preference) {
	sort.Slice(prefs, func(i, j int) bool {
		if prefs[i].Discounted != prefs[j].Discounted {
			return prefs[i].Discounted > prefs[j].Discounted
		}
		return prefs[i].Partner < prefs[j].Partner
	})
}

// Discount applies β^distance.
func Discount(value, beta float64, distance int) float64 {
	return value * math.Pow(beta, float64(distance))
}

// ForageGain is the utility gained on arrival at a cell holding amount units
// of res, harvesting at most rate.
func (a *Agent) ForageGain(res world.ResourceType, amount, rate int) float64 {
	take := min(rate, amount)
	if take <= 0 {
		return 0
	}
	after := a.Inventory.Moved(res.Good(), take)
	return a.Prefs.Total(after) - a.Prefs.Total(a.Inventory)
}
