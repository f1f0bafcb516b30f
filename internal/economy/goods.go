// Package economy provides goods, utility functions, reservation prices and
// the discrete bilateral trade search.
package economy

import "fmt"

// GoodType enumerates the goods an agent can hold.
type GoodType uint8

const (
	GoodA GoodType = iota // Tradable good A
	GoodB                 // Tradable good B
	GoodM                 // Money
)

// NumGoods is the total number of good types.
const NumGoods = 3

// AllGoods lists every good in a fixed order.
var AllGoods = [NumGoods]GoodType{GoodA, GoodB, GoodM}

// String returns the good identifier used in quote keys and telemetry.
func (g GoodType) String() string {
	switch g {
	case GoodA:
		return "A"
	case GoodB:
		return "B"
	case GoodM:
		return "M"
	default:
		return "?"
	}
}

// ParseGood is the inverse of GoodType.String.
func ParseGood(s string) (GoodType, error) {
	for _, g := range AllGoods {
		if g.String() == s {
			return g, nil
		}
	}
	return 0, fmt.Errorf("unknown good %q", s)
}

// Inventory is a fixed-size array holding quantities of each good.
// Inline in the agent record, zero heap allocation.
type Inventory [NumGoods]int

// NewInventory builds an inventory from explicit quantities.
func NewInventory(a, b, m int) Inventory {
	return Inventory{GoodA: a, GoodB: b, GoodM: m}
}

// A returns the quantity of good A.
func (inv Inventory) A() int { return inv[GoodA] }

// B returns the quantity of good B.
func (inv Inventory) B() int { return inv[GoodB] }

// M returns the money balance.
func (inv Inventory) M() int { return inv[GoodM] }

// Moved returns a copy with delta added to good g.
func (inv Inventory) Moved(g GoodType, delta int) Inventory {
	inv[g] += delta
	return inv
}

// Plus returns the element-wise sum of two inventories.
func (inv Inventory) Plus(o Inventory) Inventory {
	for i := range inv {
		inv[i] += o[i]
	}
	return inv
}

// NonNegative reports whether every quantity is >= 0.
func (inv Inventory) NonNegative() bool {
	for _, qty := range inv {
		if qty < 0 {
			return false
		}
	}
	return true
}

// IsEmpty returns true if all quantities are zero.
func (inv Inventory) IsEmpty() bool {
	for _, qty := range inv {
		if qty != 0 {
			return false
		}
	}
	return true
}

// Map returns the inventory keyed by good identifier, for telemetry.
func (inv Inventory) Map() map[string]int {
	return map[string]int{
		"A": inv[GoodA],
		"B": inv[GoodB],
		"M": inv[GoodM],
	}
}
