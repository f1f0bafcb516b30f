package economy

import (
	"fmt"
	"math"
)

// PairType identifies an exchange pair: the good a seller gives and the good
// the buyer pays with.
type PairType uint8

const (
	PairAB PairType = iota // A traded for B
	PairAM                 // A traded for money
	PairBM                 // B traded for money
)

// NumPairs is the number of exchange pair types.
const NumPairs = 3

// String returns the display form, e.g. "A<->B".
func (p PairType) String() string {
	return p.Given().String() + "<->" + p.Paid().String()
}

// Given is the good the seller hands over.
func (p PairType) Given() GoodType {
	if p == PairBM {
		return GoodB
	}
	return GoodA
}

// Paid is the good the buyer pays with.
func (p PairType) Paid() GoodType {
	if p == PairAB {
		return GoodB
	}
	return GoodM
}

// suffix returns the quote key suffix, e.g. "A_in_B".
func (p PairType) suffix() string {
	return p.Given().String() + "_in_" + p.Paid().String()
}

// ParsePairType accepts "A<->B", "A<->M" or "B<->M".
func ParsePairType(s string) (PairType, error) {
	for _, p := range []PairType{PairAB, PairAM, PairBM} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown exchange pair %q", s)
}

// Preferences bundle an agent's utility over goods with its marginal utility
// of money. Total utility is quasilinear in money.
type Preferences struct {
	Utility Utility `json:"utility"`
	Lambda  float64 `json:"lambda"`
}

// Total returns U_goods(A, B) + λ·M.
func (p Preferences) Total(inv Inventory) float64 {
	return p.Utility.UGoods(inv[GoodA], inv[GoodB]) + p.Lambda*float64(inv[GoodM])
}

// Quote is one agent's standing price for one exchange pair, in units of the
// paid good per unit of the given good.
type Quote struct {
	PMin float64 `json:"p_min"`
	PMax float64 `json:"p_max"`
	Ask  float64 `json:"ask"`
	Bid  float64 `json:"bid"`
}

// Quotes holds one quote per pair type.
type Quotes [NumPairs]Quote

// Keys returns the mapping form used by telemetry, e.g. "ask_A_in_B".
func (q Quotes) Keys() map[string]float64 {
	out := make(map[string]float64, NumPairs*4)
	for p := PairType(0); p < NumPairs; p++ {
		s := p.suffix()
		out["p_min_"+s] = q[p].PMin
		out["p_max_"+s] = q[p].PMax
		out["ask_"+s] = q[p].Ask
		out["bid_"+s] = q[p].Bid
	}
	return out
}

// ReservationBounds returns (p_min, p_max) for one pair type. Money pairs
// convert marginal utility into money using λ.
func (p Preferences) ReservationBounds(pair PairType, inv Inventory, eps float64) (float64, float64) {
	switch pair {
	case PairAB:
		return p.Utility.ReservationBoundsAInB(inv[GoodA], inv[GoodB], eps)
	case PairAM, PairBM:
		if p.Lambda <= 0 {
			return 0, 0
		}
		muA, muB := p.Utility.ShiftedMarginals(inv[GoodA], inv[GoodB], eps)
		mu := muA
		if pair == PairBM {
			mu = muB
		}
		v := math.Min(mu/p.Lambda, MaxReservationPrice)
		return v, v
	default:
		panic(fmt.Sprintf("economy: unhandled pair type %d", pair))
	}
}

// ComputeQuotes derives ask/bid for every pair: ask = p_min·(1+spread),
// bid = p_max·(1-spread).
func ComputeQuotes(prefs Preferences, inv Inventory, spread, eps float64) Quotes {
	var q Quotes
	for pair := PairType(0); pair < NumPairs; pair++ {
		pMin, pMax := prefs.ReservationBounds(pair, inv, eps)
		q[pair] = Quote{
			PMin: pMin,
			PMax: pMax,
			Ask:  pMin * (1 + spread),
			Bid:  pMax * (1 - spread),
		}
	}
	return q
}

// ExchangeRegime selects which pair types may trade.
type ExchangeRegime string

const (
	RegimeBarterOnly ExchangeRegime = "barter_only"
	RegimeMoneyOnly  ExchangeRegime = "money_only"
	RegimeMixed      ExchangeRegime = "mixed"
)

// Valid reports whether r is a known regime.
func (r ExchangeRegime) Valid() bool {
	switch r {
	case RegimeBarterOnly, RegimeMoneyOnly, RegimeMixed:
		return true
	}
	return false
}

// AdmissiblePairs returns the pair types allowed under r in the fixed
// priority order used by both ranking and trade search. Mixed puts money
// pairs first.
func (r ExchangeRegime) AdmissiblePairs() []PairType {
	switch r {
	case RegimeMoneyOnly:
		return []PairType{PairAM, PairBM}
	case RegimeMixed:
		return []PairType{PairAM, PairBM, PairAB}
	default:
		return []PairType{PairAB}
	}
}
