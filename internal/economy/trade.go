package economy

import (
	"math"
	"sort"
)

// Trader is the view of one side of a bilateral exchange.
type Trader struct {
	ID        int
	Prefs     Preferences
	Inventory Inventory
	Quotes    Quotes
}

// canSell reports whether t holds at least one unit of the pair's given good.
func (t Trader) canSell(p PairType) bool { return t.Inventory[p.Given()] >= 1 }

// canBuy reports whether t holds at least one unit of the pair's paid good.
func (t Trader) canBuy(p PairType) bool { return t.Inventory[p.Paid()] >= 1 }

// SurplusEstimate is the quote-overlap heuristic used to rank partners.
type SurplusEstimate struct {
	Surplus  float64
	Pair     PairType
	SellerID int
}

// EstimateSurplus returns the best positive quote overlap between i and j
// across the admissible pairs and both directions. It only looks at quotes
// and feasibility, never at utility, so it can disagree with the result of
// the block search for non-linear forms.
func EstimateSurplus(i, j Trader, pairs []PairType) (SurplusEstimate, bool) {
	best := SurplusEstimate{}
	found := false
	for _, p := range pairs {
		for _, dir := range [2][2]Trader{{i, j}, {j, i}} {
			seller, buyer := dir[0], dir[1]
			if !seller.canSell(p) || !buyer.canBuy(p) {
				continue
			}
			overlap := buyer.Quotes[p].Bid - seller.Quotes[p].Ask
			if overlap > 0 && (!found || overlap > best.Surplus) {
				best = SurplusEstimate{Surplus: overlap, Pair: p, SellerID: seller.ID}
				found = true
			}
		}
	}
	return best, found
}

// PriceCandidates returns ascending, deduplicated prices in [ask, bid] for a
// block of qty units: the endpoints, the midpoint and every price that makes
// the paid quantity an exact integer. When there are more than max, an evenly
// spaced subset keeping both endpoints is returned. max <= 0 means no limit.
func PriceCandidates(ask, bid float64, qty, max int) []float64 {
	if ask > bid || qty <= 0 {
		return nil
	}
	prices := []float64{ask, bid, (ask + bid) / 2}

	q := float64(qty)
	lo := int(math.Ceil(ask * q))
	hi := int(math.Floor(bid * q))
	if hi >= lo {
		stride := 1
		if max > 0 && hi-lo+1 > max {
			stride = (hi - lo + max - 1) / max
		}
		for k := lo; k <= hi; k += stride {
			prices = append(prices, float64(k)/q)
		}
	}

	sort.Float64s(prices)
	out := prices[:0]
	for _, p := range prices {
		if p < ask || p > bid {
			continue
		}
		if len(out) > 0 && math.Abs(p-out[len(out)-1]) < 1e-12 {
			continue
		}
		out = append(out, p)
	}
	if max <= 0 || len(out) <= max {
		return out
	}
	if max == 1 {
		return out[:1]
	}
	thinned := make([]float64, 0, max)
	n := len(out)
	for k := 0; k < max; k++ {
		idx := int(math.Round(float64(k) * float64(n-1) / float64(max-1)))
		thinned = append(thinned, out[idx])
	}
	return thinned
}

// BlockRequest describes one bilateral trade search.
type BlockRequest struct {
	I, J               Trader
	Pairs              []PairType // admissible pairs in priority order
	MaxQuantity        int        // cap on units of the given good
	MaxPriceCandidates int
}

// Block is an accepted compensating block.
type Block struct {
	Pair     PairType `json:"pair"`
	SellerID int      `json:"seller_id"`
	BuyerID  int      `json:"buyer_id"`
	DGiven   int      `json:"d_given"`
	DPaid    int      `json:"d_paid"`
	Price    float64  `json:"price"`
	Ask      float64  `json:"ask"`
	Bid      float64  `json:"bid"`
	SellerDU float64  `json:"seller_du"`
	BuyerDU  float64  `json:"buyer_du"`
}

// Apply returns the post-trade inventories of seller and buyer.
func (b Block) Apply(seller, buyer Inventory) (Inventory, Inventory) {
	given, paid := b.Pair.Given(), b.Pair.Paid()
	seller = seller.Moved(given, -b.DGiven).Moved(paid, b.DPaid)
	buyer = buyer.Moved(given, b.DGiven).Moved(paid, -b.DPaid)
	return seller, buyer
}

// FindCompensatingBlock searches for the first (pair, direction, Δgiven,
// price) that strictly improves both parties. Pairs are tried in the given
// order, the lower-id seller first, quantities ascending, prices ascending.
// Returns false when no admissible block exists.
func FindCompensatingBlock(req BlockRequest) (Block, bool) {
	lo, hi := req.I, req.J
	if hi.ID < lo.ID {
		lo, hi = hi, lo
	}
	for _, pair := range req.Pairs {
		for _, dir := range [2][2]Trader{{lo, hi}, {hi, lo}} {
			if b, ok := searchDirection(dir[0], dir[1], pair, req.MaxQuantity, req.MaxPriceCandidates); ok {
				return b, true
			}
		}
	}
	return Block{}, false
}

func searchDirection(seller, buyer Trader, pair PairType, maxQty, maxCands int) (Block, bool) {
	ask := seller.Quotes[pair].Ask
	bid := buyer.Quotes[pair].Bid
	if ask > bid {
		return Block{}, false
	}
	given, paid := pair.Given(), pair.Paid()
	u0Seller := seller.Prefs.Total(seller.Inventory)
	u0Buyer := buyer.Prefs.Total(buyer.Inventory)

	for dg := 1; dg <= maxQty; dg++ {
		if seller.Inventory[given] < dg {
			break
		}
		for _, price := range PriceCandidates(ask, bid, dg, maxCands) {
			dp := int(math.Floor(price*float64(dg) + 0.5))
			if dp < 1 || buyer.Inventory[paid] < dp {
				continue
			}
			b := Block{
				Pair: pair, SellerID: seller.ID, BuyerID: buyer.ID,
				DGiven: dg, DPaid: dp, Price: price, Ask: ask, Bid: bid,
			}
			sInv, bInv := b.Apply(seller.Inventory, buyer.Inventory)
			if !sInv.NonNegative() || !bInv.NonNegative() {
				continue
			}
			b.SellerDU = seller.Prefs.Total(sInv) - u0Seller
			b.BuyerDU = buyer.Prefs.Total(bInv) - u0Buyer
			if b.SellerDU > 0 && b.BuyerDU > 0 {
				return b, true
			}
		}
	}
	return Block{}, false
}
