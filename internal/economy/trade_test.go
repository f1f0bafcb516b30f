package economy

import (
	"math"
	"testing"
)

func trader(id int, u Utility, lambda float64, inv Inventory, spread float64) Trader {
	prefs := Preferences{Utility: u, Lambda: lambda}
	return Trader{ID: id, Prefs: prefs, Inventory: inv, Quotes: ComputeQuotes(prefs, inv, spread, 1e-6)}
}

func TestComputeQuotes_SpreadBrackets(t *testing.T) {
	prefs := Preferences{Utility: NewCES(-0.5, 1, 1), Lambda: 0.5}
	q := ComputeQuotes(prefs, NewInventory(3, 9, 20), 0.1, 1e-6)
	for p := PairType(0); p < NumPairs; p++ {
		if q[p].Ask < q[p].PMin {
			t.Fatalf("%s: ask %v < p_min %v", p, q[p].Ask, q[p].PMin)
		}
		if q[p].Bid > q[p].PMax {
			t.Fatalf("%s: bid %v > p_max %v", p, q[p].Bid, q[p].PMax)
		}
	}
	keys := q.Keys()
	for _, k := range []string{"ask_A_in_B", "bid_A_in_B", "ask_A_in_M", "bid_B_in_M", "p_min_B_in_M"} {
		if _, ok := keys[k]; !ok {
			t.Fatalf("missing quote key %s", k)
		}
	}
}

func TestPriceCandidates(t *testing.T) {
	got := PriceCandidates(0.5, 2, 2, 0)
	want := []float64{0.5, 1, 1.25, 1.5, 2}
	if len(got) != len(want) {
		t.Fatalf("candidates = %v, want %v", got, want)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("candidates = %v, want %v", got, want)
		}
	}

	thin := PriceCandidates(1, 1000, 5, 6)
	if len(thin) != 6 {
		t.Fatalf("thinned len = %d, want 6", len(thin))
	}
	if thin[0] != 1 || thin[len(thin)-1] != 1000 {
		t.Fatalf("thinning dropped endpoints: %v", thin)
	}
	for i := 1; i < len(thin); i++ {
		if thin[i] <= thin[i-1] {
			t.Fatalf("not ascending: %v", thin)
		}
	}

	if PriceCandidates(2, 1, 1, 0) != nil {
		t.Fatalf("ask > bid must yield no candidates")
	}
}

func TestFindCompensatingBlock_HeterogeneousLinear(t *testing.T) {
	// Agent 0 holds A but values B more; agent 1 the reverse.
	a := trader(0, NewLinear(1, 2), 0, NewInventory(10, 0, 0), 0)
	b := trader(1, NewLinear(2, 1), 0, NewInventory(0, 10, 0), 0)

	blk, ok := FindCompensatingBlock(BlockRequest{
		I: a, J: b, Pairs: RegimeBarterOnly.AdmissiblePairs(), MaxQuantity: 5, MaxPriceCandidates: 10,
	})
	if !ok {
		t.Fatalf("expected a block")
	}
	if blk.SellerID != 0 || blk.BuyerID != 1 || blk.Pair != PairAB {
		t.Fatalf("unexpected block direction: %+v", blk)
	}
	if blk.SellerDU <= 0 || blk.BuyerDU <= 0 {
		t.Fatalf("block not mutually improving: %+v", blk)
	}
	if blk.Price < blk.Ask || blk.Price > blk.Bid {
		t.Fatalf("price %v outside [%v, %v]", blk.Price, blk.Ask, blk.Bid)
	}
	sInv, bInv := blk.Apply(a.Inventory, b.Inventory)
	if sum := sInv.Plus(bInv); sum != NewInventory(10, 10, 0) {
		t.Fatalf("trade not conserving: %v", sum)
	}
}

func TestFindCompensatingBlock_IdenticalLinearHasNoBlock(t *testing.T) {
	a := trader(0, NewLinear(1, 1), 0, NewInventory(10, 0, 0), 0)
	b := trader(1, NewLinear(1, 1), 0, NewInventory(0, 10, 0), 0)
	if _, ok := EstimateSurplus(a, b, []PairType{PairAB}); ok {
		t.Fatalf("identical linear valuations should have no quote overlap")
	}
	if blk, ok := FindCompensatingBlock(BlockRequest{
		I: a, J: b, Pairs: []PairType{PairAB}, MaxQuantity: 5, MaxPriceCandidates: 10,
	}); ok {
		t.Fatalf("unexpected block %+v", blk)
	}
}

func TestFindCompensatingBlock_CESComplements(t *testing.T) {
	a := trader(3, NewCES(-0.5, 1, 1), 0, NewInventory(12, 2, 0), 0.05)
	b := trader(7, NewCES(-0.5, 1, 1), 0, NewInventory(2, 12, 0), 0.05)

	est, ok := EstimateSurplus(a, b, []PairType{PairAB})
	if !ok || est.SellerID != 3 {
		t.Fatalf("expected agent 3 to be the A seller, got %+v ok=%v", est, ok)
	}
	blk, ok := FindCompensatingBlock(BlockRequest{
		I: b, J: a, Pairs: []PairType{PairAB}, MaxQuantity: 5, MaxPriceCandidates: 10,
	})
	if !ok {
		t.Fatalf("expected a block between complementary holders")
	}
	if blk.SellerDU <= 0 || blk.BuyerDU <= 0 {
		t.Fatalf("block not mutually improving: %+v", blk)
	}
	if blk.DPaid != int(math.Floor(blk.Price*float64(blk.DGiven)+0.5)) {
		t.Fatalf("paid quantity not rounded half-up: %+v", blk)
	}
}

func TestFindCompensatingBlock_MoneyPairs(t *testing.T) {
	// Seller is flush with A, buyer has money and little A.
	seller := trader(1, NewCES(-0.5, 1, 1), 1, NewInventory(20, 5, 0), 0)
	buyer := trader(2, NewCES(-0.5, 1, 1), 0.05, NewInventory(1, 5, 100), 0)

	blk, ok := FindCompensatingBlock(BlockRequest{
		I: seller, J: buyer, Pairs: RegimeMoneyOnly.AdmissiblePairs(), MaxQuantity: 3, MaxPriceCandidates: 20,
	})
	if !ok {
		t.Fatalf("expected a money trade")
	}
	if blk.Pair.Paid() != GoodM {
		t.Fatalf("money regime produced barter block: %+v", blk)
	}
	if blk.SellerDU <= 0 || blk.BuyerDU <= 0 {
		t.Fatalf("block not mutually improving: %+v", blk)
	}
}

func TestFindCompensatingBlock_RespectsInventory(t *testing.T) {
	a := trader(0, NewLinear(1, 2), 0, NewInventory(1, 0, 0), 0)
	b := trader(1, NewLinear(2, 1), 0, NewInventory(0, 1, 0), 0)
	blk, ok := FindCompensatingBlock(BlockRequest{
		I: a, J: b, Pairs: []PairType{PairAB}, MaxQuantity: 5, MaxPriceCandidates: 10,
	})
	if !ok {
		t.Fatalf("expected a single-unit block")
	}
	if blk.DGiven != 1 || blk.DPaid != 1 {
		t.Fatalf("block exceeds holdings: %+v", blk)
	}
}

func TestAdmissiblePairs_Order(t *testing.T) {
	got := RegimeMixed.AdmissiblePairs()
	if len(got) != 3 || got[0] != PairAM || got[2] != PairAB {
		t.Fatalf("mixed regime order = %v", got)
	}
	if !RegimeBarterOnly.Valid() || ExchangeRegime("gift").Valid() {
		t.Fatalf("regime validity wrong")
	}
	if p, err := ParsePairType("B<->M"); err != nil || p != PairBM {
		t.Fatalf("ParsePairType: %v %v", p, err)
	}
}
