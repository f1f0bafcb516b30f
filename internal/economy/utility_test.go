package economy

import (
	"math"
	"strings"
	"testing"
)

func allForms() map[string]Utility {
	return map[string]Utility{
		"ces":          NewCES(-0.5, 1, 1),
		"cobb_douglas": NewCES(0, 0.6, 0.4),
		"ces_subst":    NewCES(0.5, 2, 1),
		"linear":       NewLinear(1, 2),
		"quadratic": NewQuadratic(QuadraticParams{
			AStar: 10, BStar: 10, SigmaA: 5, SigmaB: 5, Gamma: 0.1,
		}),
		"translog": NewTranslog(TranslogParams{
			Alpha0: 0, AlphaA: 0.5, AlphaB: 0.5, BetaAA: -0.05, BetaBB: -0.05, BetaAB: 0.02,
		}),
		"stone_geary": NewStoneGeary(0.5, 0.5, 2, 2),
	}
}

func TestReservationBounds_FiniteAtZeroInventory(t *testing.T) {
	bundles := [][2]int{{0, 0}, {0, 10}, {10, 0}, {1, 1}, {50, 3}}
	for name, u := range allForms() {
		if err := u.Validate(); err != nil {
			t.Fatalf("%s: validate: %v", name, err)
		}
		for _, bn := range bundles {
			pMin, pMax := u.ReservationBoundsAInB(bn[0], bn[1], 1e-6)
			for _, v := range []float64{pMin, pMax} {
				if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
					t.Fatalf("%s at %v: bound %v not finite/non-negative", name, bn, v)
				}
			}
			if pMin > pMax {
				t.Fatalf("%s at %v: pMin %v > pMax %v", name, bn, pMin, pMax)
			}
			muA, muB := u.ShiftedMarginals(bn[0], bn[1], 1e-6)
			if math.IsNaN(muA) || math.IsNaN(muB) || math.IsInf(muA, 0) || math.IsInf(muB, 0) {
				t.Fatalf("%s at %v: shifted marginals not finite (%v, %v)", name, bn, muA, muB)
			}
		}
	}
}

func TestUGoods_NoEpsilonShift(t *testing.T) {
	u := NewLinear(1, 1)
	if got := u.UGoods(0, 0); got != 0 {
		t.Fatalf("linear UGoods(0,0) = %v, want 0", got)
	}
	c := NewCES(-1, 1, 1)
	if got := c.UGoods(0, 5); got != 0 {
		t.Fatalf("ces(rho<0) UGoods(0,5) = %v, want 0", got)
	}
	tl := allForms()["translog"]
	if got := tl.UGoods(0, 5); got != 0 {
		t.Fatalf("translog UGoods(0,5) = %v, want 0", got)
	}
}

func TestMRS_KnownValues(t *testing.T) {
	if got := NewLinear(1, 2).MRSAInB(3, 7, 1e-9); got != 0.5 {
		t.Fatalf("linear MRS = %v, want 0.5", got)
	}
	if got := NewCES(-0.5, 1, 1).MRSAInB(5, 5, 1e-9); math.Abs(got-1) > 1e-12 {
		t.Fatalf("symmetric CES MRS at equal bundle = %v, want 1", got)
	}
	// Scarcer A is worth more B.
	if NewCES(-0.5, 1, 1).MRSAInB(2, 8, 1e-9) <= 1 {
		t.Fatalf("CES MRS should exceed 1 when A is scarce")
	}
	sg := NewStoneGeary(0.5, 0.5, 2, 2)
	if got := sg.MRSAInB(4, 6, 1e-9); math.Abs(got-2) > 1e-12 {
		t.Fatalf("stone-geary MRS = %v, want 2", got)
	}
}

func TestMarginals_Linear(t *testing.T) {
	u := NewLinear(3, 4)
	if u.MUA(1, 1) != 3 || u.MUB(9, 0) != 4 {
		t.Fatalf("linear marginals wrong: %v %v", u.MUA(1, 1), u.MUB(9, 0))
	}
}

func TestMarginals_ZeroInventoryNotNaN(t *testing.T) {
	forms := allForms()
	forms["cobb_douglas_even"] = NewCES(0, 1, 1)
	forms["ces_complements"] = NewCES(-1, 1, 1)
	bundles := [][2]int{{0, 0}, {0, 5}, {5, 0}, {3, 4}}
	for name, u := range forms {
		for _, bn := range bundles {
			muA, muB := u.MUA(bn[0], bn[1]), u.MUB(bn[0], bn[1])
			if math.IsNaN(muA) || math.IsNaN(muB) {
				t.Fatalf("%s at %v: marginals (%v, %v)", name, bn, muA, muB)
			}
		}
	}

	cd := NewCES(0, 1, 1)
	if !math.IsInf(cd.MUA(0, 5), 1) || cd.MUB(0, 5) != 0 {
		t.Fatalf("cobb-douglas at (0,5) = (%v, %v), want (+Inf, 0)", cd.MUA(0, 5), cd.MUB(0, 5))
	}
	if got := cd.MUA(4, 9); math.Abs(got-0.75) > 1e-12 {
		t.Fatalf("cobb-douglas MUA(4,9) = %v, want 0.75", got)
	}
	if got := NewCES(-1, 1, 1).MUA(0, 5); math.Abs(got-1) > 1e-12 {
		t.Fatalf("ces(rho<0) MUA(0,5) = %v, want 1", got)
	}
	if got := NewCES(0.5, 2, 1).MUA(0, 0); math.Abs(got-4) > 1e-12 {
		t.Fatalf("ces(rho>0) MUA(0,0) = %v, want 4", got)
	}
	tl := forms["translog"]
	if !math.IsInf(tl.MUA(0, 5), 1) || tl.MUB(0, 5) != 0 {
		t.Fatalf("translog at (0,5) = (%v, %v)", tl.MUA(0, 5), tl.MUB(0, 5))
	}
}

func TestStoneGeary_EndowmentValidation(t *testing.T) {
	u := NewStoneGeary(0.5, 0.5, 5, 5)
	if err := u.ValidateEndowment(6, 6); err != nil {
		t.Fatalf("valid endowment rejected: %v", err)
	}
	if err := u.ValidateEndowment(5, 10); err == nil {
		t.Fatalf("endowment at subsistence accepted")
	}
	if got := u.UGoods(5, 10); got != belowSubsistence {
		t.Fatalf("UGoods at subsistence = %v, want penalty", got)
	}
}

func TestNewUtility(t *testing.T) {
	u, err := NewUtility("ces", map[string]float64{"rho": -0.5, "wA": 1, "wB": 1})
	if err != nil {
		t.Fatalf("NewUtility: %v", err)
	}
	if u.Kind != KindCES || u.CES.Rho != -0.5 {
		t.Fatalf("unexpected utility: %+v", u)
	}
	if _, err := NewUtility("ces", map[string]float64{"rho": 0.5, "wA": 1, "wB": 1, "vA": 2}); err == nil ||
		!strings.Contains(err.Error(), "vA") {
		t.Fatalf("expected unknown-parameter error, got %v", err)
	}
	if _, err := NewUtility("linear", map[string]float64{"vA": 0, "vB": 1}); err == nil {
		t.Fatalf("expected validation error for zero value")
	}
	if _, err := NewUtility("cubic", nil); err == nil {
		t.Fatalf("expected unknown kind error")
	}
	if k, err := ParseUtilityKind("Subsistence"); err != nil || k != KindStoneGeary {
		t.Fatalf("ParseUtilityKind alias: %v %v", k, err)
	}
}
