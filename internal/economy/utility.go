package economy

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// MaxReservationPrice caps every reservation bound so degenerate marginal
// utilities never leak Inf into quotes.
const MaxReservationPrice = 1e6

// belowSubsistence is the utility of a bundle at or below a subsistence
// threshold. Finite so utility differences never become NaN.
const belowSubsistence = -1e10

// UtilityKind tags the functional form carried by a Utility.
type UtilityKind uint8

const (
	KindCES        UtilityKind = iota // Constant elasticity of substitution (rho == 0 is Cobb-Douglas)
	KindLinear                        // Perfect substitutes
	KindQuadratic                     // Bliss point with satiation
	KindTranslog                      // Transcendental logarithmic
	KindStoneGeary                    // Subsistence-constrained log utility
)

var kindNames = map[UtilityKind]string{
	KindCES:        "ces",
	KindLinear:     "linear",
	KindQuadratic:  "quadratic",
	KindTranslog:   "translog",
	KindStoneGeary: "stone_geary",
}

// String returns the scenario name of the kind.
func (k UtilityKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseUtilityKind maps a scenario name to a kind.
func ParseUtilityKind(name string) (UtilityKind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "subsistence" || n == "stonegeary" {
		n = "stone_geary"
	}
	for k, v := range kindNames {
		if v == n {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown utility type %q", name)
}

// CESParams: U = (wA·A^ρ + wB·B^ρ)^(1/ρ).
type CESParams struct {
	Rho float64 `json:"rho"`
	WA  float64 `json:"wA"`
	WB  float64 `json:"wB"`
}

// LinearParams: U = vA·A + vB·B.
type LinearParams struct {
	VA float64 `json:"vA"`
	VB float64 `json:"vB"`
}

// QuadraticParams: U = -(A-A*)²/σA² - (B-B*)²/σB² - γ(A-A*)(B-B*).
type QuadraticParams struct {
	AStar  float64 `json:"A_star"`
	BStar  float64 `json:"B_star"`
	SigmaA float64 `json:"sigma_A"`
	SigmaB float64 `json:"sigma_B"`
	Gamma  float64 `json:"gamma"`
}

// TranslogParams: ln U = α0 + αA·lnA + αB·lnB + ½βAA·(lnA)² + ½βBB·(lnB)² + βAB·lnA·lnB.
type TranslogParams struct {
	Alpha0 float64 `json:"alpha_0"`
	AlphaA float64 `json:"alpha_A"`
	AlphaB float64 `json:"alpha_B"`
	BetaAA float64 `json:"beta_AA"`
	BetaBB float64 `json:"beta_BB"`
	BetaAB float64 `json:"beta_AB"`
}

// StoneGearyParams: U = αA·ln(A-γA) + αB·ln(B-γB), defined for A > γA, B > γB.
type StoneGearyParams struct {
	AlphaA float64 `json:"alpha_A"`
	AlphaB float64 `json:"alpha_B"`
	GammaA float64 `json:"gamma_A"`
	GammaB float64 `json:"gamma_B"`
}

// Utility is a closed sum over the supported functional forms. Only the
// parameter block matching Kind is meaningful. Every method switches on Kind
// and panics on an unknown tag, so a new form must be added to each switch.
type Utility struct {
	Kind       UtilityKind       `json:"kind"`
	CES        *CESParams        `json:"ces,omitempty"`
	Linear     *LinearParams     `json:"linear,omitempty"`
	Quadratic  *QuadraticParams  `json:"quadratic,omitempty"`
	Translog   *TranslogParams   `json:"translog,omitempty"`
	StoneGeary *StoneGearyParams `json:"stone_geary,omitempty"`
}

// NewCES builds a CES utility; ρ = 0 selects the Cobb-Douglas limit.
func NewCES(rho, wA, wB float64) Utility {
	return Utility{Kind: KindCES, CES: &CESParams{Rho: rho, WA: wA, WB: wB}}
}

// NewLinear builds a perfect-substitutes utility vA·A + vB·B.
func NewLinear(vA, vB float64) Utility {
	return Utility{Kind: KindLinear, Linear: &LinearParams{VA: vA, VB: vB}}
}

// NewQuadratic builds a bliss-point utility centred on (AStar, BStar).
func NewQuadratic(p QuadraticParams) Utility {
	return Utility{Kind: KindQuadratic, Quadratic: &p}
}

// NewTranslog builds a transcendental-logarithmic utility.
func NewTranslog(p TranslogParams) Utility {
	return Utility{Kind: KindTranslog, Translog: &p}
}

// NewStoneGeary builds a utility with subsistence levels gammaA and gammaB.
func NewStoneGeary(alphaA, alphaB, gammaA, gammaB float64) Utility {
	return Utility{Kind: KindStoneGeary, StoneGeary: &StoneGearyParams{
		AlphaA: alphaA, AlphaB: alphaB, GammaA: gammaA, GammaB: gammaB,
	}}
}

// NewUtility builds a utility from a scenario type name and a flat parameter
// map. Missing parameters default to zero and are caught by Validate.
func NewUtility(kindName string, params map[string]float64) (Utility, error) {
	kind, err := ParseUtilityKind(kindName)
	if err != nil {
		return Utility{}, err
	}
	known := map[UtilityKind][]string{
		KindCES:        {"rho", "wA", "wB"},
		KindLinear:     {"vA", "vB"},
		KindQuadratic:  {"A_star", "B_star", "sigma_A", "sigma_B", "gamma"},
		KindTranslog:   {"alpha_0", "alpha_A", "alpha_B", "beta_AA", "beta_BB", "beta_AB"},
		KindStoneGeary: {"alpha_A", "alpha_B", "gamma_A", "gamma_B"},
	}
	var unknown []string
	for name := range params {
		if !containsString(known[kind], name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Utility{}, fmt.Errorf("%s: unknown parameters %s", kind, strings.Join(unknown, ", "))
	}

	var u Utility
	switch kind {
	case KindCES:
		u = NewCES(params["rho"], params["wA"], params["wB"])
	case KindLinear:
		u = NewLinear(params["vA"], params["vB"])
	case KindQuadratic:
		u = NewQuadratic(QuadraticParams{
			AStar: params["A_star"], BStar: params["B_star"],
			SigmaA: params["sigma_A"], SigmaB: params["sigma_B"],
			Gamma: params["gamma"],
		})
	case KindTranslog:
		u = NewTranslog(TranslogParams{
			Alpha0: params["alpha_0"], AlphaA: params["alpha_A"], AlphaB: params["alpha_B"],
			BetaAA: params["beta_AA"], BetaBB: params["beta_BB"], BetaAB: params["beta_AB"],
		})
	case KindStoneGeary:
		u = NewStoneGeary(params["alpha_A"], params["alpha_B"], params["gamma_A"], params["gamma_B"])
	}
	return u, u.Validate()
}

// Validate checks the parameters of the active form.
func (u Utility) Validate() error {
	switch u.Kind {
	case KindCES:
		p := u.CES
		if p == nil {
			return fmt.Errorf("ces: missing parameters")
		}
		if p.WA <= 0 || p.WB <= 0 {
			return fmt.Errorf("ces: weights must be positive (wA=%g, wB=%g)", p.WA, p.WB)
		}
		if p.Rho >= 1 {
			return fmt.Errorf("ces: rho must be < 1 (got %g)", p.Rho)
		}
	case KindLinear:
		p := u.Linear
		if p == nil {
			return fmt.Errorf("linear: missing parameters")
		}
		if p.VA <= 0 || p.VB <= 0 {
			return fmt.Errorf("linear: values must be positive (vA=%g, vB=%g)", p.VA, p.VB)
		}
	case KindQuadratic:
		p := u.Quadratic
		if p == nil {
			return fmt.Errorf("quadratic: missing parameters")
		}
		if p.SigmaA <= 0 || p.SigmaB <= 0 {
			return fmt.Errorf("quadratic: sigmas must be positive")
		}
		if p.AStar <= 0 || p.BStar <= 0 {
			return fmt.Errorf("quadratic: bliss point must be positive")
		}
	case KindTranslog:
		p := u.Translog
		if p == nil {
			return fmt.Errorf("translog: missing parameters")
		}
		if p.AlphaA <= 0 || p.AlphaB <= 0 {
			return fmt.Errorf("translog: first-order coefficients must be positive")
		}
	case KindStoneGeary:
		p := u.StoneGeary
		if p == nil {
			return fmt.Errorf("stone_geary: missing parameters")
		}
		if p.AlphaA <= 0 || p.AlphaB <= 0 {
			return fmt.Errorf("stone_geary: alphas must be positive")
		}
		if p.GammaA < 0 || p.GammaB < 0 {
			return fmt.Errorf("stone_geary: subsistence levels must be non-negative")
		}
	default:
		return fmt.Errorf("unknown utility kind %d", u.Kind)
	}
	return nil
}

// ValidateEndowment checks that a starting bundle lies strictly inside the
// domain of the utility. Only the subsistence-constrained form restricts it.
func (u Utility) ValidateEndowment(a, b int) error {
	if u.Kind != KindStoneGeary {
		return nil
	}
	p := u.StoneGeary
	if float64(a) <= p.GammaA || float64(b) <= p.GammaB {
		return fmt.Errorf("stone_geary: inventory (A=%d, B=%d) must exceed subsistence (gamma_A=%g, gamma_B=%g)",
			a, b, p.GammaA, p.GammaB)
	}
	return nil
}

// UGoods returns the utility of holding a units of A and b units of B.
// Inputs are the true quantities; no epsilon shift is ever applied here.
func (u Utility) UGoods(a, b int) float64 {
	return u.uGoods(float64(a), float64(b))
}

func (u Utility) uGoods(A, B float64) float64 {
	switch u.Kind {
	case KindCES:
		p := u.CES
		if p.Rho == 0 {
			// Cobb-Douglas limit with normalized exponents.
			s := p.WA + p.WB
			return math.Pow(A, p.WA/s) * math.Pow(B, p.WB/s)
		}
		// ρ < 0 with a zero good gives Inf^(1/ρ) = 0.
		inner := p.WA*math.Pow(A, p.Rho) + p.WB*math.Pow(B, p.Rho)
		return math.Pow(inner, 1/p.Rho)
	case KindLinear:
		return u.Linear.VA*A + u.Linear.VB*B
	case KindQuadratic:
		p := u.Quadratic
		da, db := A-p.AStar, B-p.BStar
		return -(da*da)/(p.SigmaA*p.SigmaA) - (db*db)/(p.SigmaB*p.SigmaB) - p.Gamma*da*db
	case KindTranslog:
		if A <= 0 || B <= 0 {
			return 0
		}
		return math.Exp(u.Translog.logU(math.Log(A), math.Log(B)))
	case KindStoneGeary:
		p := u.StoneGeary
		if A <= p.GammaA || B <= p.GammaB {
			return belowSubsistence
		}
		return p.AlphaA*math.Log(A-p.GammaA) + p.AlphaB*math.Log(B-p.GammaB)
	default:
		panic(fmt.Sprintf("economy: unhandled utility kind %d", u.Kind))
	}
}

func (p *TranslogParams) logU(lnA, lnB float64) float64 {
	return p.Alpha0 + p.AlphaA*lnA + p.AlphaB*lnB +
		0.5*p.BetaAA*lnA*lnA + 0.5*p.BetaBB*lnB*lnB + p.BetaAB*lnA*lnB
}

// MUA returns ∂U/∂A at the given bundle. On the boundary of ratio-based forms
// it is the one-sided limit, which may be +Inf but never NaN; reservation
// bounds use the epsilon-shifted variant.
func (u Utility) MUA(a, b int) float64 {
	muA, _ := u.marginals(float64(a), float64(b))
	return muA
}

// MUB returns ∂U/∂B at the given bundle.
func (u Utility) MUB(a, b int) float64 {
	_, muB := u.marginals(float64(a), float64(b))
	return muB
}

func (u Utility) marginals(A, B float64) (muA, muB float64) {
	switch u.Kind {
	case KindCES:
		p := u.CES
		if p.Rho == 0 {
			// Closed form; a zero on the other axis makes the partial zero.
			s := p.WA + p.WB
			aA, aB := p.WA/s, p.WB/s
			if B > 0 {
				muA = aA * math.Pow(A, aA-1) * math.Pow(B, aB)
			}
			if A > 0 {
				muB = aB * math.Pow(A, aA) * math.Pow(B, aB-1)
			}
			return muA, muB
		}
		if A <= 0 || B <= 0 {
			return p.boundaryMarginals(A, B)
		}
		inner := p.WA*math.Pow(A, p.Rho) + p.WB*math.Pow(B, p.Rho)
		common := math.Pow(inner, 1/p.Rho-1)
		return p.WA * math.Pow(A, p.Rho-1) * common, p.WB * math.Pow(B, p.Rho-1) * common
	case KindLinear:
		return u.Linear.VA, u.Linear.VB
	case KindQuadratic:
		p := u.Quadratic
		da, db := A-p.AStar, B-p.BStar
		muA = -2*da/(p.SigmaA*p.SigmaA) - p.Gamma*db
		muB = -2*db/(p.SigmaB*p.SigmaB) - p.Gamma*da
		return muA, muB
	case KindTranslog:
		p := u.Translog
		if A <= 0 || B <= 0 {
			// Utility is zero along both axes.
			if B > 0 {
				muA = math.Inf(1)
			}
			if A > 0 {
				muB = math.Inf(1)
			}
			return muA, muB
		}
		lnA, lnB := math.Log(A), math.Log(B)
		ua := math.Exp(p.logU(lnA, lnB))
		muA = ua / A * (p.AlphaA + p.BetaAA*lnA + p.BetaAB*lnB)
		muB = ua / B * (p.AlphaB + p.BetaBB*lnB + p.BetaAB*lnA)
		return muA, muB
	case KindStoneGeary:
		p := u.StoneGeary
		return p.AlphaA / (A - p.GammaA), p.AlphaB / (B - p.GammaB)
	default:
		panic(fmt.Sprintf("economy: unhandled utility kind %d", u.Kind))
	}
}

// boundaryMarginals returns the one-sided partials of a CES form with a zero
// quantity. With ρ > 0 the zero good's partial is +Inf while the other good is
// held; with ρ < 0 utility vanishes on both axes and only the zero good
// carries the limit weight^(1/ρ).
func (p *CESParams) boundaryMarginals(A, B float64) (muA, muB float64) {
	limA, limB := math.Pow(p.WA, 1/p.Rho), math.Pow(p.WB, 1/p.Rho)
	if p.Rho > 0 {
		muA, muB = limA, limB
		if A <= 0 && B > 0 {
			muA = math.Inf(1)
		}
		if B <= 0 && A > 0 {
			muB = math.Inf(1)
		}
		return muA, muB
	}
	if B > 0 {
		muA = limA
	}
	if A > 0 {
		muB = limB
	}
	return muA, muB
}

// ShiftedMarginals returns marginal utilities evaluated on a bundle where any
// quantity at the edge of the domain is moved inward by eps. Results are
// sanitized to [0, MaxReservationPrice].
func (u Utility) ShiftedMarginals(a, b int, eps float64) (muA, muB float64) {
	A, B := u.shift(float64(a), float64(b), eps)
	muA, muB = u.marginals(A, B)
	return sanitize(muA), sanitize(muB)
}

// shift moves zero (or at-subsistence) quantities inward by eps.
func (u Utility) shift(A, B, eps float64) (float64, float64) {
	floorA, floorB := 0.0, 0.0
	if u.Kind == KindStoneGeary {
		floorA, floorB = u.StoneGeary.GammaA, u.StoneGeary.GammaB
	}
	if A <= floorA {
		A = floorA + eps
	}
	if B <= floorB {
		B = floorB + eps
	}
	return A, B
}

// MRSAInB is the marginal rate of substitution of A in terms of B, computed
// on the epsilon-shifted bundle. Finite and non-negative.
func (u Utility) MRSAInB(a, b int, eps float64) float64 {
	A, B := u.shift(float64(a), float64(b), eps)
	switch u.Kind {
	case KindCES:
		p := u.CES
		if p.Rho == 0 {
			return sanitize((p.WA / p.WB) * (B / A))
		}
		return sanitize((p.WA / p.WB) * math.Pow(A/B, p.Rho-1))
	case KindLinear:
		return sanitize(u.Linear.VA / u.Linear.VB)
	case KindQuadratic:
		muA, muB := u.marginals(A, B)
		return ratio(muA, muB, eps)
	case KindTranslog:
		p := u.Translog
		lnA, lnB := math.Log(A), math.Log(B)
		num := p.AlphaA + p.BetaAA*lnA + p.BetaAB*lnB
		den := p.AlphaB + p.BetaBB*lnB + p.BetaAB*lnA
		return ratio(num*B, den*A, eps)
	case KindStoneGeary:
		p := u.StoneGeary
		return sanitize((p.AlphaA / p.AlphaB) * (B - p.GammaB) / (A - p.GammaA))
	default:
		panic(fmt.Sprintf("economy: unhandled utility kind %d", u.Kind))
	}
}

// ReservationBoundsAInB returns the price interval (units of B per unit of A)
// within which the agent is indifferent at the margin. Epsilon enters only the
// ratio, never UGoods.
func (u Utility) ReservationBoundsAInB(a, b int, eps float64) (pMin, pMax float64) {
	mrs := u.MRSAInB(a, b, eps)
	return mrs, mrs
}

// ratio divides two marginal values, treating non-positive numerators as a
// zero price and non-positive denominators as the price ceiling.
func ratio(num, den, eps float64) float64 {
	if num <= 0 || math.IsNaN(num) {
		return 0
	}
	if den <= eps || math.IsNaN(den) {
		return MaxReservationPrice
	}
	return sanitize(num / den)
}

func sanitize(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > MaxReservationPrice:
		return MaxReservationPrice
	case v < 0:
		return 0
	}
	return v
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
