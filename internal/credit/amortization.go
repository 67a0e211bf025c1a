package credit

import (
	"github.com/shopspring/decimal"

	"github.com/fracarlesi/piano-excel-sub003/internal/product"
	"github.com/fracarlesi/piano-excel-sub003/pkg/models"
)

// decimalPlaces bounds the scale of intermediate schedule arithmetic.
const decimalPlaces = 28

var (
	one         = decimal.NewFromInt(1)
	fourHundred = decimal.NewFromInt(400)
)

// ════════════════════════════════════════════════════════════════════
// Amortization schedule
// ════════════════════════════════════════════════════════════════════

// Schedule is the amortization schedule of one vintage over the quarters
// [Start, End]. Slices are indexed by q - Start. Outstanding is the closing
// balance of the quarter, after that quarter's repayment.
type Schedule struct {
	VintageID   string            `json:"vintage_id"`
	Start       int               `json:"start"`
	End         int               `json:"end"`      // min(maturity, last horizon quarter)
	Maturity    int               `json:"maturity"` // contractual maturity quarter
	Installment decimal.Decimal   `json:"installment"`
	Outstanding []decimal.Decimal `json:"outstanding"`
	Principal   []decimal.Decimal `json:"principal"`
	Interest    []decimal.Decimal `json:"interest"`
}

// repaymentFunc returns the principal repaid in period i (1-based from the
// vintage start) given the opening balance and the interest of the period.
type repaymentFunc func(i int, opening, interest decimal.Decimal) decimal.Decimal

// BuildSchedule computes the amortization schedule of a vintage. Periods
// past the projection horizon are not computed.
func BuildSchedule(v Vintage) Schedule {
	end := v.MaturityQuarter()
	if end > models.Quarters-1 {
		end = models.Quarters - 1
	}
	n := end - v.Start + 1
	s := Schedule{
		VintageID:   v.ID,
		Start:       v.Start,
		End:         end,
		Maturity:    v.MaturityQuarter(),
		Installment: decimal.Zero,
		Outstanding: make([]decimal.Decimal, n),
		Principal:   make([]decimal.Decimal, n),
		Interest:    make([]decimal.Decimal, n),
	}

	r := quarterlyRate(v.Rate)
	var repay repaymentFunc
	switch a := v.Amortization.(type) {
	case product.Bullet:
		repay = bulletRepayment(v.Maturity)
	case product.FrenchNoGrace:
		s.Installment = Annuity(decimal.NewFromFloat(v.Face), r, v.Maturity)
		repay = frenchRepayment(s.Installment, 0, v.Maturity)
	case product.FrenchWithGrace:
		s.Installment = Annuity(decimal.NewFromFloat(v.Face), r, v.Maturity-a.GraceQuarters)
		repay = frenchRepayment(s.Installment, a.GraceQuarters, v.Maturity)
	default:
		repay = bulletRepayment(v.Maturity)
	}

	s.Outstanding[0] = decimal.NewFromFloat(v.Face)
	s.Principal[0] = decimal.Zero
	s.Interest[0] = decimal.Zero
	for i := 1; i < n; i++ {
		opening := s.Outstanding[i-1]
		interest := opening.Mul(r).Round(decimalPlaces)
		principal := repay(i, opening, interest)
		if principal.GreaterThan(opening) {
			principal = opening
		}
		if principal.IsNegative() {
			principal = decimal.Zero
		}
		s.Interest[i] = interest
		s.Principal[i] = principal
		s.Outstanding[i] = opening.Sub(principal)
	}
	return s
}

func bulletRepayment(maturity int) repaymentFunc {
	return func(i int, opening, _ decimal.Decimal) decimal.Decimal {
		if i == maturity {
			return opening
		}
		return decimal.Zero
	}
}

// frenchRepayment pays interest only for the first grace periods, then the
// constant installment. The last period repays the residual exactly.
func frenchRepayment(installment decimal.Decimal, grace, maturity int) repaymentFunc {
	return func(i int, opening, interest decimal.Decimal) decimal.Decimal {
		switch {
		case i <= grace:
			return decimal.Zero
		case i >= maturity:
			return opening
		default:
			return installment.Sub(interest)
		}
	}
}

// Annuity returns the constant installment repaying principal over n periods
// at periodic rate r: P = principal·r·(1+r)^n / ((1+r)^n − 1), or
// principal/n when r is zero.
func Annuity(principal, r decimal.Decimal, n int) decimal.Decimal {
	if n <= 0 {
		return principal
	}
	if r.IsZero() {
		return principal.DivRound(decimal.NewFromInt(int64(n)), decimalPlaces)
	}
	f := powInt(one.Add(r), n)
	return principal.Mul(r).Mul(f).DivRound(f.Sub(one), decimalPlaces)
}

// quarterlyRate converts an annual percentage rate to a quarterly fraction.
func quarterlyRate(annualPct float64) decimal.Decimal {
	return decimal.NewFromFloat(annualPct).DivRound(fourHundred, decimalPlaces)
}

func powInt(base decimal.Decimal, n int) decimal.Decimal {
	out := one
	for i := 0; i < n; i++ {
		out = out.Mul(base).Round(decimalPlaces)
	}
	return out
}

// ── Accessors ──

func (s Schedule) index(q int) (int, bool) {
	i := q - s.Start
	return i, i >= 0 && i < len(s.Outstanding)
}

// OutstandingAt returns the closing balance of quarter q, and false when the
// schedule has no entry for q.
func (s Schedule) OutstandingAt(q int) (float64, bool) {
	i, ok := s.index(q)
	if !ok {
		return 0, false
	}
	return s.Outstanding[i].InexactFloat64(), true
}

// PrincipalAt returns the principal repaid in quarter q.
func (s Schedule) PrincipalAt(q int) float64 {
	i, ok := s.index(q)
	if !ok {
		return 0
	}
	return s.Principal[i].InexactFloat64()
}

// InterestAt returns the interest accrued in quarter q.
func (s Schedule) InterestAt(q int) float64 {
	i, ok := s.index(q)
	if !ok {
		return 0
	}
	return s.Interest[i].InexactFloat64()
}

// TotalPrincipal is the sum of the scheduled repayments inside the horizon.
func (s Schedule) TotalPrincipal() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.Principal {
		total = total.Add(p)
	}
	return total
}

// Truncated reports whether the contractual maturity falls past the horizon,
// in which case repayments after End are not recorded.
func (s Schedule) Truncated() bool {
	return s.Maturity > s.End
}
