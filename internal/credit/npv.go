package credit

import (
	"math"

	"github.com/fracarlesi/piano-excel-sub003/pkg/models"
)

// NPVSnapshot is the quarterly revaluation of one default event's remaining
// recoveries. Closing = Opening + NewDefault - CashReceived + Unwind.
type NPVSnapshot struct {
	Quarter      int     `json:"quarter"`
	Opening      float64 `json:"opening"`
	NewDefault   float64 `json:"new_default"` // non-zero in the default quarter only
	CashReceived float64 `json:"cash_received"`
	Unwind       float64 `json:"unwind"`
	Closing      float64 `json:"closing"`
}

// EvolveNPV revalues the non-performing position of a default event every
// quarter from the default quarter to the end of the horizon, discounting the
// cashflows not yet received at the product rate (annual percent). Closing
// is exactly zero once the last cashflow has been received.
func EvolveNPV(e DefaultEvent, cashflows []Cashflow, productRate float64) []NPVSnapshot {
	if e.Quarter < 0 || e.Quarter >= models.Quarters {
		return nil
	}
	r := productRate / 400
	out := make([]NPVSnapshot, 0, models.Quarters-e.Quarter)
	opening := 0.0
	for q := e.Quarter; q < models.Quarters; q++ {
		snap := NPVSnapshot{Quarter: q, Opening: opening}
		if q == e.Quarter {
			snap.NewDefault = presentValue(cashflows, q, r, true)
		}
		for _, cf := range cashflows {
			if cf.Quarter == q {
				snap.CashReceived += cf.Amount
			}
		}
		snap.Closing = presentValue(cashflows, q, r, false)
		snap.Unwind = snap.Closing - snap.Opening - snap.NewDefault + snap.CashReceived
		out = append(out, snap)
		opening = snap.Closing
	}
	return out
}

// presentValue discounts to quarter q the cashflows due after q, or at or
// after q when inclusive is set.
func presentValue(cashflows []Cashflow, q int, r float64, inclusive bool) float64 {
	pv := 0.0
	for _, cf := range cashflows {
		if cf.Quarter < q || (cf.Quarter == q && !inclusive) {
			continue
		}
		pv += cf.Amount / math.Pow(1+r, float64(cf.Quarter-q))
	}
	return pv
}

// NPVAtDefault is the value of the position booked in the default quarter.
func NPVAtDefault(snaps []NPVSnapshot) float64 {
	if len(snaps) == 0 {
		return 0
	}
	return snaps[0].NewDefault
}
