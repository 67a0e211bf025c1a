package credit

import (
	"github.com/fracarlesi/piano-excel-sub003/internal/product"
	"github.com/fracarlesi/piano-excel-sub003/pkg/models"
)

// DefaultEvent is the single lump-sum default of a vintage.
type DefaultEvent struct {
	VintageID   string  `json:"vintage_id"`
	Quarter     int     `json:"quarter"`
	Outstanding float64 `json:"outstanding"` // balance the danger rate applies to
	DangerRate  float64 `json:"danger_rate"` // percent, after the classification multiplier
	Amount      float64 `json:"amount"`      // GBV defaulted
}

// ComputeDefault places the default of a vintage at start + lag and sizes it
// as the outstanding balance at that quarter times the adjusted danger rate.
// When the schedule has no entry for the default quarter the face amount is
// used. No event is produced past the horizon or for a zero amount.
func ComputeDefault(v Vintage, s Schedule, cfg product.Config) (DefaultEvent, bool) {
	q := v.Start + cfg.DefaultLagQuarters
	if q >= models.Quarters {
		return DefaultEvent{}, false
	}
	outstanding, ok := s.OutstandingAt(q)
	if !ok {
		outstanding = v.Face
	}
	rate := cfg.AdjustedDangerRate()
	amount := outstanding * rate / 100
	if amount <= 0 {
		return DefaultEvent{}, false
	}
	return DefaultEvent{
		VintageID:   v.ID,
		Quarter:     q,
		Outstanding: outstanding,
		DangerRate:  rate,
		Amount:      amount,
	}, true
}

// SurvivingFraction is the share of the vintage that keeps performing after
// the event.
func (e DefaultEvent) SurvivingFraction() float64 {
	return 1 - e.DangerRate/100
}
