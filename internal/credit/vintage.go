// Package credit is the credit lifecycle engine: vintage generation,
// amortization schedules, default events, the two-channel recovery
// waterfall, NPV evolution of the non-performing book and the ECL
// provision.
//
// Every stage is a pure function over resolved product configuration and
// returns new values. The package performs no I/O and does not log.
package credit

import (
	"fmt"

	"github.com/fracarlesi/piano-excel-sub003/internal/product"
	"github.com/fracarlesi/piano-excel-sub003/pkg/models"
)

// Vintage is the cohort of loans one product originates in one quarter.
type Vintage struct {
	ID           string               `json:"id"`
	ProductID    string               `json:"product_id"`
	Start        int                  `json:"start"` // origination quarter
	Face         float64              `json:"face"`
	Rate         float64              `json:"rate"`     // annual percent
	Maturity     int                  `json:"maturity"` // quarters
	Grace        int                  `json:"grace"`    // quarters
	Amortization product.Amortization `json:"-"`
}

// GenerateVintages splits every annual volume across the four quarters of
// its year according to the product's quarterly allocation. Quarters with no
// new business produce no vintage.
func GenerateVintages(cfg product.Config, g product.Globals) []Vintage {
	rate := product.ProductRate(cfg, g)
	out := make([]Vintage, 0, models.Quarters)
	for y, volume := range cfg.Volumes {
		for k, share := range cfg.QuarterlyAllocation {
			face := volume * share / 100
			if face <= 0 {
				continue
			}
			start := y*models.QuartersPerYear + k
			out = append(out, Vintage{
				ID:           VintageID(cfg.ID, start),
				ProductID:    cfg.ID,
				Start:        start,
				Face:         face,
				Rate:         rate,
				Maturity:     cfg.DurationQuarters,
				Grace:        cfg.GraceQuarters(),
				Amortization: cfg.Amortization,
			})
		}
	}
	return out
}

// VintageID names the vintage of productID originated in quarter start.
func VintageID(productID string, start int) string {
	return fmt.Sprintf("%s/q%02d", productID, start)
}

// MaturityQuarter is the quarter the last contractual repayment falls in.
func (v Vintage) MaturityQuarter() int {
	return v.Start + v.Maturity
}
