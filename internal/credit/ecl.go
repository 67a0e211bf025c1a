package credit

import (
	"github.com/fracarlesi/piano-excel-sub003/internal/product"
	"github.com/fracarlesi/piano-excel-sub003/pkg/models"
)

// ECL is the expected-credit-loss provision stock of a product and its
// quarterly movement. Negative additions are releases.
type ECL struct {
	Provision models.QuarterlySeries `json:"provision"`
	Addition  models.QuarterlySeries `json:"addition"`
}

// ComputeECL derives the provision from the performing stock:
// provision(q) = performing(q) × adjusted danger rate × effective LGD, and
// addition(q) = provision(q) - provision(q-1).
func ComputeECL(performing models.QuarterlySeries, cfg product.Config) ECL {
	danger := cfg.AdjustedDangerRate()
	lgd := cfg.EffectiveLGD()
	var e ECL
	prev := 0.0
	for q, stock := range performing {
		p := stock * danger / 100 * lgd / 100
		e.Provision[q] = p
		e.Addition[q] = p - prev
		prev = p
	}
	return e
}
