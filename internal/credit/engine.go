package credit

import (
	"github.com/fracarlesi/piano-excel-sub003/internal/product"
	"github.com/fracarlesi/piano-excel-sub003/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Per-product pipeline
// ════════════════════════════════════════════════════════════════════

// VintageResult is the full lifecycle of one vintage, kept for inspection.
// Events and cashflows past the horizon are present here even though the
// series drop them.
type VintageResult struct {
	Vintage  Vintage       `json:"vintage"`
	Schedule Schedule      `json:"schedule"`
	Default  *DefaultEvent `json:"default,omitempty"`
	Recovery *Recovery     `json:"recovery,omitempty"`
	NPV      []NPVSnapshot `json:"npv,omitempty"`
}

// ProductResult is the projection of one product.
type ProductResult struct {
	ProductID   string           `json:"product_id"`
	Name        string           `json:"name"`
	Division    string           `json:"division"`
	ProductRate float64          `json:"product_rate"` // annual percent
	Statement   models.Statement `json:"statement"`
	ECL         ECL              `json:"-"`
	Vintages    []VintageResult  `json:"vintages,omitempty"`
}

// series accumulates the quarterly values of a product before they are
// frozen into a Statement.
type series struct {
	originations, repayments, performing, interest models.QuarterlySeries
	gbv, writeDowns, npl, unwind                    models.QuarterlySeries
	collateral, guarantee                           models.QuarterlySeries
}

// Project runs the full lifecycle of one product: vintages, amortization,
// defaults, recoveries, NPV evolution and ECL.
func Project(cfg product.Config, g product.Globals) ProductResult {
	rate := product.ProductRate(cfg, g)
	vintages := GenerateVintages(cfg, g)

	var s series
	results := make([]VintageResult, 0, len(vintages))
	for _, v := range vintages {
		results = append(results, projectVintage(v, cfg, g, rate, &s))
	}

	e := ComputeECL(s.performing, cfg)
	st := models.Statement{
		NewOriginations:      models.NewLine(models.KindFlow, s.originations),
		Repayments:           models.NewLine(models.KindFlow, s.repayments),
		Performing:           models.NewLine(models.KindStock, s.performing),
		InterestIncome:       models.NewLine(models.KindFlow, s.interest),
		GBVDefaulted:         models.NewLine(models.KindFlow, s.gbv),
		WriteDowns:           models.NewLine(models.KindFlow, s.writeDowns),
		NonPerforming:        models.NewLine(models.KindStock, s.npl),
		NPLUnwind:            models.NewLine(models.KindFlow, s.unwind),
		CollateralRecoveries: models.NewLine(models.KindFlow, s.collateral),
		GuaranteeRecoveries:  models.NewLine(models.KindFlow, s.guarantee),
		ECLProvision:         models.NewLine(models.KindStock, e.Provision),
		ECLAddition:          models.NewLine(models.KindFlow, e.Addition),
	}

	return ProductResult{
		ProductID:   cfg.ID,
		Name:        cfg.Name,
		Division:    cfg.Division,
		ProductRate: rate,
		Statement:   st,
		ECL:         e,
		Vintages:    results,
	}
}

// projectVintage runs one vintage through the pipeline and adds its
// contribution to the product series. After the default quarter the vintage
// performs on its surviving fraction only.
func projectVintage(v Vintage, cfg product.Config, g product.Globals, rate float64, s *series) VintageResult {
	sched := BuildSchedule(v)
	res := VintageResult{Vintage: v, Schedule: sched}

	s.originations.Add(v.Start, v.Face)

	defaultQuarter, surviving := models.Quarters, 1.0
	if ev, ok := ComputeDefault(v, sched, cfg); ok {
		defaultQuarter, surviving = ev.Quarter, ev.SurvivingFraction()
		rec := Recover(ev, cfg, g)
		cfs := rec.Cashflows()
		snaps := EvolveNPV(ev, cfs, rate)

		res.Default, res.Recovery, res.NPV = &ev, &rec, snaps

		s.gbv.Add(ev.Quarter, ev.Amount)
		s.writeDowns.Add(ev.Quarter, ev.Amount-NPVAtDefault(snaps))
		for _, cf := range cfs {
			switch cf.Channel {
			case ChannelCollateral:
				s.collateral.Add(cf.Quarter, cf.Amount)
			case ChannelGuarantee:
				s.guarantee.Add(cf.Quarter, cf.Amount)
			}
		}
		for _, snap := range snaps {
			s.npl.Add(snap.Quarter, snap.Closing)
			s.unwind.Add(snap.Quarter, snap.Unwind)
		}
	}

	for q := sched.Start; q <= sched.End; q++ {
		out, _ := sched.OutstandingAt(q)
		principal := sched.PrincipalAt(q)
		interest := sched.InterestAt(q)
		if q >= defaultQuarter {
			out *= surviving
		}
		if q > defaultQuarter {
			principal *= surviving
			interest *= surviving
		}
		s.performing.Add(q, out)
		s.repayments.Add(q, principal)
		s.interest.Add(q, interest)
	}
	return res
}
