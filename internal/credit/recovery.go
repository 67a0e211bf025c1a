package credit

import (
	"math"
	"sort"

	"github.com/fracarlesi/piano-excel-sub003/internal/product"
	"github.com/fracarlesi/piano-excel-sub003/pkg/utils"
)

// Channel identifies a recovery channel.
type Channel string

const (
	ChannelCollateral Channel = "collateral"
	ChannelGuarantee  Channel = "guarantee"
)

// ChannelRecovery is what one channel recovers on a default event. The whole
// amount is received as a single cashflow at CashflowQuarter.
type ChannelRecovery struct {
	Channel           Channel `json:"channel"`
	Amount            float64 `json:"amount"`
	NPV               float64 `json:"npv"` // discounted at the cost of funds
	RecoveryTimeYears float64 `json:"recovery_time_years"`
	StartQuarter      int     `json:"start_quarter"`
	EndQuarter        int     `json:"end_quarter"`
}

// CashflowQuarter is the quarter the channel's cash is received.
func (c ChannelRecovery) CashflowQuarter() int {
	return c.EndQuarter
}

// Active reports whether the channel recovers anything.
func (c ChannelRecovery) Active() bool {
	return c.Amount > 0
}

// Recovery is the capped two-channel recovery of one default event.
type Recovery struct {
	Event      DefaultEvent    `json:"event"`
	Collateral ChannelRecovery `json:"collateral"`
	Guarantee  ChannelRecovery `json:"guarantee"`
}

// Cashflow is a dated recovery receipt.
type Cashflow struct {
	Channel Channel `json:"channel"`
	Quarter int     `json:"quarter"`
	Amount  float64 `json:"amount"`
}

// ════════════════════════════════════════════════════════════════════
// Channels
// ════════════════════════════════════════════════════════════════════

// CollateralRecovery recovers through collateral liquidation (secured) or a
// fixed LGD (unsecured). Recovery starts after the activation delay and is
// received at the end of the recovery window. The result never exceeds the
// defaulted amount.
func CollateralRecovery(e DefaultEvent, cfg product.Config, costOfFunds float64) ChannelRecovery {
	d := e.Amount
	var net float64
	switch s := cfg.Security.(type) {
	case product.Secured:
		collateral := d / (s.LTV / 100)
		gross := collateral * (1 - s.Haircut/100)
		net = gross * (1 - s.RecoveryCosts/100)
	case product.Unsecured:
		net = d * (1 - s.LGD/100)
	}
	net = math.Max(0, math.Min(net, d))

	start := e.Quarter + cfg.CollateralActivationQuarters
	end := start + cfg.TimeToRecoverQuarters
	return newChannelRecovery(ChannelCollateral, e.Quarter, net, start, end, costOfFunds)
}

// GuaranteeRecovery is the payout of a state guarantee: the fixed value when
// set, otherwise the covered share of the defaulted amount, capped at the
// defaulted amount and paid as a lump sum after the activation delay.
func GuaranteeRecovery(e DefaultEvent, cfg product.Config, costOfFunds float64) ChannelRecovery {
	g, ok := cfg.Guarantee.(product.StateGuarantee)
	if !ok {
		return ChannelRecovery{Channel: ChannelGuarantee, StartQuarter: e.Quarter, EndQuarter: e.Quarter}
	}
	d := e.Amount
	var amount float64
	if g.FixedValue > 0 {
		amount = math.Min(g.FixedValue, d)
	} else {
		amount = math.Min(d, d*g.Coverage/100)
	}
	q := e.Quarter + g.ActivationQuarters
	return newChannelRecovery(ChannelGuarantee, e.Quarter, amount, q, q, costOfFunds)
}

func newChannelRecovery(ch Channel, defaultQuarter int, amount float64, start, end int, costOfFunds float64) ChannelRecovery {
	years := utils.QuartersToYears(end - defaultQuarter)
	return ChannelRecovery{
		Channel:           ch,
		Amount:            amount,
		NPV:               amount * DiscountFactor(costOfFunds, years),
		RecoveryTimeYears: years,
		StartQuarter:      start,
		EndQuarter:        end,
	}
}

// DiscountFactor returns 1/(1+q)^years with q the quarterly rate of an
// annual percentage. The exponent is the recovery time in years.
func DiscountFactor(annualPct, years float64) float64 {
	q := annualPct / 100 / 4
	return 1 / math.Pow(1+q, years)
}

// ════════════════════════════════════════════════════════════════════
// Timing and capping
// ════════════════════════════════════════════════════════════════════

// Cap orders the two channels chronologically and caps them so that their
// sum never exceeds the defaulted amount: the earlier channel may take up to
// the full amount, the later one only what is left. On a tie the guarantee
// is considered first. NPVs are rescaled with the amounts.
func Cap(defaulted float64, collateral, guarantee ChannelRecovery) (ChannelRecovery, ChannelRecovery) {
	first, second := &guarantee, &collateral
	if collateral.CashflowQuarter() < guarantee.CashflowQuarter() {
		first, second = &collateral, &guarantee
	}
	capAt(first, defaulted)
	capAt(second, math.Max(0, defaulted-first.Amount))
	return collateral, guarantee
}

func capAt(c *ChannelRecovery, limit float64) {
	if c.Amount <= limit {
		return
	}
	if c.Amount > 0 {
		c.NPV *= limit / c.Amount
	}
	c.Amount = limit
}

// Recover runs both channels on a default event and applies the capping
// step.
func Recover(e DefaultEvent, cfg product.Config, g product.Globals) Recovery {
	col := CollateralRecovery(e, cfg, g.CostOfFunds)
	gar := GuaranteeRecovery(e, cfg, g.CostOfFunds)
	col, gar = Cap(e.Amount, col, gar)
	return Recovery{Event: e, Collateral: col, Guarantee: gar}
}

// Total is the cash recovered over both channels.
func (r Recovery) Total() float64 {
	return r.Collateral.Amount + r.Guarantee.Amount
}

// TotalNPV is the cost-of-funds NPV of both channels.
func (r Recovery) TotalNPV() float64 {
	return r.Collateral.NPV + r.Guarantee.NPV
}

// RecoveryRate is the recovered share of the defaulted amount.
func (r Recovery) RecoveryRate() float64 {
	if r.Event.Amount == 0 {
		return 0
	}
	return r.Total() / r.Event.Amount
}

// Cashflows returns one cashflow per active channel in chronological order,
// guarantee first on a tie.
func (r Recovery) Cashflows() []Cashflow {
	out := make([]Cashflow, 0, 2)
	for _, c := range []ChannelRecovery{r.Guarantee, r.Collateral} {
		if c.Active() {
			out = append(out, Cashflow{Channel: c.Channel, Quarter: c.CashflowQuarter(), Amount: c.Amount})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Quarter < out[j].Quarter })
	return out
}
