// Package product holds the per-product assumption bundle of a lending
// product and the resolution pass that turns partial user input into a
// fully-populated, validated Config.
//
// The three product dimensions are closed variants (sealed interfaces):
//
//	Amortization: Bullet | FrenchNoGrace | FrenchWithGrace
//	Security:     Secured | Unsecured
//	Guarantee:    NoGuarantee | StateGuarantee
//
// Calculators dispatch on them with type switches and never inspect raw
// strings or ask whether a field is present.
package product

// ════════════════════════════════════════════════════════════════════
// Enumerations
// ════════════════════════════════════════════════════════════════════

// AmortizationType is the user-facing amortization label.
type AmortizationType string

const (
	AmortBullet          AmortizationType = "bullet"
	AmortFrenchNoGrace   AmortizationType = "french_no_grace"
	AmortFrenchWithGrace AmortizationType = "french_with_grace"
)

// RateType selects the reference rate a product is priced on.
type RateType string

const (
	RateFixed    RateType = "fixed"
	RateFloating RateType = "floating"
)

// Classification is the credit classification of a product's book.
type Classification string

const (
	ClassStandard    Classification = "standard"
	ClassSubStandard Classification = "sub_standard"
)

// SubStandardMultiplier scales the danger rate of sub-standard books.
const SubStandardMultiplier = 2.5

// GuaranteeType identifies the public guarantor behind a state guarantee.
type GuaranteeType string

const (
	GuaranteeMCC      GuaranteeType = "mcc"      // Fondo di Garanzia PMI (Mediocredito Centrale)
	GuaranteeSACE     GuaranteeType = "sace"     // SACE
	GuaranteeEIF      GuaranteeType = "eif"      // European Investment Fund
	GuaranteeRegional GuaranteeType = "regional" // regional guarantee funds
)

// ════════════════════════════════════════════════════════════════════
// Closed variants
// ════════════════════════════════════════════════════════════════════

// Amortization is one of Bullet, FrenchNoGrace or FrenchWithGrace.
type Amortization interface {
	Type() AmortizationType
	isAmortization()
}

// Bullet repays the whole face amount at maturity (bridge loans).
type Bullet struct{}

// FrenchNoGrace is a constant-installment annuity from the first quarter.
type FrenchNoGrace struct{}

// FrenchWithGrace pays interest only for GraceQuarters, then amortizes as an
// annuity over the remaining periods.
type FrenchWithGrace struct {
	GraceQuarters int `json:"grace_quarters" yaml:"grace_quarters"`
}

func (Bullet) Type() AmortizationType          { return AmortBullet }
func (FrenchNoGrace) Type() AmortizationType   { return AmortFrenchNoGrace }
func (FrenchWithGrace) Type() AmortizationType { return AmortFrenchWithGrace }

func (Bullet) isAmortization()          {}
func (FrenchNoGrace) isAmortization()   {}
func (FrenchWithGrace) isAmortization() {}

// Security is one of Secured or Unsecured.
type Security interface {
	// BaseLGD returns the loss given default in percent before guarantees.
	BaseLGD() float64
	isSecurity()
}

// Secured products recover through collateral liquidation. All fields are
// percentages.
type Secured struct {
	LTV           float64 `json:"ltv" yaml:"ltv"`
	Haircut       float64 `json:"haircut" yaml:"haircut"`
	RecoveryCosts float64 `json:"recovery_costs" yaml:"recovery_costs"`
}

// Unsecured products recover a fixed share of the exposure.
type Unsecured struct {
	LGD float64 `json:"lgd" yaml:"lgd"` // percent
}

// RecoveryRate returns the net collateral recovery per unit of exposure,
// capped at 1.
func (s Secured) RecoveryRate() float64 {
	r := (100 / s.LTV) * (1 - s.Haircut/100) * (1 - s.RecoveryCosts/100)
	if r > 1 {
		return 1
	}
	return r
}

// BaseLGD is the complement of the collateral recovery rate, in percent.
func (s Secured) BaseLGD() float64 {
	return 100 * (1 - s.RecoveryRate())
}

// BaseLGD returns the configured LGD.
func (u Unsecured) BaseLGD() float64 {
	return u.LGD
}

func (Secured) isSecurity()   {}
func (Unsecured) isSecurity() {}

// Guarantee is one of NoGuarantee or StateGuarantee.
type Guarantee interface {
	isGuarantee()
}

// NoGuarantee marks products without a public guarantee.
type NoGuarantee struct{}

// StateGuarantee is a public guarantee covering part of the defaulted exposure.
type StateGuarantee struct {
	Type               GuaranteeType `json:"type" yaml:"type"`
	Coverage           float64       `json:"coverage" yaml:"coverage"`       // percent of the defaulted amount
	FixedValue         float64       `json:"fixed_value" yaml:"fixed_value"` // absolute override, 0 = use Coverage
	ActivationQuarters int           `json:"activation_quarters" yaml:"activation_quarters"`
}

func (NoGuarantee) isGuarantee()    {}
func (StateGuarantee) isGuarantee() {}

// ════════════════════════════════════════════════════════════════════
// Resolved configuration
// ════════════════════════════════════════════════════════════════════

// Years is the number of annual origination volumes per product.
const Years = 10

// Config is the immutable, fully-populated assumption bundle of one product.
// Build it with Resolve; calculators never see partial input.
type Config struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Division string `json:"division" yaml:"division"`

	// Origination
	Volumes             [Years]float64 `json:"volumes" yaml:"volumes"`                           // annual new business
	QuarterlyAllocation [4]float64     `json:"quarterly_allocation" yaml:"quarterly_allocation"` // percent per quarter, sums to 100

	// Pricing and schedule
	Spread           float64      `json:"spread" yaml:"spread"` // percent
	RateType         RateType     `json:"rate_type" yaml:"rate_type"`
	DurationQuarters int          `json:"duration_quarters" yaml:"duration_quarters"`
	Amortization     Amortization `json:"-" yaml:"-"`

	// Credit risk
	DangerRate         float64        `json:"danger_rate" yaml:"danger_rate"` // annual percent
	DefaultLagQuarters int            `json:"default_lag_quarters" yaml:"default_lag_quarters"`
	Classification     Classification `json:"classification" yaml:"classification"`

	// Recovery
	Security                     Security  `json:"-" yaml:"-"`
	Guarantee                    Guarantee `json:"-" yaml:"-"`
	CollateralActivationQuarters int       `json:"collateral_activation_quarters" yaml:"collateral_activation_quarters"`
	TimeToRecoverQuarters        int       `json:"time_to_recover_quarters" yaml:"time_to_recover_quarters"`
}

// GraceQuarters returns the grace period of the amortization variant.
func (c Config) GraceQuarters() int {
	if g, ok := c.Amortization.(FrenchWithGrace); ok {
		return g.GraceQuarters
	}
	return 0
}

// ClassificationMultiplier returns the danger-rate multiplier of the
// product's credit classification.
func (c Config) ClassificationMultiplier() float64 {
	if c.Classification == ClassSubStandard {
		return SubStandardMultiplier
	}
	return 1
}

// AdjustedDangerRate is the danger rate (percent) after the classification
// multiplier. Both the default event and the ECL provision use it.
func (c Config) AdjustedDangerRate() float64 {
	return c.DangerRate * c.ClassificationMultiplier()
}

// GuaranteeCoverage returns the guarantee coverage in percent, 0 when the
// product is not guaranteed.
func (c Config) GuaranteeCoverage() float64 {
	if g, ok := c.Guarantee.(StateGuarantee); ok {
		return g.Coverage
	}
	return 0
}

// EffectiveLGD is the base LGD reduced by the guarantee coverage, floored at 0.
// A guarantee FixedValue changes the recovered cash only; the ECL provision
// still uses the coverage percentage.
func (c Config) EffectiveLGD() float64 {
	if eff := c.Security.BaseLGD() - c.GuaranteeCoverage(); eff > 0 {
		return eff
	}
	return 0
}

// ════════════════════════════════════════════════════════════════════
// Global assumptions
// ════════════════════════════════════════════════════════════════════

// Globals are the portfolio-wide market assumptions supplied as a snapshot at
// computation time. All values are annual percentages.
type Globals struct {
	ReferenceRate      float64 `json:"reference_rate" yaml:"reference_rate" mapstructure:"reference_rate"`                   // floating benchmark, e.g. Euribor 3M
	FixedReferenceRate float64 `json:"fixed_reference_rate" yaml:"fixed_reference_rate" mapstructure:"fixed_reference_rate"` // swap rate for fixed-rate products
	CostOfFunds        float64 `json:"cost_of_funds" yaml:"cost_of_funds" mapstructure:"cost_of_funds"`                      // treasury discount rate for recoveries
}

// ProductRate returns the contractual annual rate (percent) of a product:
// spread plus the reference rate matching its rate type.
func ProductRate(c Config, g Globals) float64 {
	if c.RateType == RateFixed {
		return c.Spread + g.FixedReferenceRate
	}
	return c.Spread + g.ReferenceRate
}
