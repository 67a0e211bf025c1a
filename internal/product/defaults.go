package product

// ════════════════════════════════════════════════════════════════════
// Default table, applied by Resolve for every omitted field
// ════════════════════════════════════════════════════════════════════

const (
	DefaultAmortization       = AmortFrenchNoGrace
	DefaultSpread             = 3.0
	DefaultRateType           = RateFloating
	DefaultDangerRate         = 1.5
	DefaultDefaultLagQuarters = 8
	DefaultClassification     = ClassStandard
	DefaultDivision           = "default"

	DefaultLTV           = 70.0
	DefaultHaircut       = 20.0
	DefaultRecoveryCosts = 8.0
)

// DefaultQuarterlyAllocation spreads annual volumes evenly across quarters.
var DefaultQuarterlyAllocation = [4]float64{25, 25, 25, 25}

// defaultDuration is the maturity in quarters by amortization type.
var defaultDuration = map[AmortizationType]int{
	AmortBullet:          8,
	AmortFrenchNoGrace:   20,
	AmortFrenchWithGrace: 20,
}

// defaultGrace is the grace period in quarters by amortization type.
var defaultGrace = map[AmortizationType]int{
	AmortBullet:          0,
	AmortFrenchNoGrace:   0,
	AmortFrenchWithGrace: 4,
}

// defaultUnsecuredLGD is the LGD (percent) of unsecured products by
// amortization type. Bridge loans recover less than amortizing books.
var defaultUnsecuredLGD = map[AmortizationType]float64{
	AmortBullet:          55,
	AmortFrenchNoGrace:   45,
	AmortFrenchWithGrace: 45,
}

// Collateral recovery timing (quarters) by security type.
const (
	securedActivationQuarters   = 4
	unsecuredActivationQuarters = 2
	securedRecoveryQuarters     = 12
	unsecuredRecoveryQuarters   = 10
)

// guaranteeDefaults holds coverage (percent) and activation delay (quarters)
// per guarantor. MCC pays out fastest, regional funds slowest.
var guaranteeDefaults = map[GuaranteeType]struct {
	Coverage   float64
	Activation int
}{
	GuaranteeMCC:      {Coverage: 80, Activation: 2},
	GuaranteeSACE:     {Coverage: 70, Activation: 3},
	GuaranteeEIF:      {Coverage: 50, Activation: 4},
	GuaranteeRegional: {Coverage: 50, Activation: 6},
}

// DefaultTable is a flat, serialisable view of the default table, exposed
// through the API and the CLI.
type DefaultTable struct {
	AmortizationType    AmortizationType             `json:"amortization_type" yaml:"amortization_type"`
	Spread              float64                      `json:"spread" yaml:"spread"`
	RateType            RateType                     `json:"rate_type" yaml:"rate_type"`
	DangerRate          float64                      `json:"danger_rate" yaml:"danger_rate"`
	DefaultLagQuarters  int                          `json:"default_lag_quarters" yaml:"default_lag_quarters"`
	Classification      Classification               `json:"classification" yaml:"classification"`
	Division            string                       `json:"division" yaml:"division"`
	QuarterlyAllocation [4]float64                   `json:"quarterly_allocation" yaml:"quarterly_allocation"`
	DurationQuarters    map[AmortizationType]int     `json:"duration_quarters" yaml:"duration_quarters"`
	GraceQuarters       map[AmortizationType]int     `json:"grace_quarters" yaml:"grace_quarters"`
	UnsecuredLGD        map[AmortizationType]float64 `json:"unsecured_lgd" yaml:"unsecured_lgd"`
	Secured             Secured                      `json:"secured" yaml:"secured"`
	CollateralTiming    map[string][2]int            `json:"collateral_timing" yaml:"collateral_timing"` // [activation, duration]
	Guarantees          map[GuaranteeType][2]float64 `json:"guarantees" yaml:"guarantees"`               // [coverage, activation]
}

// Defaults returns a copy of the default table.
func Defaults() DefaultTable {
	t := DefaultTable{
		AmortizationType:    DefaultAmortization,
		Spread:              DefaultSpread,
		RateType:            DefaultRateType,
		DangerRate:          DefaultDangerRate,
		DefaultLagQuarters:  DefaultDefaultLagQuarters,
		Classification:      DefaultClassification,
		Division:            DefaultDivision,
		QuarterlyAllocation: DefaultQuarterlyAllocation,
		DurationQuarters:    make(map[AmortizationType]int, len(defaultDuration)),
		GraceQuarters:       make(map[AmortizationType]int, len(defaultGrace)),
		UnsecuredLGD:        make(map[AmortizationType]float64, len(defaultUnsecuredLGD)),
		Secured:             Secured{LTV: DefaultLTV, Haircut: DefaultHaircut, RecoveryCosts: DefaultRecoveryCosts},
		CollateralTiming: map[string][2]int{
			"secured":   {securedActivationQuarters, securedRecoveryQuarters},
			"unsecured": {unsecuredActivationQuarters, unsecuredRecoveryQuarters},
		},
		Guarantees: make(map[GuaranteeType][2]float64, len(guaranteeDefaults)),
	}
	for k, v := range defaultDuration {
		t.DurationQuarters[k] = v
	}
	for k, v := range defaultGrace {
		t.GraceQuarters[k] = v
	}
	for k, v := range defaultUnsecuredLGD {
		t.UnsecuredLGD[k] = v
	}
	for k, v := range guaranteeDefaults {
		t.Guarantees[k] = [2]float64{v.Coverage, float64(v.Activation)}
	}
	return t
}
