package product

// ════════════════════════════════════════════════════════════════════
// Partial user input
// ════════════════════════════════════════════════════════════════════

// Input is the partial, user-facing product record as it arrives from a
// portfolio file or the HTTP API. Every field may be omitted; Resolve fills
// the gaps from the default table.
type Input struct {
	ID       string `json:"id" yaml:"id" mapstructure:"id" validate:"required"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Division string `json:"division,omitempty" yaml:"division,omitempty" mapstructure:"division"`

	Volumes             []float64 `json:"volumes" yaml:"volumes" mapstructure:"volumes" validate:"max=10,dive,gte=0"`
	QuarterlyAllocation []float64 `json:"quarterly_allocation,omitempty" yaml:"quarterly_allocation,omitempty" mapstructure:"quarterly_allocation" validate:"omitempty,len=4,dive,gte=0,lte=100"`

	AmortizationType string   `json:"amortization_type,omitempty" yaml:"amortization_type,omitempty" mapstructure:"amortization_type" validate:"omitempty,oneof=bullet french_no_grace french_with_grace"`
	Spread           *float64 `json:"spread,omitempty" yaml:"spread,omitempty" mapstructure:"spread" validate:"omitempty,gte=-5,lte=50"`
	RateType         string   `json:"rate_type,omitempty" yaml:"rate_type,omitempty" mapstructure:"rate_type" validate:"omitempty,oneof=fixed floating"`
	DurationQuarters *int     `json:"duration_quarters,omitempty" yaml:"duration_quarters,omitempty" mapstructure:"duration_quarters" validate:"omitempty,gt=0,lte=160"`
	GraceQuarters    *int     `json:"grace_quarters,omitempty" yaml:"grace_quarters,omitempty" mapstructure:"grace_quarters" validate:"omitempty,gte=0"`

	DangerRate         *float64 `json:"danger_rate,omitempty" yaml:"danger_rate,omitempty" mapstructure:"danger_rate" validate:"omitempty,gte=0,lte=100"`
	DefaultLagQuarters *int     `json:"default_lag_quarters,omitempty" yaml:"default_lag_quarters,omitempty" mapstructure:"default_lag_quarters" validate:"omitempty,gte=0"`
	Classification     string   `json:"classification,omitempty" yaml:"classification,omitempty" mapstructure:"classification" validate:"omitempty,oneof=standard sub_standard"`

	// Security: secured when Secured is true or LTV is set.
	Secured       *bool    `json:"secured,omitempty" yaml:"secured,omitempty" mapstructure:"secured"`
	LTV           *float64 `json:"ltv,omitempty" yaml:"ltv,omitempty" mapstructure:"ltv" validate:"omitempty,gt=0,lte=100"`
	Haircut       *float64 `json:"haircut,omitempty" yaml:"haircut,omitempty" mapstructure:"haircut" validate:"omitempty,gte=0,lte=100"`
	RecoveryCosts *float64 `json:"recovery_costs,omitempty" yaml:"recovery_costs,omitempty" mapstructure:"recovery_costs" validate:"omitempty,gte=0,lte=100"`
	LGD           *float64 `json:"lgd,omitempty" yaml:"lgd,omitempty" mapstructure:"lgd" validate:"omitempty,gte=0,lte=100"`

	CollateralActivationQuarters *int `json:"collateral_activation_quarters,omitempty" yaml:"collateral_activation_quarters,omitempty" mapstructure:"collateral_activation_quarters" validate:"omitempty,gte=0"`
	TimeToRecoverQuarters        *int `json:"time_to_recover_quarters,omitempty" yaml:"time_to_recover_quarters,omitempty" mapstructure:"time_to_recover_quarters" validate:"omitempty,gte=0"`

	Guarantee *GuaranteeInput `json:"guarantee,omitempty" yaml:"guarantee,omitempty" mapstructure:"guarantee" validate:"omitempty"`
}

// GuaranteeInput is the partial state-guarantee record.
type GuaranteeInput struct {
	Type               string   `json:"type" yaml:"type" mapstructure:"type" validate:"required,oneof=mcc sace eif regional"`
	Coverage           *float64 `json:"coverage,omitempty" yaml:"coverage,omitempty" mapstructure:"coverage" validate:"omitempty,gte=0,lte=100"`
	FixedValue         *float64 `json:"fixed_value,omitempty" yaml:"fixed_value,omitempty" mapstructure:"fixed_value" validate:"omitempty,gte=0"`
	ActivationQuarters *int     `json:"activation_quarters,omitempty" yaml:"activation_quarters,omitempty" mapstructure:"activation_quarters" validate:"omitempty,gte=0"`
}

// Float returns a pointer to v. Handy for building Input literals.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
