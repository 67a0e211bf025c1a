package product

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fracarlesi/piano-excel-sub003/pkg/utils"
)

// ErrInvalidInput is wrapped by every error Resolve returns.
var ErrInvalidInput = errors.New("invalid product input")

// allocationTolerance bounds the rounding slack on the quarterly allocation.
const allocationTolerance = 1e-6

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their json names so errors match the input files.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ════════════════════════════════════════════════════════════════════
// Resolution
// ════════════════════════════════════════════════════════════════════

// Resolve validates a partial Input and applies the default table to every
// omitted field. The returned Config is fully populated.
func Resolve(in Input) (Config, error) {
	in = normalize(in)
	if err := validate.Struct(in); err != nil {
		return Config{}, fmt.Errorf("product %q: %w: %w", in.ID, ErrInvalidInput, err)
	}

	amort := AmortizationType(in.AmortizationType)
	if amort == "" {
		amort = DefaultAmortization
	}

	cfg := Config{
		ID:                  in.ID,
		Name:                in.Name,
		Division:            in.Division,
		QuarterlyAllocation: DefaultQuarterlyAllocation,
		Spread:              floatOr(in.Spread, DefaultSpread),
		RateType:            RateType(in.RateType),
		DurationQuarters:    intOr(in.DurationQuarters, defaultDuration[amort]),
		DangerRate:          floatOr(in.DangerRate, DefaultDangerRate),
		DefaultLagQuarters:  intOr(in.DefaultLagQuarters, DefaultDefaultLagQuarters),
		Classification:      Classification(in.Classification),
	}
	if cfg.Name == "" {
		cfg.Name = cfg.ID
	}
	if cfg.Division == "" {
		cfg.Division = DefaultDivision
	}
	if cfg.RateType == "" {
		cfg.RateType = DefaultRateType
	}
	if cfg.Classification == "" {
		cfg.Classification = DefaultClassification
	}
	copy(cfg.Volumes[:], in.Volumes)
	if len(in.QuarterlyAllocation) == 4 {
		copy(cfg.QuarterlyAllocation[:], in.QuarterlyAllocation)
	}

	switch amort {
	case AmortBullet:
		cfg.Amortization = Bullet{}
	case AmortFrenchNoGrace:
		cfg.Amortization = FrenchNoGrace{}
	case AmortFrenchWithGrace:
		cfg.Amortization = FrenchWithGrace{GraceQuarters: intOr(in.GraceQuarters, defaultGrace[amort])}
	}

	secured := in.LTV != nil || (in.Secured != nil && *in.Secured)
	if secured {
		cfg.Security = Secured{
			LTV:           floatOr(in.LTV, DefaultLTV),
			Haircut:       floatOr(in.Haircut, DefaultHaircut),
			RecoveryCosts: floatOr(in.RecoveryCosts, DefaultRecoveryCosts),
		}
		cfg.CollateralActivationQuarters = intOr(in.CollateralActivationQuarters, securedActivationQuarters)
		cfg.TimeToRecoverQuarters = intOr(in.TimeToRecoverQuarters, securedRecoveryQuarters)
	} else {
		cfg.Security = Unsecured{LGD: floatOr(in.LGD, defaultUnsecuredLGD[amort])}
		cfg.CollateralActivationQuarters = intOr(in.CollateralActivationQuarters, unsecuredActivationQuarters)
		cfg.TimeToRecoverQuarters = intOr(in.TimeToRecoverQuarters, unsecuredRecoveryQuarters)
	}

	cfg.Guarantee = NoGuarantee{}
	if g := in.Guarantee; g != nil {
		gt := GuaranteeType(g.Type)
		d := guaranteeDefaults[gt]
		cfg.Guarantee = StateGuarantee{
			Type:               gt,
			Coverage:           floatOr(g.Coverage, d.Coverage),
			FixedValue:         floatOr(g.FixedValue, 0),
			ActivationQuarters: intOr(g.ActivationQuarters, d.Activation),
		}
	}

	if err := check(cfg); err != nil {
		return Config{}, fmt.Errorf("product %q: %w: %w", cfg.ID, ErrInvalidInput, err)
	}
	return cfg, nil
}

// ResolveAll resolves a whole portfolio. Product IDs must be unique after
// normalisation.
func ResolveAll(inputs []Input) ([]Config, error) {
	seen := make(map[string]bool, len(inputs))
	out := make([]Config, 0, len(inputs))
	for i, in := range inputs {
		cfg, err := Resolve(in)
		if err != nil {
			return nil, fmt.Errorf("products[%d]: %w", i, err)
		}
		if seen[cfg.ID] {
			return nil, fmt.Errorf("products[%d]: %w: duplicate id %q", i, ErrInvalidInput, cfg.ID)
		}
		seen[cfg.ID] = true
		out = append(out, cfg)
	}
	return out, nil
}

// check enforces the cross-field rules struct tags cannot express.
func check(c Config) error {
	sum := 0.0
	for _, a := range c.QuarterlyAllocation {
		sum += a
	}
	if math.Abs(sum-100) > allocationTolerance {
		return fmt.Errorf("quarterly_allocation sums to %.4f, want 100", sum)
	}
	if s, ok := c.Security.(Secured); ok && s.LTV <= 0 {
		return fmt.Errorf("ltv must be positive, got %v", s.LTV)
	}
	if g := c.GraceQuarters(); g >= c.DurationQuarters {
		return fmt.Errorf("grace_quarters %d must be below duration_quarters %d", g, c.DurationQuarters)
	}
	if d := c.AdjustedDangerRate(); d > 100 {
		return fmt.Errorf("danger_rate after classification multiplier is %.2f%%, above 100%%", d)
	}
	return nil
}

func normalize(in Input) Input {
	in.ID = utils.NormalizeProductID(in.ID)
	in.AmortizationType = enumKey(in.AmortizationType)
	in.RateType = enumKey(in.RateType)
	in.Classification = enumKey(in.Classification)
	if in.Guarantee != nil {
		g := *in.Guarantee
		g.Type = enumKey(g.Type)
		in.Guarantee = &g
	}
	return in
}

// enumKey folds "French-No Grace" style labels to "french_no_grace".
func enumKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// ════════════════════════════════════════════════════════════════════
// Flat view
// ════════════════════════════════════════════════════════════════════

// ConfigView is a flat, serialisable rendering of a resolved Config with the
// closed variants spelled out. Used by the CLI resolve command and the API.
type ConfigView struct {
	Config           `json:",inline" yaml:",inline"`
	AmortizationType AmortizationType `json:"amortization_type" yaml:"amortization_type"`
	GraceQuarters    int              `json:"grace_quarters" yaml:"grace_quarters"`
	Secured          *Secured         `json:"secured,omitempty" yaml:"secured,omitempty"`
	Unsecured        *Unsecured       `json:"unsecured,omitempty" yaml:"unsecured,omitempty"`
	StateGuarantee   *StateGuarantee  `json:"state_guarantee,omitempty" yaml:"state_guarantee,omitempty"`
	BaseLGD          float64          `json:"base_lgd" yaml:"base_lgd"`
	EffectiveLGD     float64          `json:"effective_lgd" yaml:"effective_lgd"`
	AdjustedDanger   float64          `json:"adjusted_danger_rate" yaml:"adjusted_danger_rate"`
}

// View flattens a resolved Config.
func View(c Config) ConfigView {
	v := ConfigView{
		Config:           c,
		AmortizationType: c.Amortization.Type(),
		GraceQuarters:    c.GraceQuarters(),
		BaseLGD:          c.Security.BaseLGD(),
		EffectiveLGD:     c.EffectiveLGD(),
		AdjustedDanger:   c.AdjustedDangerRate(),
	}
	switch s := c.Security.(type) {
	case Secured:
		v.Secured = &s
	case Unsecured:
		v.Unsecured = &s
	}
	if g, ok := c.Guarantee.(StateGuarantee); ok {
		v.StateGuarantee = &g
	}
	return v
}
