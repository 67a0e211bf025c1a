package product

import (
	"errors"
	"math"
	"testing"

	"github.com/go-playground/validator/v10"
)

// ── Resolve defaults ──

func TestResolveAppliesDefaults(t *testing.T) {
	cfg, err := Resolve(Input{ID: "SME Loan", Volumes: []float64{100}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.ID != "sme_loan" {
		t.Errorf("ID: got %q, want sme_loan", cfg.ID)
	}
	if cfg.Name != cfg.ID {
		t.Errorf("Name: got %q, want the ID", cfg.Name)
	}
	if cfg.Division != DefaultDivision {
		t.Errorf("Division: got %q", cfg.Division)
	}
	if _, ok := cfg.Amortization.(FrenchNoGrace); !ok {
		t.Errorf("Amortization: got %T, want FrenchNoGrace", cfg.Amortization)
	}
	if cfg.DurationQuarters != 20 {
		t.Errorf("DurationQuarters: got %d, want 20", cfg.DurationQuarters)
	}
	if cfg.Spread != DefaultSpread || cfg.RateType != RateFloating {
		t.Errorf("pricing: got %v/%s", cfg.Spread, cfg.RateType)
	}
	if cfg.DangerRate != DefaultDangerRate || cfg.DefaultLagQuarters != DefaultDefaultLagQuarters {
		t.Errorf("risk: got %v/%d", cfg.DangerRate, cfg.DefaultLagQuarters)
	}
	u, ok := cfg.Security.(Unsecured)
	if !ok {
		t.Fatalf("Security: got %T, want Unsecured", cfg.Security)
	}
	if u.LGD != 45 {
		t.Errorf("LGD: got %v, want 45", u.LGD)
	}
	if cfg.CollateralActivationQuarters != 2 || cfg.TimeToRecoverQuarters != 10 {
		t.Errorf("timing: got %d/%d, want 2/10", cfg.CollateralActivationQuarters, cfg.TimeToRecoverQuarters)
	}
	if _, ok := cfg.Guarantee.(NoGuarantee); !ok {
		t.Errorf("Guarantee: got %T, want NoGuarantee", cfg.Guarantee)
	}
	if cfg.Volumes[0] != 100 || cfg.Volumes[9] != 0 {
		t.Errorf("Volumes: got %v", cfg.Volumes)
	}
	if cfg.QuarterlyAllocation != DefaultQuarterlyAllocation {
		t.Errorf("QuarterlyAllocation: got %v", cfg.QuarterlyAllocation)
	}
}

func TestResolveTypeDependentDefaults(t *testing.T) {
	tests := []struct {
		amort    string
		duration int
		grace    int
		lgd      float64
	}{
		{"bullet", 8, 0, 55},
		{"French-No-Grace", 20, 0, 45},
		{"french with grace", 20, 4, 45},
	}
	for _, tt := range tests {
		t.Run(tt.amort, func(t *testing.T) {
			cfg, err := Resolve(Input{ID: "p", AmortizationType: tt.amort})
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if cfg.DurationQuarters != tt.duration {
				t.Errorf("duration: got %d, want %d", cfg.DurationQuarters, tt.duration)
			}
			if cfg.GraceQuarters() != tt.grace {
				t.Errorf("grace: got %d, want %d", cfg.GraceQuarters(), tt.grace)
			}
			if got := cfg.Security.BaseLGD(); got != tt.lgd {
				t.Errorf("lgd: got %v, want %v", got, tt.lgd)
			}
		})
	}
}

func TestResolveSecuredWhenLTVGiven(t *testing.T) {
	cfg, err := Resolve(Input{ID: "mortgage", LTV: Float(60)})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	s, ok := cfg.Security.(Secured)
	if !ok {
		t.Fatalf("Security: got %T, want Secured", cfg.Security)
	}
	if s.LTV != 60 || s.Haircut != DefaultHaircut || s.RecoveryCosts != DefaultRecoveryCosts {
		t.Errorf("Secured: got %+v", s)
	}
	if cfg.CollateralActivationQuarters != 4 || cfg.TimeToRecoverQuarters != 12 {
		t.Errorf("timing: got %d/%d, want 4/12", cfg.CollateralActivationQuarters, cfg.TimeToRecoverQuarters)
	}

	cfg, err = Resolve(Input{ID: "mortgage", Secured: Bool(true)})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s := cfg.Security.(Secured); s.LTV != DefaultLTV {
		t.Errorf("default LTV: got %v", s.LTV)
	}
}

func TestResolveGuaranteeDefaults(t *testing.T) {
	tests := []struct {
		typ        string
		coverage   float64
		activation int
	}{
		{"MCC", 80, 2},
		{"sace", 70, 3},
		{"eif", 50, 4},
		{"regional", 50, 6},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			cfg, err := Resolve(Input{ID: "p", Guarantee: &GuaranteeInput{Type: tt.typ}})
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			g, ok := cfg.Guarantee.(StateGuarantee)
			if !ok {
				t.Fatalf("Guarantee: got %T", cfg.Guarantee)
			}
			if g.Coverage != tt.coverage || g.ActivationQuarters != tt.activation {
				t.Errorf("got %v/%d, want %v/%d", g.Coverage, g.ActivationQuarters, tt.coverage, tt.activation)
			}
		})
	}
}

func TestResolveKeepsExplicitValues(t *testing.T) {
	in := Input{
		ID:                    "bridge",
		AmortizationType:      "bullet",
		Spread:                Float(0),
		DurationQuarters:      Int(4),
		DangerRate:            Float(0),
		DefaultLagQuarters:    Int(0),
		LGD:                   Float(30),
		TimeToRecoverQuarters: Int(0),
		QuarterlyAllocation:   []float64{100, 0, 0, 0},
		Guarantee:             &GuaranteeInput{Type: "sace", Coverage: Float(0), FixedValue: Float(10)},
	}
	cfg, err := Resolve(in)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Spread != 0 || cfg.DangerRate != 0 || cfg.DefaultLagQuarters != 0 || cfg.TimeToRecoverQuarters != 0 {
		t.Errorf("explicit zeros must survive: %+v", cfg)
	}
	if cfg.DurationQuarters != 4 {
		t.Errorf("DurationQuarters: got %d", cfg.DurationQuarters)
	}
	if cfg.QuarterlyAllocation != [4]float64{100, 0, 0, 0} {
		t.Errorf("QuarterlyAllocation: got %v", cfg.QuarterlyAllocation)
	}
	g := cfg.Guarantee.(StateGuarantee)
	if g.Coverage != 0 || g.FixedValue != 10 {
		t.Errorf("guarantee: got %+v", g)
	}
}

// ── Validation ──

func TestResolveRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{"missing id", Input{}},
		{"negative danger rate", Input{ID: "p", DangerRate: Float(-1)}},
		{"ltv above 100", Input{ID: "p", LTV: Float(120)}},
		{"zero ltv", Input{ID: "p", LTV: Float(0)}},
		{"unknown amortization", Input{ID: "p", AmortizationType: "balloon"}},
		{"unknown guarantee", Input{ID: "p", Guarantee: &GuaranteeInput{Type: "bank"}}},
		{"too many volumes", Input{ID: "p", Volumes: make([]float64, 11)}},
		{"negative volume", Input{ID: "p", Volumes: []float64{-5}}},
		{"allocation not 100", Input{ID: "p", QuarterlyAllocation: []float64{50, 50, 50, 50}}},
		{"grace not below duration", Input{ID: "p", AmortizationType: "french_with_grace", DurationQuarters: Int(4), GraceQuarters: Int(4)}},
		{"adjusted danger above 100", Input{ID: "p", DangerRate: Float(50), Classification: "sub_standard"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.in)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("error should wrap ErrInvalidInput: %v", err)
			}
		})
	}
}

func TestResolveExposesValidationErrors(t *testing.T) {
	_, err := Resolve(Input{ID: "p", Haircut: Float(150)})
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validator.ValidationErrors, got %v", err)
	}
	if verrs[0].Field() != "haircut" {
		t.Errorf("field: got %q, want haircut", verrs[0].Field())
	}
}

func TestResolveAllRejectsDuplicateIDs(t *testing.T) {
	_, err := ResolveAll([]Input{{ID: "SME Loan"}, {ID: "sme_loan"}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected duplicate id error, got %v", err)
	}

	cfgs, err := ResolveAll([]Input{{ID: "a"}, {ID: "b"}})
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	if len(cfgs) != 2 {
		t.Errorf("got %d configs, want 2", len(cfgs))
	}
}

func TestResolveAllKeepsDistinctIDs(t *testing.T) {
	cfgs, err := ResolveAll([]Input{{ID: "sme"}, {ID: "PMI"}, {ID: "bridge"}})
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	want := []string{"sme", "pmi", "bridge"}
	for i, cfg := range cfgs {
		if cfg.ID != want[i] {
			t.Errorf("products[%d].ID: got %q, want %q", i, cfg.ID, want[i])
		}
	}
}

// ── Derived values ──

func TestSecuredBaseLGD(t *testing.T) {
	// 100/70 × 0.8 × 0.92 > 1, so the collateral covers the exposure.
	s := Secured{LTV: 70, Haircut: 20, RecoveryCosts: 8}
	if s.RecoveryRate() != 1 || s.BaseLGD() != 0 {
		t.Errorf("got rate %v lgd %v, want 1/0", s.RecoveryRate(), s.BaseLGD())
	}

	s = Secured{LTV: 100, Haircut: 40, RecoveryCosts: 10}
	want := 100 * (1 - 0.6*0.9)
	if math.Abs(s.BaseLGD()-want) > 1e-12 {
		t.Errorf("BaseLGD: got %v, want %v", s.BaseLGD(), want)
	}
}

func TestEffectiveLGDFloorsAtZero(t *testing.T) {
	c := Config{Security: Unsecured{LGD: 45}, Guarantee: StateGuarantee{Coverage: 70}}
	if c.EffectiveLGD() != 0 {
		t.Errorf("EffectiveLGD: got %v, want 0", c.EffectiveLGD())
	}
	c.Guarantee = StateGuarantee{Coverage: 20}
	if c.EffectiveLGD() != 25 {
		t.Errorf("EffectiveLGD: got %v, want 25", c.EffectiveLGD())
	}
	c.Guarantee = NoGuarantee{}
	if c.EffectiveLGD() != 45 {
		t.Errorf("EffectiveLGD: got %v, want 45", c.EffectiveLGD())
	}
	if c.GuaranteeCoverage() != 0 {
		t.Errorf("GuaranteeCoverage without guarantee: got %v, want 0", c.GuaranteeCoverage())
	}
}

func TestEffectiveLGDIgnoresFixedValue(t *testing.T) {
	c := Config{Security: Unsecured{LGD: 45}, Guarantee: StateGuarantee{Coverage: 20, FixedValue: 1000}}
	if c.GuaranteeCoverage() != 20 {
		t.Errorf("GuaranteeCoverage: got %v, want 20", c.GuaranteeCoverage())
	}
	if c.EffectiveLGD() != 25 {
		t.Errorf("EffectiveLGD: got %v, want 25", c.EffectiveLGD())
	}
}

func TestAdjustedDangerRate(t *testing.T) {
	c := Config{DangerRate: 2, Classification: ClassSubStandard}
	if c.AdjustedDangerRate() != 5 {
		t.Errorf("got %v, want 5", c.AdjustedDangerRate())
	}
	c.Classification = ClassStandard
	if c.AdjustedDangerRate() != 2 {
		t.Errorf("got %v, want 2", c.AdjustedDangerRate())
	}
}

func TestProductRate(t *testing.T) {
	g := Globals{ReferenceRate: 3.5, FixedReferenceRate: 2.75}
	if got := ProductRate(Config{Spread: 2, RateType: RateFloating}, g); got != 5.5 {
		t.Errorf("floating: got %v, want 5.5", got)
	}
	if got := ProductRate(Config{Spread: 2, RateType: RateFixed}, g); got != 4.75 {
		t.Errorf("fixed: got %v, want 4.75", got)
	}
}

func TestViewSpellsOutVariants(t *testing.T) {
	cfg, err := Resolve(Input{ID: "p", LTV: Float(80), Guarantee: &GuaranteeInput{Type: "eif"}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	v := View(cfg)
	if v.Secured == nil || v.Unsecured != nil {
		t.Errorf("security view: %+v / %+v", v.Secured, v.Unsecured)
	}
	if v.StateGuarantee == nil || v.StateGuarantee.Type != GuaranteeEIF {
		t.Errorf("guarantee view: %+v", v.StateGuarantee)
	}
	if v.AmortizationType != AmortFrenchNoGrace {
		t.Errorf("amortization: got %s", v.AmortizationType)
	}
}

func TestDefaultsReturnsCopy(t *testing.T) {
	d := Defaults()
	d.DurationQuarters[AmortBullet] = 99
	if Defaults().DurationQuarters[AmortBullet] != 8 {
		t.Error("Defaults must not expose the package table")
	}
}
