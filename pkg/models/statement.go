package models

// --- Credit statement lines ---

// Statement holds every projected line for one product, one division or the
// consolidated portfolio. Division and consolidated statements are plain
// element-wise sums of the product statements.
type Statement struct {
	// Performing book
	NewOriginations Line `json:"new_originations"`
	Repayments      Line `json:"repayments"`
	Performing      Line `json:"performing"` // outstanding performing principal
	InterestIncome  Line `json:"interest_income"`

	// Default and non-performing book
	GBVDefaulted         Line `json:"gbv_defaulted"`
	WriteDowns           Line `json:"write_downs"`    // GBV defaulted less NPV at default
	NonPerforming        Line `json:"non_performing"` // NPV of outstanding recoveries
	NPLUnwind            Line `json:"npl_unwind"`     // time-value unwind of the NPV
	CollateralRecoveries Line `json:"collateral_recoveries"`
	GuaranteeRecoveries  Line `json:"guarantee_recoveries"`

	// Expected credit loss
	ECLProvision Line `json:"ecl_provision"`
	ECLAddition  Line `json:"ecl_addition"` // negative values are releases
}

// NewStatement returns a statement whose lines carry the right kinds and
// all-zero values.
func NewStatement() Statement {
	var zero QuarterlySeries
	return Statement{
		NewOriginations:      NewLine(KindFlow, zero),
		Repayments:           NewLine(KindFlow, zero),
		Performing:           NewLine(KindStock, zero),
		InterestIncome:       NewLine(KindFlow, zero),
		GBVDefaulted:         NewLine(KindFlow, zero),
		WriteDowns:           NewLine(KindFlow, zero),
		NonPerforming:        NewLine(KindStock, zero),
		NPLUnwind:            NewLine(KindFlow, zero),
		CollateralRecoveries: NewLine(KindFlow, zero),
		GuaranteeRecoveries:  NewLine(KindFlow, zero),
		ECLProvision:         NewLine(KindStock, zero),
		ECLAddition:          NewLine(KindFlow, zero),
	}
}

// Plus returns the element-wise sum of two statements.
func (s Statement) Plus(o Statement) Statement {
	return Statement{
		NewOriginations:      s.NewOriginations.Plus(o.NewOriginations),
		Repayments:           s.Repayments.Plus(o.Repayments),
		Performing:           s.Performing.Plus(o.Performing),
		InterestIncome:       s.InterestIncome.Plus(o.InterestIncome),
		GBVDefaulted:         s.GBVDefaulted.Plus(o.GBVDefaulted),
		WriteDowns:           s.WriteDowns.Plus(o.WriteDowns),
		NonPerforming:        s.NonPerforming.Plus(o.NonPerforming),
		NPLUnwind:            s.NPLUnwind.Plus(o.NPLUnwind),
		CollateralRecoveries: s.CollateralRecoveries.Plus(o.CollateralRecoveries),
		GuaranteeRecoveries:  s.GuaranteeRecoveries.Plus(o.GuaranteeRecoveries),
		ECLProvision:         s.ECLProvision.Plus(o.ECLProvision),
		ECLAddition:          s.ECLAddition.Plus(o.ECLAddition),
	}
}

// NamedLine pairs a display label with a line.
type NamedLine struct {
	Key   string
	Label string
	Line  Line
}

// Lines returns the statement lines in presentation order.
func (s Statement) Lines() []NamedLine {
	return []NamedLine{
		{"new_originations", "New originations", s.NewOriginations},
		{"repayments", "Repayments", s.Repayments},
		{"performing", "Performing stock", s.Performing},
		{"interest_income", "Interest income", s.InterestIncome},
		{"gbv_defaulted", "GBV defaulted", s.GBVDefaulted},
		{"write_downs", "Write-downs at default", s.WriteDowns},
		{"non_performing", "Non-performing (NPV)", s.NonPerforming},
		{"npl_unwind", "NPV time-value unwind", s.NPLUnwind},
		{"collateral_recoveries", "Collateral recoveries", s.CollateralRecoveries},
		{"guarantee_recoveries", "State guarantee recoveries", s.GuaranteeRecoveries},
		{"ecl_provision", "ECL provision stock", s.ECLProvision},
		{"ecl_addition", "ECL addition / (release)", s.ECLAddition},
	}
}

// --- Balance sheet views ---

// Totals are the balance-sheet views derived from a statement.
type Totals struct {
	NetPerforming Line `json:"net_performing"` // performing less ECL provision
	NonPerforming Line `json:"non_performing"`
	TotalAssets   Line `json:"total_assets"` // net performing plus non-performing
	Recoveries    Line `json:"recoveries"`   // cash recovered over both channels
}
