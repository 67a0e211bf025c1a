package portfolio

import "github.com/fracarlesi/piano-excel-sub003/pkg/models"

// NetPerforming is the performing stock net of the ECL provision.
func NetPerforming(st models.Statement) models.Line {
	return models.NewLine(models.KindStock, st.Performing.Quarterly.Minus(st.ECLProvision.Quarterly))
}

// NonPerforming is the NPV balance of the defaulted book.
func NonPerforming(st models.Statement) models.Line {
	return models.NewLine(models.KindStock, st.NonPerforming.Quarterly)
}

// Recoveries is the cash recovered over both channels.
func Recoveries(st models.Statement) models.Line {
	return models.NewLine(models.KindFlow, st.CollateralRecoveries.Quarterly.Plus(st.GuaranteeRecoveries.Quarterly))
}

// TotalAssets is net performing plus non-performing.
func TotalAssets(st models.Statement) models.Line {
	return models.NewLine(models.KindStock, NetPerforming(st).Quarterly.Plus(st.NonPerforming.Quarterly))
}

// ComputeTotals derives the balance-sheet views of a statement.
func ComputeTotals(st models.Statement) models.Totals {
	return models.Totals{
		NetPerforming: NetPerforming(st),
		NonPerforming: NonPerforming(st),
		TotalAssets:   TotalAssets(st),
		Recoveries:    Recoveries(st),
	}
}
