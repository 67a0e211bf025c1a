package report

import (
	"fmt"
	"html/template"
	"io"

	"github.com/fracarlesi/piano-excel-sub003/internal/portfolio"
	"github.com/fracarlesi/piano-excel-sub003/pkg/models"
	"github.com/fracarlesi/piano-excel-sub003/pkg/utils"
)

// htmlData is the template model.
type htmlData struct {
	*Data
	BalanceChart  template.HTML
	RecoveryChart template.HTML
}

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"amount":   func(v float64) string { return utils.FormatAmount(v, 2) },
	"negative": func(v float64) bool { return v < -0.005 },
}).Parse(ReportTemplate))

// WriteHTML renders a self-contained HTML report with embedded SVG charts.
func WriteHTML(w io.Writer, d *Data, res *portfolio.Result, cfg Config) error {
	hd := htmlData{Data: d}
	if res != nil {
		hd.BalanceChart, hd.RecoveryChart = charts(res, cfg)
	}
	if err := reportTmpl.Execute(w, hd); err != nil {
		return fmt.Errorf("executing template: %w", err)
	}
	return nil
}

// charts draws the year-end balance sheet and the yearly recovery cash.
func charts(res *portfolio.Result, cfg Config) (template.HTML, template.HTML) {
	labels := make([]string, models.Years)
	for y := range labels {
		labels[y] = utils.YearLabel(cfg.StartYear, y)
	}
	yearEnd := func(l models.Line) []float64 {
		if l.YearEnd == nil {
			return l.Annual[:]
		}
		return l.YearEnd[:]
	}

	bc := cfg.ChartCfg
	bc.Title = "Balance sheet at year end"
	balance := LineChart([]ChartSeries{
		{Name: "Total assets", Values: yearEnd(res.Totals.TotalAssets)},
		{Name: "Net performing", Values: yearEnd(res.Totals.NetPerforming)},
		{Name: "Non-performing (NPV)", Values: yearEnd(res.Totals.NonPerforming)},
	}, labels, bc)

	rc := cfg.ChartCfg
	rc.Title = "Recoveries by channel"
	recovery := StackedBarChart([]ChartSeries{
		{Name: "Collateral", Values: res.Consolidated.CollateralRecoveries.Annual[:]},
		{Name: "State guarantee", Values: res.Consolidated.GuaranteeRecoveries.Annual[:]},
	}, labels, rc)

	// Charts are generated from numbers and escaped labels only.
	return template.HTML(balance), template.HTML(recovery)
}
