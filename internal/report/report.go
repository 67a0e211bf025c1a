// Package report renders portfolio projections for people: a terminal
// table, a CSV extract for spreadsheets and a self-contained HTML report
// with SVG charts, optionally converted to PDF.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fracarlesi/piano-excel-sub003/internal/portfolio"
	"github.com/fracarlesi/piano-excel-sub003/pkg/models"
	"github.com/fracarlesi/piano-excel-sub003/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Report Configuration
// ════════════════════════════════════════════════════════════════════

// Format specifies the output format.
type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// ParseFormat maps a CLI flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatCSV, FormatHTML, FormatPDF:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown report format %q", s)
	}
}

// Config controls report generation behaviour.
type Config struct {
	Format    Format      // output format (default: text)
	Title     string      // report title
	Author    string      // shown in the header
	StartYear int         // calendar year of quarter 0
	Quarterly bool        // 40 quarterly columns instead of 10 annual ones
	Divisions bool        // one table per division
	Products  bool        // one table per product
	ChartCfg  ChartConfig // HTML chart rendering
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Format:    FormatText,
		Title:     "Credit portfolio projection",
		Author:    "creditplan",
		StartYear: utils.CurrentYear(),
		Divisions: true,
		ChartCfg:  DefaultChartConfig(),
	}
}

// ════════════════════════════════════════════════════════════════════
// Report Data
// ════════════════════════════════════════════════════════════════════

// Row is one statement line over the report periods.
type Row struct {
	Key      string
	Label    string
	Kind     models.LineKind
	Values   []float64
	Emphasis bool // balance-sheet totals
}

// Table is one statement (consolidated, division or product).
type Table struct {
	Title   string
	Scope   string // "consolidated", "division" or "product"
	Periods []string
	Rows    []Row
}

// Data is the flattened view every renderer works from.
type Data struct {
	Title       string
	Author      string
	RunID       string
	GeneratedAt string
	Globals     []KeyValue
	Headline    []KeyValue
	Tables      []Table
}

// KeyValue is a labelled figure.
type KeyValue struct {
	Label string
	Value string
}

// Build flattens a projection result into report data.
func Build(res *portfolio.Result, cfg Config) (*Data, error) {
	if res == nil {
		return nil, fmt.Errorf("result is nil")
	}
	if cfg.Title == "" {
		cfg.Title = DefaultConfig().Title
	}
	d := &Data{
		Title:       cfg.Title,
		Author:      cfg.Author,
		RunID:       res.RunID,
		GeneratedAt: res.GeneratedAt.Format(time.RFC1123),
		Globals: []KeyValue{
			{"Reference rate", utils.FormatPct(res.Globals.ReferenceRate)},
			{"Fixed reference rate", utils.FormatPct(res.Globals.FixedReferenceRate)},
			{"Cost of funds", utils.FormatPct(res.Globals.CostOfFunds)},
		},
		Headline: headline(res, cfg.StartYear),
	}

	d.Tables = append(d.Tables, buildTable("Consolidated", "consolidated", res.Consolidated, &res.Totals, cfg))
	if cfg.Divisions {
		for _, div := range res.Divisions {
			d.Tables = append(d.Tables, buildTable("Division "+div.Name, "division", div.Statement, &div.Totals, cfg))
		}
	}
	if cfg.Products {
		for _, p := range res.Products {
			title := "Product " + p.ProductID
			if p.Name != "" && p.Name != p.ProductID {
				title += " (" + p.Name + ")"
			}
			d.Tables = append(d.Tables, buildTable(title, "product", p.Statement, nil, cfg))
		}
	}
	return d, nil
}

// headline summarises the end of the horizon.
func headline(res *portfolio.Result, startYear int) []KeyValue {
	last := models.Quarters - 1
	st := res.Consolidated
	return []KeyValue{
		{"Total assets " + utils.QuarterLabel(startYear, last), utils.FormatEURCompact(res.Totals.TotalAssets.Quarterly[last])},
		{"New originations", utils.FormatEURCompact(st.NewOriginations.Quarterly.Total())},
		{"GBV defaulted", utils.FormatEURCompact(st.GBVDefaulted.Quarterly.Total())},
		{"Recoveries", utils.FormatEURCompact(res.Totals.Recoveries.Quarterly.Total())},
		{"Interest income", utils.FormatEURCompact(st.InterestIncome.Quarterly.Total())},
	}
}

func buildTable(title, scope string, st models.Statement, tot *models.Totals, cfg Config) Table {
	t := Table{Title: title, Scope: scope, Periods: periods(cfg)}
	for _, nl := range st.Lines() {
		t.Rows = append(t.Rows, Row{Key: nl.Key, Label: nl.Label, Kind: nl.Line.Kind, Values: values(nl.Line, cfg.Quarterly)})
	}
	if tot == nil {
		computed := portfolio.ComputeTotals(st)
		tot = &computed
	}
	for _, nl := range []models.NamedLine{
		{Key: "net_performing", Label: "Net performing", Line: tot.NetPerforming},
		{Key: "total_assets", Label: "Total assets", Line: tot.TotalAssets},
		{Key: "recoveries", Label: "Total recoveries", Line: tot.Recoveries},
	} {
		t.Rows = append(t.Rows, Row{Key: nl.Key, Label: nl.Label, Kind: nl.Line.Kind, Values: values(nl.Line, cfg.Quarterly), Emphasis: true})
	}
	return t
}

func periods(cfg Config) []string {
	if cfg.Quarterly {
		out := make([]string, models.Quarters)
		for q := range out {
			out[q] = utils.QuarterLabel(cfg.StartYear, q)
		}
		return out
	}
	out := make([]string, models.Years)
	for y := range out {
		out[y] = utils.YearLabel(cfg.StartYear, y)
	}
	return out
}

// values picks the quarterly series, or the annual view: year-end balances
// for stock lines and yearly sums for flows.
func values(l models.Line, quarterly bool) []float64 {
	if quarterly {
		return append([]float64(nil), l.Quarterly[:]...)
	}
	if l.Kind == models.KindStock && l.YearEnd != nil {
		return append([]float64(nil), l.YearEnd[:]...)
	}
	return append([]float64(nil), l.Annual[:]...)
}

// ════════════════════════════════════════════════════════════════════
// Render
// ════════════════════════════════════════════════════════════════════

// Render writes res to w in cfg.Format. PDF output needs a file path and is
// produced with GeneratePDF instead.
func Render(w io.Writer, res *portfolio.Result, cfg Config) error {
	d, err := Build(res, cfg)
	if err != nil {
		return err
	}
	switch cfg.Format {
	case FormatText, "":
		_, err = io.WriteString(w, RenderText(d))
		return err
	case FormatCSV:
		return WriteCSV(w, d)
	case FormatHTML:
		return WriteHTML(w, d, res, cfg)
	default:
		return fmt.Errorf("format %s cannot be streamed", cfg.Format)
	}
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fm", d.Minutes())
}
