// Package models holds the fixed-horizon series and statement types shared
// by the credit engine, the portfolio runner and the renderers.
package models

// --- Projection horizon ---

const (
	// Quarters is the fixed projection horizon in quarters (10 years).
	Quarters = 40

	// Years is the fixed projection horizon in years.
	Years = Quarters / 4

	// QuartersPerYear is used for quarterly→annual aggregation.
	QuartersPerYear = 4
)

// QuarterlySeries is a fixed-length quarterly time series indexed from the
// product's own quarter 0.
type QuarterlySeries [Quarters]float64

// AnnualSeries is a fixed-length annual time series.
type AnnualSeries [Years]float64

// InHorizon reports whether quarter q falls inside the projection horizon.
func InHorizon(q int) bool {
	return q >= 0 && q < Quarters
}

// Add records v at quarter q. Quarters outside the horizon are dropped.
func (s *QuarterlySeries) Add(q int, v float64) {
	if !InHorizon(q) {
		return
	}
	s[q] += v
}

// Plus returns the element-wise sum of s and o.
func (s QuarterlySeries) Plus(o QuarterlySeries) QuarterlySeries {
	for i := range s {
		s[i] += o[i]
	}
	return s
}

// Minus returns the element-wise difference s - o.
func (s QuarterlySeries) Minus(o QuarterlySeries) QuarterlySeries {
	for i := range s {
		s[i] -= o[i]
	}
	return s
}

// Total returns the sum of every quarter.
func (s QuarterlySeries) Total() float64 {
	total := 0.0
	for _, v := range s {
		total += v
	}
	return total
}

// Annual aggregates the series as annual[y] = Σ quarterly[4y..4y+3].
func (s QuarterlySeries) Annual() AnnualSeries {
	var a AnnualSeries
	for q, v := range s {
		a[q/QuartersPerYear] += v
	}
	return a
}

// YearEnd samples the last quarter of every year. Used for stock lines
// (balances) where a summed annual figure has no balance-sheet meaning.
func (s QuarterlySeries) YearEnd() AnnualSeries {
	var a AnnualSeries
	for y := range a {
		a[y] = s[y*QuartersPerYear+QuartersPerYear-1]
	}
	return a
}

// Total returns the sum of every year.
func (a AnnualSeries) Total() float64 {
	total := 0.0
	for _, v := range a {
		total += v
	}
	return total
}

// LineKind distinguishes flow lines (P&L, cash movements) from stock lines
// (balances).
type LineKind string

const (
	KindFlow  LineKind = "flow"
	KindStock LineKind = "stock"
)

// Line is one projected series with its annual views.
type Line struct {
	Kind      LineKind        `json:"kind"`
	Quarterly QuarterlySeries `json:"quarterly"`
	Annual    AnnualSeries    `json:"annual"`             // Σ of the four quarters
	YearEnd   *AnnualSeries   `json:"year_end,omitempty"` // stock lines only
}

// NewLine builds a Line from a quarterly series, deriving the annual views.
func NewLine(kind LineKind, q QuarterlySeries) Line {
	l := Line{
		Kind:      kind,
		Quarterly: q,
		Annual:    q.Annual(),
	}
	if kind == KindStock {
		ye := q.YearEnd()
		l.YearEnd = &ye
	}
	return l
}

// Plus returns the element-wise sum of two lines of the same kind.
func (l Line) Plus(o Line) Line {
	return NewLine(l.Kind, l.Quarterly.Plus(o.Quarterly))
}
