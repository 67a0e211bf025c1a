package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/fracarlesi/piano-excel-sub003/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// SVG charts
// ════════════════════════════════════════════════════════════════════

// ChartConfig holds rendering parameters for SVG charts.
type ChartConfig struct {
	Width        int    // SVG width in pixels (default: 800)
	Height       int    // SVG height in pixels (default: 360)
	MarginTop    int    // top margin (default: 40)
	MarginRight  int    // right margin (default: 30)
	MarginBottom int    // bottom margin (default: 40)
	MarginLeft   int    // left margin (default: 80)
	BgColor      string // background color (default: "#ffffff")
	GridColor    string // grid line color (default: "#e8e8e8")
	TextColor    string // axis label color (default: "#333333")
	FontSize     int    // axis label font size (default: 11)
	Title        string // chart title
}

// DefaultChartConfig returns sensible defaults for chart rendering.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:        800,
		Height:       360,
		MarginTop:    40,
		MarginRight:  30,
		MarginBottom: 40,
		MarginLeft:   80,
		BgColor:      "#ffffff",
		GridColor:    "#e8e8e8",
		TextColor:    "#333333",
		FontSize:     11,
	}
}

func (c ChartConfig) withDefaults() ChartConfig {
	if c.Width == 0 {
		title := c.Title
		c = DefaultChartConfig()
		c.Title = title
	}
	return c
}

// plotArea returns the usable drawing area dimensions.
func (c ChartConfig) plotArea() (x, y, w, h int) {
	return c.MarginLeft, c.MarginTop,
		c.Width - c.MarginLeft - c.MarginRight,
		c.Height - c.MarginTop - c.MarginBottom
}

var palette = []string{"#2563eb", "#ea580c", "#16a34a", "#dc2626", "#9333ea", "#0891b2"}

// ChartSeries is a named data series.
type ChartSeries struct {
	Name   string
	Values []float64
	Color  string // hex color (optional, auto-assigned if empty)
}

// valueRange returns padded min/max over every series. The range always
// includes zero so balances are read against the axis.
func valueRange(series []ChartSeries) (lo, hi float64, n int) {
	lo, hi = 0, 0
	for _, s := range series {
		n = max(n, len(s.Values))
		for _, v := range s.Values {
			if math.IsNaN(v) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	span := hi - lo
	if span < 0.001 {
		span = 1
	}
	return lo - span*0.02, hi + span*0.05, n
}

// LineChart draws one polyline per series over shared period labels.
func LineChart(series []ChartSeries, labels []string, cfg ChartConfig) string {
	cfg = cfg.withDefaults()
	if len(series) == 0 {
		return emptySVG(cfg, "No data")
	}
	lo, hi, n := valueRange(series)
	if n == 0 {
		return emptySVG(cfg, "No data points")
	}
	px, py, pw, ph := cfg.plotArea()
	xAt := func(i int) float64 {
		if n == 1 {
			return float64(px + pw/2)
		}
		return float64(px) + float64(i)*float64(pw)/float64(n-1)
	}
	yAt := func(v float64) float64 {
		return float64(py+ph) - (v-lo)/(hi-lo)*float64(ph)
	}

	var sb strings.Builder
	writeFrame(&sb, cfg, lo, hi)

	for si, s := range series {
		color := s.Color
		if color == "" {
			color = palette[si%len(palette)]
		}
		var pts []string
		for i, v := range s.Values {
			if math.IsNaN(v) {
				continue
			}
			pts = append(pts, fmt.Sprintf("%.1f,%.1f", xAt(i), yAt(v)))
		}
		if len(pts) > 0 {
			fmt.Fprintf(&sb, `<polyline points="%s" fill="none" stroke="%s" stroke-width="2"/>`, strings.Join(pts, " "), color)
		}
		writeLegend(&sb, cfg, si, s.Name, color)
	}

	step := max(1, n/10)
	for i := 0; i < len(labels) && i < n; i += step {
		fmt.Fprintf(&sb, `<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
			xAt(i), py+ph+18, cfg.FontSize-1, cfg.TextColor, escapeXML(labels[i]))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// StackedBarChart draws one bar per period, stacking the series.
// Negative values are clamped to zero.
func StackedBarChart(series []ChartSeries, labels []string, cfg ChartConfig) string {
	cfg = cfg.withDefaults()
	if len(series) == 0 {
		return emptySVG(cfg, "No data")
	}
	n := 0
	for _, s := range series {
		n = max(n, len(s.Values))
	}
	totals := make([]float64, n)
	for _, s := range series {
		for i, v := range s.Values {
			totals[i] += math.Max(v, 0)
		}
	}
	_, hi, _ := valueRange([]ChartSeries{{Values: totals}})
	if n == 0 {
		return emptySVG(cfg, "No data points")
	}
	px, py, pw, ph := cfg.plotArea()
	slot := float64(pw) / float64(n)
	barW := slot * 0.6

	var sb strings.Builder
	writeFrame(&sb, cfg, 0, hi)

	base := make([]float64, n)
	for si, s := range series {
		color := s.Color
		if color == "" {
			color = palette[si%len(palette)]
		}
		for i, v := range s.Values {
			v = math.Max(v, 0)
			if v == 0 {
				continue
			}
			h := v / hi * float64(ph)
			y := float64(py+ph) - base[i] - h
			fmt.Fprintf(&sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>`,
				float64(px)+float64(i)*slot+(slot-barW)/2, y, barW, h, color)
			base[i] += h
		}
		writeLegend(&sb, cfg, si, s.Name, color)
	}
	for i := 0; i < len(labels) && i < n; i++ {
		fmt.Fprintf(&sb, `<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
			float64(px)+(float64(i)+0.5)*slot, py+ph+18, cfg.FontSize-1, cfg.TextColor, escapeXML(labels[i]))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// writeFrame opens the SVG and draws the title and the horizontal grid.
func writeFrame(sb *strings.Builder, cfg ChartConfig, lo, hi float64) {
	px, py, pw, ph := cfg.plotArea()
	sb.WriteString(svgHeader(cfg))
	fmt.Fprintf(sb, `<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`, cfg.Width, cfg.Height, cfg.BgColor)
	fmt.Fprintf(sb, `<text x="%d" y="22" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
		cfg.Width/2, cfg.TextColor, escapeXML(cfg.Title))

	const gridLines = 5
	for i := 0; i <= gridLines; i++ {
		val := lo + (hi-lo)*float64(i)/gridLines
		y := py + ph - ph*i/gridLines
		fmt.Fprintf(sb, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-dasharray="3,3"/>`,
			px, y, px+pw, y, cfg.GridColor)
		fmt.Fprintf(sb, `<text x="%d" y="%d" font-size="%d" fill="%s" text-anchor="end">%s</text>`,
			px-6, y+4, cfg.FontSize, cfg.TextColor, escapeXML(utils.FormatEURCompact(val)))
	}
}

func writeLegend(sb *strings.Builder, cfg ChartConfig, i int, name, color string) {
	px, py, _, _ := cfg.plotArea()
	ly := py + 10 + i*16
	fmt.Fprintf(sb, `<rect x="%d" y="%d" width="12" height="8" fill="%s"/>`, px+10, ly-4, color)
	fmt.Fprintf(sb, `<text x="%d" y="%d" font-size="10" fill="%s">%s</text>`, px+28, ly+4, cfg.TextColor, escapeXML(name))
}

func svgHeader(cfg ChartConfig) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height)
}

func emptySVG(cfg ChartConfig, msg string) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="%d" height="%d" fill="#f5f5f5"/><text x="%d" y="%d" text-anchor="middle" fill="#999" font-size="14">%s</text></svg>`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height, cfg.Width/2, cfg.Height/2, escapeXML(msg))
}

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
