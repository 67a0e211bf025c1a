package report

import (
	"fmt"
	"strings"

	"github.com/fracarlesi/piano-excel-sub003/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Plain-text renderer
// ════════════════════════════════════════════════════════════════════

const (
	labelWidth = 28
	cellWidth  = 14
)

// RenderText renders the report as fixed-width tables for a terminal.
func RenderText(d *Data) string {
	var sb strings.Builder
	line := strings.Repeat("═", 72)
	thinLine := strings.Repeat("─", 72)

	sb.WriteString("\n" + line + "\n")
	sb.WriteString(fmt.Sprintf("  %s\n", d.Title))
	sb.WriteString(fmt.Sprintf("  Run: %s | Generated: %s | Author: %s\n", d.RunID, d.GeneratedAt, d.Author))
	sb.WriteString(line + "\n")

	for _, kv := range d.Globals {
		sb.WriteString(fmt.Sprintf("  %-24s %s\n", kv.Label, kv.Value))
	}
	sb.WriteString(thinLine + "\n")
	for _, kv := range d.Headline {
		sb.WriteString(fmt.Sprintf("  %-24s %s\n", kv.Label, kv.Value))
	}

	for _, t := range d.Tables {
		sb.WriteString("\n  ■ " + strings.ToUpper(t.Title) + "\n")
		sb.WriteString(fmt.Sprintf("  %-*s", labelWidth, ""))
		for _, p := range t.Periods {
			sb.WriteString(fmt.Sprintf("%*s", cellWidth, p))
		}
		sb.WriteString("\n")
		for _, r := range t.Rows {
			if r.Emphasis && r.Key == "net_performing" {
				sb.WriteString("  " + strings.Repeat("─", labelWidth+cellWidth*len(t.Periods)) + "\n")
			}
			sb.WriteString(fmt.Sprintf("  %-*s", labelWidth, r.Label))
			for _, v := range r.Values {
				sb.WriteString(fmt.Sprintf("%*s", cellWidth, utils.FormatAmount(v, 2)))
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n" + line + "\n")
	return sb.String()
}
