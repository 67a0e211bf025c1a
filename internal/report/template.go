package report

// ReportTemplate is the HTML template for the projection report.
const ReportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
  :root {
    --bg: #ffffff;
    --text: #1a1a2e;
    --muted: #6b7280;
    --border: #e5e7eb;
    --accent: #2563eb;
    --red: #dc2626;
    --section-bg: #f8fafc;
  }
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    color: var(--text);
    background: var(--bg);
    line-height: 1.5;
    max-width: 1200px;
    margin: 0 auto;
    padding: 20px;
  }
  h1 { font-size: 1.5rem; color: var(--accent); }
  h2 { font-size: 1.15rem; margin: 24px 0 10px; padding-bottom: 6px; border-bottom: 2px solid var(--accent); }
  .muted { color: var(--muted); font-size: 0.85rem; }
  .header { border-bottom: 3px solid var(--accent); padding-bottom: 12px; margin-bottom: 16px; }
  .kpi-grid {
    display: grid;
    grid-template-columns: repeat(auto-fill, minmax(180px, 1fr));
    gap: 8px;
    background: var(--section-bg);
    padding: 12px;
    border-radius: 8px;
    margin-bottom: 16px;
  }
  .kpi .label { font-size: 0.75rem; color: var(--muted); text-transform: uppercase; }
  .kpi .value { font-size: 1rem; font-weight: 600; }
  .chart { margin: 12px 0; text-align: center; }
  .chart svg { max-width: 100%; height: auto; }
  table { width: 100%; border-collapse: collapse; margin: 8px 0 16px; font-size: 0.8rem; }
  th { background: var(--section-bg); text-align: right; padding: 6px; font-weight: 600; }
  th.label, td.label { text-align: left; }
  td { padding: 6px; border-bottom: 1px solid var(--border); text-align: right; font-variant-numeric: tabular-nums; }
  tr.total td { font-weight: 700; border-top: 2px solid var(--text); }
  td.neg { color: var(--red); }
  .footer { margin-top: 24px; border-top: 1px solid var(--border); padding-top: 8px; }
</style>
</head>
<body>

<div class="header">
  <h1>{{.Title}}</h1>
  <p class="muted">Run {{.RunID}} &middot; Generated {{.GeneratedAt}} &middot; {{.Author}}</p>
</div>

<h2>Assumptions</h2>
<div class="kpi-grid" id="globals">
{{- range .Globals}}
  <div class="kpi"><div class="label">{{.Label}}</div><div class="value">{{.Value}}</div></div>
{{- end}}
</div>

<h2>Headline</h2>
<div class="kpi-grid" id="headline">
{{- range .Headline}}
  <div class="kpi"><div class="label">{{.Label}}</div><div class="value">{{.Value}}</div></div>
{{- end}}
</div>

{{if .BalanceChart}}<div class="chart" id="balance-chart">{{.BalanceChart}}</div>{{end}}
{{if .RecoveryChart}}<div class="chart" id="recovery-chart">{{.RecoveryChart}}</div>{{end}}

{{range .Tables}}
<section class="statement" data-scope="{{.Scope}}">
<h2>{{.Title}}</h2>
<table>
  <thead>
    <tr><th class="label">Line</th>{{range .Periods}}<th>{{.}}</th>{{end}}</tr>
  </thead>
  <tbody>
  {{- range .Rows}}
    <tr data-key="{{.Key}}"{{if .Emphasis}} class="total"{{end}}>
      <td class="label">{{.Label}}</td>
      {{- range .Values}}<td{{if negative .}} class="neg"{{end}}>{{amount .}}</td>{{end}}
    </tr>
  {{- end}}
  </tbody>
</table>
</section>
{{end}}

<div class="footer muted">
  Stock lines show year-end balances, flow lines yearly totals. Amounts in EUR.
</div>
</body>
</html>
`
