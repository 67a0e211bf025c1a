package report

import (
	"encoding/csv"
	"io"
	"strconv"
)

// csvHeader is the long layout: one record per scope, line and period.
var csvHeader = []string{"scope", "table", "line", "kind", "period", "value"}

// WriteCSV writes every table in long format. Values keep full precision.
func WriteCSV(w io.Writer, d *Data) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range d.Tables {
		for _, r := range t.Rows {
			for i, v := range r.Values {
				rec := []string{t.Scope, t.Title, r.Key, string(r.Kind), t.Periods[i], strconv.FormatFloat(v, 'f', -1, 64)}
				if err := cw.Write(rec); err != nil {
					return err
				}
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
