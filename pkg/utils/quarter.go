package utils

import (
	"fmt"
	"time"
)

// QuarterLabel returns the calendar label of a projection quarter, e.g.
// QuarterLabel(2025, 5) → "2026-Q2". Quarter 0 is the first quarter of startYear.
func QuarterLabel(startYear, q int) string {
	return fmt.Sprintf("%d-Q%d", startYear+q/4, q%4+1)
}

// YearLabel returns the calendar year of projection year y.
func YearLabel(startYear, y int) string {
	return fmt.Sprintf("%d", startYear+y)
}

// QuartersToYears converts a quarter count to years.
func QuartersToYears(quarters int) float64 {
	return float64(quarters) / 4
}

// CurrentYear returns the current calendar year in UTC.
func CurrentYear() int {
	return time.Now().UTC().Year()
}
