package exporter

import (
	"strconv"

	"trawlscope/pkg/contracts/domain"
)

// formatFloat renders a numeric cell with exact round-trip precision, so a
// persisted snapshot reloads to the same values it was written from. A
// missing value becomes an empty cell, never a zero.
func formatFloat(v float64) string {
	if domain.IsMissing(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// formatInt formats an int value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}
