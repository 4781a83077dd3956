package emissions

import (
	"math"
	"strconv"

	"github.com/rs/zerolog"
)

// logger receives diagnostics from reference data parsing.
var logger = zerolog.Nop()

// SetLogger sets the logger used for reference data diagnostics.
func SetLogger(l zerolog.Logger) {
	logger = l
}

// formatFloat formats a float for display.
// Integers are printed without decimals, everything else with at most 2 decimals.
func formatFloat(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return strconv.FormatFloat(roundTo(f, ReductionDecimals), 'f', -1, 64)
}

// isFinite reports whether f is neither NaN nor infinite.
func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
