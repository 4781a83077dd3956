// Package emissions estimates air-pollutant emissions of a thermal power plant
// co-firing coal and biogas, after electrostatic precipitator (ESP) and
// flue-gas desulfurization (FGD) abatement.
package emissions

const (
	// MaxBiogasFraction is the upper bound of the biogas blending fraction.
	MaxBiogasFraction = 1.0

	// MaxEfficiencyPercent is the upper bound of a control-device removal efficiency.
	MaxEfficiencyPercent = 100.0

	// ReductionDecimals is the number of decimals reduction percentages are rounded to.
	ReductionDecimals = 2

	// NotApplicable is the text rendering of an undefined reduction.
	NotApplicable = "N/A"
)

// DefaultBiogasFactors returns the biogas emission factors in tons of pollutant
// per ton of coal-equivalent fuel displaced.
func DefaultBiogasFactors() BiogasFactors {
	return BiogasFactors{
		TSP:  0.05 / 1000,
		PM10: 0.05 / 1000,
		PM25: 0.02 / 1000,
		SO2:  0.01 / 1000,
		NOx:  0.50 / 1000,
	}
}
