package emissions

import (
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/floats/scalar"
)

// PlantRecord is one historical coal plant observation used to derive
// empirical coal emission factors.
type PlantRecord struct {
	// Name is the plant name.
	Name string

	// CoalTons is the annual coal throughput in tons. Always > 0.
	CoalTons float64

	// Pollutants maps each baseline pollutant to its measured annual tonnage.
	Pollutants map[Pollutant]float64
}

// EmissionFactors maps a baseline pollutant to tons emitted per ton of coal.
type EmissionFactors map[Pollutant]float64

// BiogasFactors maps every pollutant to tons emitted per ton of coal-equivalent
// consumption when that share of the fuel is biogas.
type BiogasFactors map[Pollutant]float64

// Emissions maps a pollutant to an annual tonnage.
type Emissions map[Pollutant]float64

// ScenarioInput is one what-if calculation request.
type ScenarioInput struct {
	// CoalConsumption is the plant's annual fuel consumption in tons of coal (>= 0).
	CoalConsumption float64

	// Baseline holds coal-only annual emissions for TSP, PM10, PM2.5 and SO2 (>= 0).
	// Missing pollutants count as 0. A NOx entry is ignored.
	Baseline Emissions

	// BiogasFraction is the share of fuel replaced by biogas (0.0 to 1.0).
	BiogasFraction float64

	// ESPEfficiency is the electrostatic precipitator removal efficiency (0 to 100 %).
	ESPEfficiency float64

	// FGDEfficiency is the flue-gas desulfurization removal efficiency (0 to 100 %).
	FGDEfficiency float64
}

// Reduction is the percentage reduction of a blended emission against its
// baseline. It is either a number or undefined when the baseline is zero.
type Reduction struct {
	percent float64
	defined bool
}

// PercentReduction returns a defined reduction of p percent.
func PercentReduction(p float64) Reduction {
	return Reduction{percent: p, defined: true}
}

// UndefinedReduction returns the reduction reported for a zero baseline.
func UndefinedReduction() Reduction {
	return Reduction{}
}

// Percent returns the reduction percentage and whether it is defined.
func (r Reduction) Percent() (float64, bool) {
	return r.percent, r.defined
}

// Defined reports whether the reduction carries a numeric percentage.
func (r Reduction) Defined() bool {
	return r.defined
}

// String renders the percentage with up to two decimals, or N/A.
func (r Reduction) String() string {
	if !r.defined {
		return NotApplicable
	}
	return formatFloat(r.percent)
}

// MarshalJSON renders an undefined reduction as null. Non-finite
// percentages have no JSON form and are rejected.
func (r Reduction) MarshalJSON() ([]byte, error) {
	if !r.defined {
		return []byte("null"), nil
	}
	if !isFinite(r.percent) {
		return nil, fmt.Errorf("reduction %v is not a finite number", r.percent)
	}
	return strconv.AppendFloat(nil, r.percent, 'f', -1, 64), nil
}

// UnmarshalJSON accepts a number or null.
func (r *Reduction) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = UndefinedReduction()
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*r = PercentReduction(v)
	return nil
}

// PollutantResult is the outcome of a scenario for a single pollutant.
type PollutantResult struct {
	Pollutant Pollutant `json:"pollutant"`
	Baseline  float64   `json:"baseline_tons"`
	Blended   float64   `json:"blended_tons"`
	Reduction Reduction `json:"reduction_percent"`
}

// ScenarioResult holds one PollutantResult per pollutant in canonical order.
type ScenarioResult struct {
	Pollutants []PollutantResult `json:"pollutants"`
}

// Get returns the result for p.
func (r ScenarioResult) Get(p Pollutant) (PollutantResult, bool) {
	for _, pr := range r.Pollutants {
		if pr.Pollutant == p {
			return pr, true
		}
	}
	return PollutantResult{}, false
}

// roundTo rounds v to the given number of decimals, half away from zero.
func roundTo(v float64, decimals int) float64 {
	return scalar.Round(v, decimals)
}
