package emissions

import "fmt"

// ScenarioCalculator is the calculation surface offered to presentation layers.
type ScenarioCalculator interface {
	// EmissionFactors returns the coal emission factors of the reference plants.
	EmissionFactors() EmissionFactors

	// Calculate blends coal and biogas emissions for one scenario and applies
	// ESP/FGD abatement. Returns an error wrapping ErrInvalidRange for
	// out-of-range input.
	Calculate(in ScenarioInput) (ScenarioResult, error)
}

// Calculator implements ScenarioCalculator. It holds the reference factor
// table and the biogas factors; both are read-only after construction.
type Calculator struct {
	reference *ReferenceTable
	biogas    BiogasFactors
}

// CalculatorOption customizes a Calculator.
type CalculatorOption func(*Calculator)

// WithBiogasFactors overrides DefaultBiogasFactors. Pollutants absent from f
// get a biogas factor of 0.
func WithBiogasFactors(f BiogasFactors) CalculatorOption {
	return func(c *Calculator) {
		c.biogas = make(BiogasFactors, len(Pollutants))
		for _, p := range Pollutants {
			c.biogas[p] = f[p]
		}
	}
}

// NewCalculator creates a Calculator over the given reference table.
func NewCalculator(reference *ReferenceTable, opts ...CalculatorOption) (*Calculator, error) {
	if reference == nil {
		return nil, fmt.Errorf("%w: reference table is required", ErrInvalidReferenceData)
	}
	c := &Calculator{
		reference: reference,
		biogas:    DefaultBiogasFactors(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := validateBiogasFactors(c.biogas); err != nil {
		return nil, err
	}
	return c, nil
}

// validateBiogasFactors requires a finite, non-negative factor for every pollutant.
func validateBiogasFactors(f BiogasFactors) error {
	for _, p := range Pollutants {
		if v := f[p]; !isFinite(v) || v < 0 {
			return fmt.Errorf("%w: biogas factor for %s must be a finite number >= 0, got %v",
				ErrInvalidReferenceData, p, v)
		}
	}
	return nil
}

// EmissionFactors returns the coal emission factors of the reference plants.
func (c *Calculator) EmissionFactors() EmissionFactors {
	return c.reference.Factors()
}

// BiogasFactors returns a copy of the biogas factors in use.
func (c *Calculator) BiogasFactors() BiogasFactors {
	out := make(BiogasFactors, len(c.biogas))
	for p, v := range c.biogas {
		out[p] = v
	}
	return out
}

// Calculate blends coal and biogas emissions for one scenario.
//
// For each pollutant, in canonical order:
//  1. coal part = baseline × (1 - biogas fraction); the NOx baseline is always 0
//  2. biogas part = biogas factor × coal consumption × biogas fraction
//  3. total = coal part + biogas part
//  4. particulates are multiplied by (1 - ESP/100), SO2 by (1 - FGD/100),
//     NOx is not abated
//  5. reduction = round((1 - total/baseline) × 100, 2), undefined for a zero baseline
//
// Calculate is a pure function of its input.
func (c *Calculator) Calculate(in ScenarioInput) (ScenarioResult, error) {
	if err := in.Validate(); err != nil {
		return ScenarioResult{}, fmt.Errorf("invalid scenario: %w", err)
	}

	result := ScenarioResult{Pollutants: make([]PollutantResult, 0, len(Pollutants))}
	for _, p := range Pollutants {
		baseline := 0.0
		if p.IsBaseline() {
			baseline = in.Baseline[p]
		}

		blended := BlendedEmissions(
			baseline,
			c.biogas[p],
			in.CoalConsumption,
			in.BiogasFraction,
			abatementEfficiency(p, in),
		)
		if !isFinite(blended) {
			return ScenarioResult{}, fmt.Errorf("invalid scenario: %w: blended %s emissions overflow", ErrInvalidRange, p)
		}

		result.Pollutants = append(result.Pollutants, PollutantResult{
			Pollutant: p,
			Baseline:  baseline,
			Blended:   blended,
			Reduction: ReductionPercent(baseline, blended),
		})
	}
	return result, nil
}

// SuggestBaseline estimates coal-only emissions for a plant burning coalTons
// of coal from the reference emission factors.
func (c *Calculator) SuggestBaseline(coalTons float64) (Emissions, error) {
	if err := checkMin("coal_consumption", coalTons, 0); err != nil {
		return nil, err
	}
	factors := c.reference.Factors()
	baseline := make(Emissions, len(BaselinePollutants))
	for _, p := range BaselinePollutants {
		baseline[p] = factors[p] * coalTons
	}
	return baseline, nil
}

// abatementEfficiency returns the removal efficiency in percent of the
// control device that targets p, or 0 if none does.
func abatementEfficiency(p Pollutant, in ScenarioInput) float64 {
	switch {
	case p.IsParticulate():
		return in.ESPEfficiency
	case p == SO2:
		return in.FGDEfficiency
	default:
		return 0
	}
}

// BlendedEmissions applies the blending and abatement formula for one pollutant.
//
// Parameters:
//   - baseline: coal-only emissions in tons
//   - biogasFactor: tons emitted per ton of coal-equivalent biogas
//   - coalConsumption: fuel consumption in tons of coal
//   - biogasFraction: share of fuel replaced by biogas (0.0 to 1.0)
//   - efficiencyPercent: removal efficiency of the control device (0 to 100)
//
// Returns the blended emissions after abatement in tons.
func BlendedEmissions(baseline, biogasFactor, coalConsumption, biogasFraction, efficiencyPercent float64) float64 {
	coalPart := baseline * (1 - biogasFraction)
	bioPart := biogasFactor * coalConsumption * biogasFraction
	total := coalPart + bioPart

	// Abatement applies to the blended total only, never to the baseline.
	return total * (1 - efficiencyPercent/100)
}

// ReductionPercent returns the reduction of blended against baseline,
// rounded to two decimals. The reduction is undefined if baseline is not
// positive or the ratio overflows, as with a subnormal baseline.
func ReductionPercent(baseline, blended float64) Reduction {
	if baseline <= 0 {
		return UndefinedReduction()
	}
	pct := roundTo((1-blended/baseline)*100, ReductionDecimals)
	if !isFinite(pct) {
		return UndefinedReduction()
	}
	return PercentReduction(pct)
}
