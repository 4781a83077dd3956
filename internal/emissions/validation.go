package emissions

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrInvalidRange is returned when a scenario input lies outside its allowed bounds.
	ErrInvalidRange = errors.New("input out of range")

	// ErrUnknownPollutant is returned for pollutant names outside the tracked set.
	ErrUnknownPollutant = errors.New("unknown pollutant")

	// ErrInvalidReferenceData is returned when reference plant records cannot
	// produce emission factors.
	ErrInvalidReferenceData = errors.New("invalid reference data")
)

// RangeError describes a single out-of-range input field.
// Max is ignored when Unbounded is set.
type RangeError struct {
	Field     string
	Value     float64
	Min       float64
	Max       float64
	Unbounded bool
}

func (e *RangeError) Error() string {
	if e.Unbounded {
		return fmt.Sprintf("%s must be a finite number >= %s, got %v", e.Field, formatFloat(e.Min), e.Value)
	}
	return fmt.Sprintf("%s must be between %s and %s, got %v",
		e.Field, formatFloat(e.Min), formatFloat(e.Max), e.Value)
}

// Is makes errors.Is(err, ErrInvalidRange) match every RangeError.
func (e *RangeError) Is(target error) bool {
	return target == ErrInvalidRange
}

func checkMin(field string, v, min float64) error {
	if !isFinite(v) || v < min {
		return &RangeError{Field: field, Value: v, Min: min, Unbounded: true}
	}
	return nil
}

func checkRange(field string, v, min, max float64) error {
	if !isFinite(v) || v < min || v > max {
		return &RangeError{Field: field, Value: v, Min: min, Max: max}
	}
	return nil
}

// Validate checks every bound of the scenario and reports all violations at once.
// Out-of-range values are rejected, never clamped.
func (in ScenarioInput) Validate() error {
	errs := []error{
		checkMin("coal_consumption", in.CoalConsumption, 0),
		checkRange("biogas_fraction", in.BiogasFraction, 0, MaxBiogasFraction),
		checkRange("esp_efficiency", in.ESPEfficiency, 0, MaxEfficiencyPercent),
		checkRange("fgd_efficiency", in.FGDEfficiency, 0, MaxEfficiencyPercent),
	}

	// Sorted so the joined message is stable across map iteration orders.
	keys := make([]string, 0, len(in.Baseline))
	for p := range in.Baseline {
		keys = append(keys, string(p))
	}
	sort.Strings(keys)

	for _, k := range keys {
		p := Pollutant(k)
		switch {
		case p == NOx:
			logger.Debug().Float64("value", in.Baseline[p]).Msg("ignoring NOx baseline")
		case p.IsBaseline():
			errs = append(errs, checkMin("baseline_emissions."+k, in.Baseline[p], 0))
		default:
			errs = append(errs, fmt.Errorf("baseline_emissions: %w: %q", ErrUnknownPollutant, k))
		}
	}

	return errors.Join(errs...)
}

// validateRecord checks that a reference plant record can contribute to factor means.
func validateRecord(r PlantRecord) error {
	if !isFinite(r.CoalTons) || r.CoalTons <= 0 {
		return fmt.Errorf("%w: plant %q: coal_tons must be > 0, got %v", ErrInvalidReferenceData, r.Name, r.CoalTons)
	}
	for _, p := range BaselinePollutants {
		v, ok := r.Pollutants[p]
		if !ok {
			return fmt.Errorf("%w: plant %q: missing %s", ErrInvalidReferenceData, r.Name, p)
		}
		if !isFinite(v) || v < 0 {
			return fmt.Errorf("%w: plant %q: %s must be >= 0, got %v", ErrInvalidReferenceData, r.Name, p, v)
		}
	}
	return nil
}
