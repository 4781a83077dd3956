package emissions

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-9

func newTestCalculator(t testing.TB) *Calculator {
	t.Helper()
	table, err := LoadReferenceTable()
	require.NoError(t, err)
	calc, err := NewCalculator(table)
	require.NoError(t, err)
	return calc
}

func referenceScenario() ScenarioInput {
	return ScenarioInput{
		CoalConsumption: 1_000_000,
		Baseline: Emissions{
			TSP:  1000,
			PM10: 600,
			PM25: 500,
			SO2:  2000,
		},
		BiogasFraction: 0.5,
		ESPEfficiency:  90,
		FGDEfficiency:  80,
	}
}

func TestCalculator_Calculate_ReferenceScenario(t *testing.T) {
	calc := newTestCalculator(t)

	result, err := calc.Calculate(referenceScenario())
	require.NoError(t, err)
	require.Len(t, result.Pollutants, len(Pollutants))

	tests := []struct {
		pollutant     Pollutant
		wantBaseline  float64
		wantBlended   float64
		wantReduction float64
		wantDefined   bool
	}{
		// 500 coal + 25 biogas, 90% ESP
		{TSP, 1000, 52.5, 94.75, true},
		// 300 coal + 25 biogas, 90% ESP
		{PM10, 600, 32.5, 94.58, true},
		// 250 coal + 10 biogas, 90% ESP
		{PM25, 500, 26, 94.8, true},
		// 1000 coal + 5 biogas, 80% FGD
		{SO2, 2000, 201, 89.95, true},
		// biogas only, no control device
		{NOx, 0, 250, 0, false},
	}

	for i, tt := range tests {
		t.Run(tt.pollutant.String(), func(t *testing.T) {
			got := result.Pollutants[i]
			assert.Equal(t, tt.pollutant, got.Pollutant, "canonical order")
			assert.Equal(t, tt.wantBaseline, got.Baseline)
			assert.InDelta(t, tt.wantBlended, got.Blended, tolerance)

			pct, defined := got.Reduction.Percent()
			assert.Equal(t, tt.wantDefined, defined)
			if tt.wantDefined {
				assert.InDelta(t, tt.wantReduction, pct, tolerance)
			}
		})
	}
}

func TestCalculator_Calculate_Identity(t *testing.T) {
	calc := newTestCalculator(t)

	in := ScenarioInput{
		CoalConsumption: 8_000_000,
		Baseline:        Emissions{TSP: 123.4, PM10: 56.7, PM25: 8.9, SO2: 4321},
	}

	result, err := calc.Calculate(in)
	require.NoError(t, err)

	for _, pr := range result.Pollutants {
		if pr.Pollutant == NOx {
			assert.Equal(t, 0.0, pr.Blended)
			assert.False(t, pr.Reduction.Defined())
			continue
		}
		assert.Equal(t, in.Baseline[pr.Pollutant], pr.Blended, "%s should be unchanged", pr.Pollutant)
		pct, ok := pr.Reduction.Percent()
		require.True(t, ok)
		assert.Equal(t, 0.0, pct)
	}
}

func TestCalculator_Calculate_FullBiogas(t *testing.T) {
	calc := newTestCalculator(t)
	biogas := DefaultBiogasFactors()

	small := ScenarioInput{
		CoalConsumption: 500_000,
		Baseline:        Emissions{TSP: 1, PM10: 1, PM25: 1, SO2: 1},
		BiogasFraction:  1,
		ESPEfficiency:   50,
		FGDEfficiency:   25,
	}
	large := small
	large.Baseline = Emissions{TSP: 9000, PM10: 8000, PM25: 7000, SO2: 6000}

	r1, err := calc.Calculate(small)
	require.NoError(t, err)
	r2, err := calc.Calculate(large)
	require.NoError(t, err)

	for i, p := range Pollutants {
		assert.Equal(t, r1.Pollutants[i].Blended, r2.Pollutants[i].Blended,
			"%s should not depend on baseline at full biogas", p)

		want := biogas[p] * small.CoalConsumption * (1 - abatementEfficiency(p, small)/100)
		assert.InDelta(t, want, r1.Pollutants[i].Blended, tolerance)
	}
}

func TestCalculator_Calculate_Monotonicity(t *testing.T) {
	calc := newTestCalculator(t)

	base := referenceScenario()
	base.ESPEfficiency = 10
	base.FGDEfficiency = 10

	higherESP := base
	higherESP.ESPEfficiency = 60

	higherFGD := base
	higherFGD.FGDEfficiency = 60

	r0, err := calc.Calculate(base)
	require.NoError(t, err)
	rESP, err := calc.Calculate(higherESP)
	require.NoError(t, err)
	rFGD, err := calc.Calculate(higherFGD)
	require.NoError(t, err)

	for i, p := range Pollutants {
		switch {
		case p.IsParticulate():
			assert.Less(t, rESP.Pollutants[i].Blended, r0.Pollutants[i].Blended, "ESP should reduce %s", p)
			assert.Equal(t, rFGD.Pollutants[i].Blended, r0.Pollutants[i].Blended, "FGD should not affect %s", p)
		case p == SO2:
			assert.Less(t, rFGD.Pollutants[i].Blended, r0.Pollutants[i].Blended)
			assert.Equal(t, rESP.Pollutants[i].Blended, r0.Pollutants[i].Blended)
		case p == NOx:
			assert.Equal(t, r0.Pollutants[i].Blended, rESP.Pollutants[i].Blended)
			assert.Equal(t, r0.Pollutants[i].Blended, rFGD.Pollutants[i].Blended)
		}
	}
}

func TestCalculator_Calculate_ReductionUndefinedIffZeroBaseline(t *testing.T) {
	calc := newTestCalculator(t)

	in := ScenarioInput{
		CoalConsumption: 1000,
		Baseline:        Emissions{TSP: 10, PM10: 0, SO2: 5},
		BiogasFraction:  0.3,
	}

	result, err := calc.Calculate(in)
	require.NoError(t, err)

	want := map[Pollutant]bool{TSP: true, PM10: false, PM25: false, SO2: true, NOx: false}
	for _, pr := range result.Pollutants {
		assert.Equal(t, want[pr.Pollutant], pr.Reduction.Defined(), pr.Pollutant.String())
	}
}

func TestCalculator_Calculate_IgnoresNOxBaseline(t *testing.T) {
	calc := newTestCalculator(t)

	in := referenceScenario()
	in.Baseline[NOx] = 999

	result, err := calc.Calculate(in)
	require.NoError(t, err)

	nox, ok := result.Get(NOx)
	require.True(t, ok)
	assert.Equal(t, 0.0, nox.Baseline)
	assert.InDelta(t, 250.0, nox.Blended, tolerance)
	assert.False(t, nox.Reduction.Defined())
}

func TestCalculator_Calculate_Idempotent(t *testing.T) {
	calc := newTestCalculator(t)
	in := referenceScenario()

	first, err := calc.Calculate(in)
	require.NoError(t, err)
	second, err := calc.Calculate(in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCalculator_Calculate_InvalidRange(t *testing.T) {
	calc := newTestCalculator(t)

	tests := []struct {
		name   string
		mutate func(*ScenarioInput)
		field  string
	}{
		{"negative coal", func(in *ScenarioInput) { in.CoalConsumption = -1 }, "coal_consumption"},
		{"biogas above one", func(in *ScenarioInput) { in.BiogasFraction = 1.01 }, "biogas_fraction"},
		{"biogas below zero", func(in *ScenarioInput) { in.BiogasFraction = -0.1 }, "biogas_fraction"},
		{"esp above 100", func(in *ScenarioInput) { in.ESPEfficiency = 101 }, "esp_efficiency"},
		{"fgd below zero", func(in *ScenarioInput) { in.FGDEfficiency = -5 }, "fgd_efficiency"},
		{"negative baseline", func(in *ScenarioInput) { in.Baseline[SO2] = -1 }, "baseline_emissions.SO2"},
		{"NaN coal", func(in *ScenarioInput) { in.CoalConsumption = math.NaN() }, "coal_consumption"},
		{"infinite esp", func(in *ScenarioInput) { in.ESPEfficiency = math.Inf(1) }, "esp_efficiency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := referenceScenario()
			tt.mutate(&in)

			_, err := calc.Calculate(in)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRange)

			var rangeErr *RangeError
			require.True(t, errors.As(err, &rangeErr))
			assert.Equal(t, tt.field, rangeErr.Field)
		})
	}
}

func TestCalculator_Calculate_BoundsAccepted(t *testing.T) {
	calc := newTestCalculator(t)

	in := ScenarioInput{
		CoalConsumption: 0,
		Baseline:        Emissions{},
		BiogasFraction:  1,
		ESPEfficiency:   100,
		FGDEfficiency:   100,
	}

	result, err := calc.Calculate(in)
	require.NoError(t, err)
	for _, pr := range result.Pollutants {
		assert.Equal(t, 0.0, pr.Blended)
		assert.False(t, pr.Reduction.Defined())
	}
}

func TestCalculator_Calculate_UnknownPollutant(t *testing.T) {
	calc := newTestCalculator(t)

	in := referenceScenario()
	in.Baseline["CO2"] = 10

	_, err := calc.Calculate(in)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownPollutant)
	assert.NotErrorIs(t, err, ErrInvalidRange)
}

func TestCalculator_Calculate_ReportsAllViolations(t *testing.T) {
	calc := newTestCalculator(t)

	in := referenceScenario()
	in.CoalConsumption = -1
	in.FGDEfficiency = 200

	_, err := calc.Calculate(in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coal_consumption")
	assert.Contains(t, err.Error(), "fgd_efficiency")
}

func TestCalculator_WithBiogasFactors(t *testing.T) {
	table, err := LoadReferenceTable()
	require.NoError(t, err)

	calc, err := NewCalculator(table, WithBiogasFactors(BiogasFactors{NOx: 1.0 / 1000}))
	require.NoError(t, err)

	result, err := calc.Calculate(referenceScenario())
	require.NoError(t, err)

	nox, _ := result.Get(NOx)
	assert.InDelta(t, 500.0, nox.Blended, tolerance)

	tsp, _ := result.Get(TSP)
	assert.InDelta(t, 50.0, tsp.Blended, tolerance, "TSP biogas factor should fall back to 0")
}

func TestNewCalculator_InvalidBiogasFactors(t *testing.T) {
	table, err := LoadReferenceTable()
	require.NoError(t, err)

	tests := []struct {
		name  string
		value float64
	}{
		{"negative", -0.001},
		{"NaN", math.NaN()},
		{"+Inf", math.Inf(1)},
		{"-Inf", math.Inf(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc, err := NewCalculator(table, WithBiogasFactors(BiogasFactors{SO2: tt.value}))
			assert.Nil(t, calc)
			assert.ErrorIs(t, err, ErrInvalidReferenceData)
			assert.Contains(t, err.Error(), "SO2")
		})
	}
}

func TestCalculator_BiogasFactors(t *testing.T) {
	calc := newTestCalculator(t)

	got := calc.BiogasFactors()
	assert.Equal(t, DefaultBiogasFactors(), got)

	got[NOx] = 42
	assert.InDelta(t, 0.0005, calc.BiogasFactors()[NOx], 1e-15, "returned map must be a copy")
}

func TestCalculator_Calculate_SubnormalBaseline(t *testing.T) {
	calc := newTestCalculator(t)

	result, err := calc.Calculate(ScenarioInput{
		CoalConsumption: 1_000_000,
		Baseline:        Emissions{TSP: 5e-324},
		BiogasFraction:  1,
	})
	require.NoError(t, err)

	tsp, ok := result.Get(TSP)
	require.True(t, ok)
	assert.InDelta(t, 50.0, tsp.Blended, tolerance)
	assert.False(t, tsp.Reduction.Defined())

	data, err := tsp.Reduction.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestCalculator_Calculate_BlendedOverflow(t *testing.T) {
	table, err := LoadReferenceTable()
	require.NoError(t, err)
	calc, err := NewCalculator(table, WithBiogasFactors(BiogasFactors{TSP: 10}))
	require.NoError(t, err)

	_, err = calc.Calculate(ScenarioInput{
		CoalConsumption: math.MaxFloat64,
		BiogasFraction:  1,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.Contains(t, err.Error(), "TSP")
}

func TestNewCalculator_NilReference(t *testing.T) {
	_, err := NewCalculator(nil)
	assert.ErrorIs(t, err, ErrInvalidReferenceData)
}

func TestCalculator_SuggestBaseline(t *testing.T) {
	calc := newTestCalculator(t)
	factors := calc.EmissionFactors()

	baseline, err := calc.SuggestBaseline(2_000_000)
	require.NoError(t, err)

	require.Len(t, baseline, len(BaselinePollutants))
	for _, p := range BaselinePollutants {
		assert.InDelta(t, factors[p]*2_000_000, baseline[p], tolerance)
	}

	_, err = calc.SuggestBaseline(-5)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestBlendedEmissions(t *testing.T) {
	tests := []struct {
		name            string
		baseline        float64
		biogasFactor    float64
		coalConsumption float64
		biogasFraction  float64
		efficiency      float64
		want            float64
	}{
		{"coal only no abatement", 100, 0.001, 1000, 0, 0, 100},
		{"half blend", 100, 0.001, 1000, 0.5, 0, 50.5},
		{"half blend with abatement", 100, 0.001, 1000, 0.5, 50, 25.25},
		{"full abatement", 100, 0.001, 1000, 0.5, 100, 0},
		{"biogas only", 100, 0.001, 1000, 1, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BlendedEmissions(tt.baseline, tt.biogasFactor, tt.coalConsumption, tt.biogasFraction, tt.efficiency)
			assert.InDelta(t, tt.want, got, tolerance)
		})
	}
}

func TestReductionPercent(t *testing.T) {
	tests := []struct {
		name        string
		baseline    float64
		blended     float64
		want        float64
		wantDefined bool
	}{
		{"half", 100, 50, 50, true},
		{"rounded", 600, 32.5, 94.58, true},
		{"increase is negative", 100, 150, -50, true},
		{"zero baseline", 0, 10, 0, false},
		{"subnormal baseline overflows", 5e-324, 50, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReductionPercent(tt.baseline, tt.blended)
			pct, defined := got.Percent()
			assert.Equal(t, tt.wantDefined, defined)
			assert.InDelta(t, tt.want, pct, tolerance)
		})
	}
}
