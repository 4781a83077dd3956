package emissions

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// ReferenceTable holds the reference plant records and the coal emission
// factors derived from them. It is immutable once built and safe for
// concurrent use.
type ReferenceTable struct {
	records []PlantRecord
	factors EmissionFactors
}

// NewReferenceTable validates records and computes their emission factors once.
func NewReferenceTable(records []PlantRecord) (*ReferenceTable, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no plant records", ErrInvalidReferenceData)
	}

	owned := make([]PlantRecord, len(records))
	for i, r := range records {
		if err := validateRecord(r); err != nil {
			return nil, err
		}
		owned[i] = clonePlantRecord(r)
	}

	return &ReferenceTable{
		records: owned,
		factors: ComputeEmissionFactors(owned),
	}, nil
}

// LoadReferenceTable builds a ReferenceTable from the embedded plant dataset.
func LoadReferenceTable() (*ReferenceTable, error) {
	records, err := ReferencePlants()
	if err != nil {
		return nil, err
	}
	return NewReferenceTable(records)
}

// Records returns a copy of the reference plant records.
func (t *ReferenceTable) Records() []PlantRecord {
	out := make([]PlantRecord, len(t.records))
	for i, r := range t.records {
		out[i] = clonePlantRecord(r)
	}
	return out
}

// Factors returns a copy of the derived coal emission factors.
func (t *ReferenceTable) Factors() EmissionFactors {
	out := make(EmissionFactors, len(t.factors))
	for p, v := range t.factors {
		out[p] = v
	}
	return out
}

// ComputeEmissionFactors returns, for each baseline pollutant, the unweighted
// mean over all records of pollutant tons per ton of coal.
// Every record must have CoalTons > 0. An empty slice yields zero factors.
func ComputeEmissionFactors(records []PlantRecord) EmissionFactors {
	factors := make(EmissionFactors, len(BaselinePollutants))
	if len(records) == 0 {
		for _, p := range BaselinePollutants {
			factors[p] = 0
		}
		return factors
	}

	ratios := make([]float64, len(records))
	for _, p := range BaselinePollutants {
		for i, r := range records {
			ratios[i] = r.Pollutants[p] / r.CoalTons
		}
		factors[p] = stat.Mean(ratios, nil)
	}
	return factors
}

func clonePlantRecord(r PlantRecord) PlantRecord {
	pollutants := make(map[Pollutant]float64, len(r.Pollutants))
	for p, v := range r.Pollutants {
		pollutants[p] = v
	}
	r.Pollutants = pollutants
	return r
}
