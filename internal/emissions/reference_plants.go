package emissions

import (
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSV column indices of the reference plant dataset.
const (
	colPlantName = 0 // plant_name
	colCoalTons  = 1 // coal_tons
	colTSPTons   = 2 // tsp_tons
	colPM10Tons  = 3 // pm10_tons
	colPM25Tons  = 4 // pm25_tons
	colSO2Tons   = 5 // so2_tons
)

// pollutantColumns maps each baseline pollutant to its CSV column.
var pollutantColumns = map[Pollutant]int{
	TSP:  colTSPTons,
	PM10: colPM10Tons,
	PM25: colPM25Tons,
	SO2:  colSO2Tons,
}

// Annual coal throughput and measured emissions of eight Indian coal-fired
// stations (Jharkhand, Odisha, Chhattisgarh).
//
//go:embed data/reference_plants.csv
var referencePlantsCSV string

// ReferencePlants returns the embedded reference plant records.
func ReferencePlants() ([]PlantRecord, error) {
	return ParseReferencePlants(strings.NewReader(referencePlantsCSV))
}

// ParseReferencePlants reads plant records from CSV with the columns
// plant_name, coal_tons, tsp_tons, pm10_tons, pm25_tons, so2_tons.
// The header row is skipped. Malformed rows are logged and skipped.
// It returns an error if the header cannot be read or the underlying
// reader fails.
func ParseReferencePlants(r io.Reader) ([]PlantRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("reading reference plants header: %w", err)
	}

	var records []PlantRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, fmt.Errorf("reading reference plants: %w", err)
			}
			logger.Warn().Err(err).Msg("skipping malformed reference plant row")
			continue
		}

		rec, err := parsePlantRow(row)
		if err != nil {
			logger.Warn().Err(err).Strs("row", row).Msg("skipping invalid reference plant row")
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

func parsePlantRow(row []string) (PlantRecord, error) {
	if len(row) <= colSO2Tons {
		return PlantRecord{}, fmt.Errorf("expected %d columns, got %d", colSO2Tons+1, len(row))
	}

	name := strings.TrimSpace(row[colPlantName])
	if name == "" {
		return PlantRecord{}, fmt.Errorf("empty plant name")
	}

	coal, err := parseTons(row[colCoalTons])
	if err != nil {
		return PlantRecord{}, fmt.Errorf("coal_tons: %w", err)
	}

	rec := PlantRecord{
		Name:       name,
		CoalTons:   coal,
		Pollutants: make(map[Pollutant]float64, len(pollutantColumns)),
	}
	for p, col := range pollutantColumns {
		v, err := parseTons(row[col])
		if err != nil {
			return PlantRecord{}, fmt.Errorf("%s: %w", p, err)
		}
		rec.Pollutants[p] = v
	}

	if err := validateRecord(rec); err != nil {
		return PlantRecord{}, err
	}
	return rec, nil
}

// parseTons parses a tonnage that may carry thousands separators ("7,969,147").
func parseTons(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	return strconv.ParseFloat(s, 64)
}
