// Package scenario reads what-if scenarios from YAML or JSON documents.
package scenario

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rshade/cofire-emissions/internal/emissions"
	"gopkg.in/yaml.v3"
)

// Format is a scenario document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Document is the on-disk and on-wire shape of a scenario.
// Baseline keys are pollutant names such as "TSP" or "PM2.5".
type Document struct {
	CoalConsumption   float64            `yaml:"coal_consumption" json:"coal_consumption"`
	BaselineEmissions map[string]float64 `yaml:"baseline_emissions" json:"baseline_emissions"`
	BiogasFraction    float64            `yaml:"biogas_fraction" json:"biogas_fraction"`
	ESPEfficiency     float64            `yaml:"esp_efficiency" json:"esp_efficiency"`
	FGDEfficiency     float64            `yaml:"fgd_efficiency" json:"fgd_efficiency"`
}

// FormatFromPath infers the document format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported scenario file extension %q (want .yaml, .yml or .json)", filepath.Ext(path))
}

// Load reads a scenario file and converts it to a ScenarioInput.
func Load(path string) (emissions.ScenarioInput, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return emissions.ScenarioInput{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return emissions.ScenarioInput{}, fmt.Errorf("reading scenario file: %w", err)
	}

	doc, err := Decode(bytes.NewReader(data), format)
	if err != nil {
		return emissions.ScenarioInput{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc.Input()
}

// Decode parses a scenario document. Unknown fields are rejected.
func Decode(r io.Reader, format Format) (Document, error) {
	var doc Document
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return Document{}, fmt.Errorf("parsing scenario YAML: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return Document{}, fmt.Errorf("parsing scenario JSON: %w", err)
		}
	default:
		return Document{}, fmt.Errorf("unsupported scenario format %q", format)
	}
	return doc, nil
}

// Input converts the document to a ScenarioInput, resolving pollutant names.
// Range checks are left to the calculator.
func (d Document) Input() (emissions.ScenarioInput, error) {
	in := emissions.ScenarioInput{
		CoalConsumption: d.CoalConsumption,
		Baseline:        make(emissions.Emissions, len(d.BaselineEmissions)),
		BiogasFraction:  d.BiogasFraction,
		ESPEfficiency:   d.ESPEfficiency,
		FGDEfficiency:   d.FGDEfficiency,
	}

	names := make([]string, 0, len(d.BaselineEmissions))
	for name := range d.BaselineEmissions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p, err := emissions.ParsePollutant(name)
		if err != nil {
			return emissions.ScenarioInput{}, fmt.Errorf("baseline_emissions: %w", err)
		}
		if _, dup := in.Baseline[p]; dup {
			return emissions.ScenarioInput{}, fmt.Errorf("baseline_emissions: %s given more than once", p)
		}
		in.Baseline[p] = d.BaselineEmissions[name]
	}
	return in, nil
}

// FromInput builds a Document from a ScenarioInput.
func FromInput(in emissions.ScenarioInput) Document {
	doc := Document{
		CoalConsumption:   in.CoalConsumption,
		BaselineEmissions: make(map[string]float64, len(in.Baseline)),
		BiogasFraction:    in.BiogasFraction,
		ESPEfficiency:     in.ESPEfficiency,
		FGDEfficiency:     in.FGDEfficiency,
	}
	for p, v := range in.Baseline {
		doc.BaselineEmissions[p.String()] = v
	}
	return doc
}
