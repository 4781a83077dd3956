// Package report renders scenario results and emission factors for people
// and for other programs.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rshade/cofire-emissions/internal/emissions"
	"github.com/rshade/cofire-emissions/internal/scenario"
)

// Format selects a renderer.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

// ParseFormat resolves a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatCSV:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want table, json or csv)", s)
}

// ScenarioReport pairs a scenario with its result for machine-readable output.
type ScenarioReport struct {
	Scenario scenario.Document `json:"scenario"`
	emissions.ScenarioResult
}

// FactorEntry is one row of an emission factor listing.
type FactorEntry struct {
	Pollutant  emissions.Pollutant `json:"pollutant"`
	TonsPerTon float64             `json:"tons_per_ton_coal"`
	KgPerTon   float64             `json:"kg_per_ton_coal"`
}

// FactorEntries lists factors in canonical pollutant order, skipping
// pollutants absent from f.
func FactorEntries(f map[emissions.Pollutant]float64) []FactorEntry {
	entries := make([]FactorEntry, 0, len(f))
	for _, p := range emissions.Pollutants {
		v, ok := f[p]
		if !ok {
			continue
		}
		entries = append(entries, FactorEntry{Pollutant: p, TonsPerTon: v, KgPerTon: v * 1000})
	}
	return entries
}

// WriteResult renders a scenario result in the given format.
func WriteResult(w io.Writer, format Format, in emissions.ScenarioInput, r emissions.ScenarioResult) error {
	switch format {
	case FormatTable:
		return WriteTable(w, r)
	case FormatJSON:
		return writeJSON(w, ScenarioReport{Scenario: scenario.FromInput(in), ScenarioResult: r})
	case FormatCSV:
		return WriteCSV(w, r)
	}
	return fmt.Errorf("unknown output format %q", format)
}

// Table headings of the factor listings.
const (
	coalFactorsTitle   = "Coal emission factors (mean of reference plants)"
	biogasFactorsTitle = "Biogas emission factors (per ton of coal-equivalent fuel)"
)

// WriteFactors renders coal emission factors in the given format.
func WriteFactors(w io.Writer, format Format, f emissions.EmissionFactors) error {
	return writeFactors(w, format, coalFactorsTitle, FactorEntries(f))
}

// WriteBiogasFactors renders biogas emission factors in the given format.
func WriteBiogasFactors(w io.Writer, format Format, f emissions.BiogasFactors) error {
	return writeFactors(w, format, biogasFactorsTitle, FactorEntries(f))
}

func writeFactors(w io.Writer, format Format, title string, entries []FactorEntry) error {
	switch format {
	case FormatTable:
		return writeFactorsTable(w, title, entries)
	case FormatJSON:
		return writeJSON(w, struct {
			Factors []FactorEntry `json:"factors"`
		}{entries})
	case FormatCSV:
		return writeFactorsCSV(w, entries)
	}
	return fmt.Errorf("unknown output format %q", format)
}

// WriteTable prints the result as an aligned text table.
func WriteTable(w io.Writer, r emissions.ScenarioResult) error {
	tw := &errWriter{w: w}
	tw.printf("%-10s %22s %22s %12s\n", "Pollutant", "Baseline (tons/yr)", "Blended (tons/yr)", "Reduction %")
	tw.printf("%-10s %22s %22s %12s\n", strings.Repeat("-", 10), strings.Repeat("-", 22), strings.Repeat("-", 22), strings.Repeat("-", 12))
	for _, pr := range r.Pollutants {
		tw.printf("%-10s %22s %22s %12s\n", pr.Pollutant, formatTons(pr.Baseline), formatTons(pr.Blended), pr.Reduction)
	}
	return tw.err
}

// WriteCSV writes the result with a header row. Undefined reductions are N/A.
func WriteCSV(w io.Writer, r emissions.ScenarioResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"pollutant", "baseline_tons", "blended_tons", "reduction_percent"}); err != nil {
		return err
	}
	for _, pr := range r.Pollutants {
		row := []string{
			pr.Pollutant.String(),
			strconv.FormatFloat(pr.Baseline, 'f', -1, 64),
			strconv.FormatFloat(pr.Blended, 'f', -1, 64),
			pr.Reduction.String(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeFactorsTable(w io.Writer, title string, entries []FactorEntry) error {
	tw := &errWriter{w: w}
	tw.printf("%s\n\n", title)
	tw.printf("%-10s %18s %16s\n", "Pollutant", "t per t coal", "kg per t coal")
	tw.printf("%-10s %18s %16s\n", strings.Repeat("-", 10), strings.Repeat("-", 18), strings.Repeat("-", 16))
	for _, e := range entries {
		tw.printf("%-10s %18.8f %16.4f\n", e.Pollutant, e.TonsPerTon, e.KgPerTon)
	}
	return tw.err
}

func writeFactorsCSV(w io.Writer, entries []FactorEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"pollutant", "tons_per_ton_coal"}); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write([]string{e.Pollutant.String(), strconv.FormatFloat(e.TonsPerTon, 'g', -1, 64)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatTons prints tonnage with two decimals and thousands separators.
func formatTons(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	out := b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}

// errWriter keeps the first write error so table code stays linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
