// Package output provides utilities for formatting and displaying worksheet results.
package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/iwvelando/finance-calculators/internal/evaluate"
	"github.com/iwvelando/finance-calculators/pkg/format"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PrettyFormat writes a human-readable rather than machine-readable report.
func PrettyFormat(w io.Writer, results []evaluate.Evaluation) {
	p := message.NewPrinter(language.English)
	for i, result := range results {
		_, _ = fmt.Fprintf(w, "--- Results for sheet %s (%s) ---\n", result.Name, calculatorLabel(result))

		_, _ = fmt.Fprintf(w, "Input   | Value\n")
		_, _ = fmt.Fprintf(w, "_____   | _____\n")
		for _, key := range sortedKeys(result.Fields) {
			if result.Fields[key] == "" {
				continue
			}
			_, _ = fmt.Fprintf(w, "%s | %s\n", key, result.Fields[key])
		}

		_, _ = fmt.Fprintf(w, "Result  | Value\n")
		_, _ = fmt.Fprintf(w, "______  | _____\n")
		for _, v := range result.Result.Values {
			_, _ = fmt.Fprintf(w, "%s | %s\n", v.Key, v.String())
		}
		for _, note := range result.Notes {
			_, _ = fmt.Fprintf(w, "Note: %s\n", note)
		}

		for _, s := range result.Result.Series {
			_, _ = fmt.Fprintf(w, "Series %s\n", s.Name)
			_, _ = fmt.Fprintf(w, "%s\n", strings.Join(append([]string{"Point"}, s.Keys...), " | "))
			for _, point := range s.Points {
				cells := []string{point.Name}
				for _, key := range s.Keys {
					cells = append(cells, p.Sprintf("%.2f", point.Values[key]))
				}
				_, _ = fmt.Fprintf(w, "%s\n", strings.Join(cells, " | "))
			}
		}

		if result.Insight != "" {
			_, _ = fmt.Fprintf(w, "Insight:\n%s\n", result.Insight)
		}
		if i < len(results)-1 {
			_, _ = fmt.Fprintf(w, "\n")
		}
	}
}

// CsvFormat writes one row per input, result value, series value and insight.
func CsvFormat(w io.Writer, results []evaluate.Evaluation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"sheet", "calculator", "kind", "key", "value", "unit"}); err != nil {
		return err
	}
	for _, result := range results {
		label := calculatorLabel(result)
		for _, key := range sortedKeys(result.Fields) {
			if err := cw.Write([]string{result.Name, label, "input", key, result.Fields[key], ""}); err != nil {
				return err
			}
		}
		for _, v := range result.Result.Values {
			if err := cw.Write([]string{result.Name, label, "result", v.Key, format.Fixed(v.Amount, 2), string(v.Unit)}); err != nil {
				return err
			}
		}
		for _, s := range result.Result.Series {
			for _, point := range s.Points {
				for _, key := range s.Keys {
					row := []string{result.Name, label, "series:" + s.Name, point.Name + "." + key, format.Fixed(point.Values[key], 2), ""}
					if err := cw.Write(row); err != nil {
						return err
					}
				}
			}
		}
		if result.Insight != "" {
			if err := cw.Write([]string{result.Name, label, "insight", "", result.Insight, ""}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// CsvString returns the CSV report as a string.
func CsvString(results []evaluate.Evaluation) (string, error) {
	var buf bytes.Buffer
	if err := CsvFormat(&buf, results); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func calculatorLabel(result evaluate.Evaluation) string {
	if result.Mode == "" {
		return result.Calculator
	}
	return result.Calculator + "/" + result.Mode
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareFieldKeys)
	return keys
}

// compareFieldKeys orders planner keys by month number ("2.income" before
// "10.income") and everything else alphabetically.
func compareFieldKeys(a, b string) int {
	var ai, bi int
	_, errA := fmt.Sscanf(a, "%d.", &ai)
	_, errB := fmt.Sscanf(b, "%d.", &bi)
	if errA == nil && errB == nil && ai != bi {
		return ai - bi
	}
	return strings.Compare(a, b)
}
