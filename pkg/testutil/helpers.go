// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/finance-calculators/internal/evaluate"
)

// FindEvaluation finds a sheet by name in the results slice.
// Returns a pointer to the evaluation if found, nil otherwise.
func FindEvaluation(results []evaluate.Evaluation, name string) *evaluate.Evaluation {
	for i := range results {
		if results[i].Name == name {
			return &results[i]
		}
	}
	return nil
}

// ResultValue returns the amount stored under key for the named sheet.
func ResultValue(results []evaluate.Evaluation, sheet, key string) (float64, bool) {
	e := FindEvaluation(results, sheet)
	if e == nil {
		return 0, false
	}
	return e.Result.Get(key)
}
