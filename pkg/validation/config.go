// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"
	"slices"

	"github.com/iwvelando/finance-calculators/pkg/constants"
)

// Calculators lists every calculator a worksheet sheet can name.
var Calculators = []string{
	constants.CalculatorPercentage,
	constants.CalculatorLoan,
	constants.CalculatorInvestment,
	constants.CalculatorAccounting,
	constants.CalculatorPlanner,
	constants.CalculatorVAT,
}

// ValidateCalculator checks that name is a known calculator.
func ValidateCalculator(name string) error {
	if !slices.Contains(Calculators, name) {
		return fmt.Errorf("unknown calculator %q", name)
	}
	return nil
}

// SheetConfig is the part of a worksheet sheet the validator looks at.
type SheetConfig struct {
	Name          string
	Calculator    string
	MonthIDs      []int
	PropagateFrom int
}

// ConfigValidator checks a whole worksheet.
type ConfigValidator struct {
	Sheets []SheetConfig
}

// ValidateAll validates the entire worksheet and returns warnings
func (cv *ConfigValidator) ValidateAll() []string {
	var warnings []string

	if len(cv.Sheets) == 0 {
		warnings = append(warnings, "Worksheet has no sheets - nothing will be calculated")
	}

	seen := make(map[string]bool, len(cv.Sheets))
	for i, sheet := range cv.Sheets {
		label := sheet.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
			warnings = append(warnings, fmt.Sprintf("Sheet %s has no name", label))
		} else if seen[sheet.Name] {
			warnings = append(warnings, fmt.Sprintf("Sheet '%s' is defined more than once", sheet.Name))
		}
		seen[sheet.Name] = true

		if err := ValidateCalculator(sheet.Calculator); err != nil {
			warnings = append(warnings, fmt.Sprintf("Sheet '%s': %v - sheet will be skipped", label, err))
			continue
		}

		warnings = append(warnings, ValidatePlannerInputs(label, sheet.Calculator, sheet.MonthIDs, sheet.PropagateFrom)...)
	}

	return warnings
}

// ValidatePlannerInputs checks month entries and propagation against the
// calculator they are attached to.
func ValidatePlannerInputs(sheetName, calculator string, monthIDs []int, propagateFrom int) []string {
	var warnings []string

	if calculator != constants.CalculatorPlanner {
		if len(monthIDs) > 0 {
			warnings = append(warnings, fmt.Sprintf("Sheet '%s': months are ignored by the %s calculator", sheetName, calculator))
		}
		if propagateFrom != 0 {
			warnings = append(warnings, fmt.Sprintf("Sheet '%s': propagateFrom is ignored by the %s calculator", sheetName, calculator))
		}
		return warnings
	}

	for _, id := range monthIDs {
		if id < 1 || id > constants.PlannerMonths {
			warnings = append(warnings, fmt.Sprintf("Sheet '%s': month %d is outside 1-%d", sheetName, id, constants.PlannerMonths))
		}
	}
	if propagateFrom < 0 || propagateFrom > constants.PlannerMonths {
		warnings = append(warnings, fmt.Sprintf("Sheet '%s': propagateFrom %d is outside 1-%d", sheetName, propagateFrom, constants.PlannerMonths))
	}
	return warnings
}
