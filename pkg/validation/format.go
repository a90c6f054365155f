// Package validation provides common validation utilities.
package validation

import (
	"fmt"

	"github.com/iwvelando/finance-calculators/pkg/constants"
)

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	switch format {
	case constants.OutputFormatPretty, constants.OutputFormatCSV, constants.OutputFormatXLSX:
		return nil
	}
	return fmt.Errorf("expected output format of %s, %s or %s, got %s",
		constants.OutputFormatPretty, constants.OutputFormatCSV, constants.OutputFormatXLSX, format)
}

// ValidateOutputTarget checks that formats which cannot go to stdout name a file.
func ValidateOutputTarget(format, file string) error {
	if format == constants.OutputFormatXLSX && file == "" {
		return fmt.Errorf("output format %s requires an output file", format)
	}
	return nil
}
