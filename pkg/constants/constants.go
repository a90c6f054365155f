// Package constants provides shared constants for the finance-calculators application.
package constants

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01

	// MonthlyCompounding is the number of compounding periods per year for monthly frequency
	MonthlyCompounding = 12

	// YearlyCompounding is the number of compounding periods per year for yearly frequency
	YearlyCompounding = 1
)

// Simulation bounds
const (
	// MaxInvestmentYears caps the investment projection so the yearly simulation stays bounded
	MaxInvestmentYears = 200

	// MaxLoanMonths caps the generated amortization schedule (100 years)
	MaxLoanMonths = 1200

	// PlannerMonths is the fixed number of entries in the yearly planner
	PlannerMonths = 12
)

// Calculator names
const (
	CalculatorPercentage = "percentage"
	CalculatorLoan       = "loan"
	CalculatorInvestment = "investment"
	CalculatorAccounting = "accounting"
	CalculatorPlanner    = "planner"
	CalculatorVAT        = "vat"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatXLSX is the spreadsheet output format; it requires an output file
	OutputFormatXLSX = "xlsx"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default worksheet file name
	DefaultConfigFile = "worksheet.yaml"

	// ExampleConfigFile is the example worksheet file name
	ExampleConfigFile = "worksheet.yaml.example"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the calculator API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum request body size (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024
)

// Insight defaults
const (
	// DefaultInsightModel is the Gemini model used for insight generation
	DefaultInsightModel = "gemini-2.5-flash"

	// DefaultInsightConcurrency bounds concurrent insight requests during worksheet evaluation
	DefaultInsightConcurrency = 4
)
