package loans

import (
	"math"

	"github.com/iwvelando/finance-calculators/pkg/calc"
	"github.com/iwvelando/finance-calculators/pkg/constants"
	"github.com/iwvelando/finance-calculators/pkg/format"
	"go.uber.org/zap"
)

// Calculator is a loan calculation session.
type Calculator struct {
	logger  *zap.Logger
	session *calc.Session
	result  calc.Result
}

// NewCalculator creates a loan calculator with empty inputs.
func NewCalculator(logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{
		logger:  logger,
		session: calc.NewSession(constants.CalculatorLoan, FieldAmount, FieldRate, FieldYears),
	}
}

func (c *Calculator) Name() string              { return constants.CalculatorLoan }
func (c *Calculator) Keys() []string            { return c.session.Keys() }
func (c *Calculator) Fields() map[string]string { return c.session.Fields() }
func (c *Calculator) Result() calc.Result       { return c.result }
func (c *Calculator) Advisory() *calc.Advisory  { return c.session.Advisory() }

// SetField stores raw text for key and recomputes.
func (c *Calculator) SetField(key, raw string) error {
	if err := c.session.Set(key, raw); err != nil {
		return err
	}
	c.Recompute()
	return nil
}

// Recompute derives the loan result from the current inputs.
func (c *Calculator) Recompute() calc.Result {
	c.result = c.compute()
	return c.result
}

func (c *Calculator) compute() calc.Result {
	var r calc.Result
	principal, okP := c.session.Value(FieldAmount)
	rate, okR := c.session.Value(FieldRate)
	years, okY := c.session.Value(FieldYears)
	if !okP || !okR || !okY {
		return r
	}

	summary, ok := Summarize(principal, rate, years)
	if !ok {
		c.logger.Debug("loan inputs not computable",
			zap.String("op", "loans.Recompute"),
			zap.Float64("principal", principal),
			zap.Float64("rate", rate),
			zap.Float64("years", years),
		)
		return r
	}

	r.Add(KeyMonthlyPayment, summary.MonthlyPayment, calc.UnitCurrency)
	r.Add(KeyTotalPayment, summary.TotalPayment, calc.UnitCurrency)
	r.Add(KeyTotalInterest, summary.TotalInterest, calc.UnitCurrency)
	r.AddSeries(calc.Series{
		Name: SeriesBreakdown,
		Keys: []string{"value"},
		Points: []calc.Point{
			{Name: "Principal", Values: map[string]float64{"value": principal}},
			{Name: "Interest", Values: map[string]float64{"value": summary.TotalInterest}},
		},
	})

	// The yearly amortization series needs a whole number of payments.
	if summary.Payments == math.Trunc(summary.Payments) && summary.Payments <= constants.MaxLoanMonths {
		schedule, err := Schedule(principal, rate, int(summary.Payments))
		if err != nil {
			c.logger.Warn("failed to build amortization schedule",
				zap.String("op", "loans.Recompute"),
				zap.Error(err),
			)
		} else {
			r.AddSeries(calc.Series{
				Name:   SeriesAmortization,
				Keys:   []string{"principal", "interest", "balance"},
				Points: YearlyTotals(schedule),
			})
		}
	}
	return r
}

// InsightRequest formats the current inputs and result for the insight generator.
func (c *Calculator) InsightRequest() (calc.InsightRequest, bool) {
	monthly, ok := c.result.Get(KeyMonthlyPayment)
	if !ok {
		return calc.InsightRequest{}, false
	}
	totalInterest, _ := c.result.Get(KeyTotalInterest)
	totalPayment, _ := c.result.Get(KeyTotalPayment)

	return calc.InsightRequest{
		Context: "Loan/Mortgage Calculation",
		Data: map[string]string{
			"LoanAmount":     c.session.Raw(FieldAmount),
			"InterestRate":   c.session.Raw(FieldRate) + "%",
			"Term":           c.session.Raw(FieldYears) + " years",
			"MonthlyPayment": format.Fixed(monthly, 2),
			"TotalInterest":  format.Fixed(totalInterest, 2),
			"TotalCost":      format.Fixed(totalPayment, 2),
		},
	}, true
}
