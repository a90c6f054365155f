// Package planner implements the twelve-month income and expense planner.
package planner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/iwvelando/finance-calculators/pkg/calc"
	"github.com/iwvelando/finance-calculators/pkg/constants"
	"github.com/iwvelando/finance-calculators/pkg/format"
	"github.com/iwvelando/finance-calculators/pkg/mathutil"
	"github.com/iwvelando/finance-calculators/pkg/numeric"
	"go.uber.org/zap"
)

// Month field names; a field key is "<id>.<name>", e.g. "3.income".
const (
	FieldIncome   = "income"
	FieldExpenses = "expenses"
)

// Result keys and series name.
const (
	KeyIncomeTotal   = "incomeTotal"
	KeyExpensesTotal = "expensesTotal"
	KeySavings       = "savings"
	KeySavingsRate   = "savingsRate"

	SeriesMonths = "months"
)

// ErrUnknownMonth is returned for a month id outside 1..12.
var ErrUnknownMonth = errors.New("unknown month")

var monthLabels = [constants.PlannerMonths]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// Month is one planner entry. Income and Expenses hold raw text.
type Month struct {
	ID       int    `json:"id" yaml:"id"`
	Label    string `json:"label" yaml:"label"`
	Income   string `json:"income" yaml:"income"`
	Expenses string `json:"expenses" yaml:"expenses"`
}

// Net returns income minus expenses, treating blank or invalid text as zero.
func (m Month) Net() float64 {
	return numeric.OrZero(m.Income) - numeric.OrZero(m.Expenses)
}

// Totals are the derived yearly figures.
type Totals struct {
	Income      float64
	Expenses    float64
	Savings     float64
	SavingsRate float64
}

// Summarize aggregates months. The savings rate is 0 when there is no income.
func Summarize(months []Month) Totals {
	var t Totals
	for _, m := range months {
		t.Income += numeric.OrZero(m.Income)
		t.Expenses += numeric.OrZero(m.Expenses)
	}
	t.Savings = t.Income - t.Expenses
	t.SavingsRate = mathutil.CalculatePercentage(t.Savings, t.Income)
	return t
}

// Key returns the field key for a month's income or expenses.
func Key(id int, field string) string {
	return fmt.Sprintf("%d.%s", id, field)
}

// Calculator is a yearly planner session.
type Calculator struct {
	logger   *zap.Logger
	months   []Month
	advisory *calc.Advisory
	result   calc.Result
}

// NewCalculator creates a planner with twelve blank months.
func NewCalculator(logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Calculator{
		logger:   logger,
		months:   make([]Month, constants.PlannerMonths),
		advisory: &calc.Advisory{},
	}
	for i := range c.months {
		c.months[i] = Month{ID: i + 1, Label: monthLabels[i]}
	}
	c.Recompute()
	return c
}

func (c *Calculator) Name() string             { return constants.CalculatorPlanner }
func (c *Calculator) Result() calc.Result      { return c.result }
func (c *Calculator) Advisory() *calc.Advisory { return c.advisory }

// Months returns a copy of the twelve entries.
func (c *Calculator) Months() []Month {
	return append([]Month(nil), c.months...)
}

// Keys returns every month's income and expenses field key.
func (c *Calculator) Keys() []string {
	keys := make([]string, 0, 2*len(c.months))
	for _, m := range c.months {
		keys = append(keys, Key(m.ID, FieldIncome), Key(m.ID, FieldExpenses))
	}
	return keys
}

// Fields returns the raw text of every month keyed by field key.
func (c *Calculator) Fields() map[string]string {
	fields := make(map[string]string, 2*len(c.months))
	for _, m := range c.months {
		fields[Key(m.ID, FieldIncome)] = m.Income
		fields[Key(m.ID, FieldExpenses)] = m.Expenses
	}
	return fields
}

// SetField stores raw text for a "<id>.income" or "<id>.expenses" key.
func (c *Calculator) SetField(key, raw string) error {
	idText, field, found := strings.Cut(key, ".")
	id, err := strconv.Atoi(idText)
	if !found || err != nil || (field != FieldIncome && field != FieldExpenses) {
		return &calc.FieldError{Calculator: c.Name(), Key: key}
	}
	return c.SetMonth(id, field, raw)
}

// SetMonth stores raw text for one month's income or expenses.
func (c *Calculator) SetMonth(id int, field, raw string) error {
	m, err := c.month(id)
	if err != nil {
		return err
	}
	switch field {
	case FieldIncome:
		m.Income = raw
	case FieldExpenses:
		m.Expenses = raw
	default:
		return &calc.FieldError{Calculator: c.Name(), Key: Key(id, field)}
	}
	c.advisory.Invalidate()
	c.Recompute()
	return nil
}

// Propagate copies month id's income and expense text into every later
// month, overwriting what was there. Months up to and including id are left
// untouched. An unknown id changes nothing.
func (c *Calculator) Propagate(id int) error {
	source, err := c.month(id)
	if err != nil {
		return err
	}

	updated := c.Months()
	for i := range updated {
		if updated[i].ID > id {
			updated[i].Income = source.Income
			updated[i].Expenses = source.Expenses
		}
	}
	c.months = updated

	c.logger.Debug(fmt.Sprintf("propagated month %d to the rest of the year", id),
		zap.String("op", "planner.Propagate"),
	)
	c.advisory.Invalidate()
	c.Recompute()
	return nil
}

func (c *Calculator) month(id int) (*Month, error) {
	if id < 1 || id > len(c.months) {
		return nil, fmt.Errorf("month %d: %w", id, ErrUnknownMonth)
	}
	return &c.months[id-1], nil
}

// Recompute derives the totals and the per-month series. The planner is
// always computable.
func (c *Calculator) Recompute() calc.Result {
	var r calc.Result
	t := Summarize(c.months)
	r.Add(KeyIncomeTotal, t.Income, calc.UnitCurrency)
	r.Add(KeyExpensesTotal, t.Expenses, calc.UnitCurrency)
	r.Add(KeySavings, t.Savings, calc.UnitCurrency)
	r.Add(KeySavingsRate, t.SavingsRate, calc.UnitPercent)

	points := make([]calc.Point, 0, len(c.months))
	for _, m := range c.months {
		points = append(points, calc.Point{
			Name: m.Label,
			Values: map[string]float64{
				FieldIncome:   numeric.OrZero(m.Income),
				FieldExpenses: numeric.OrZero(m.Expenses),
				"net":         m.Net(),
			},
		})
	}
	r.AddSeries(calc.Series{
		Name:   SeriesMonths,
		Keys:   []string{FieldIncome, FieldExpenses, "net"},
		Points: points,
	})

	if !mathutil.AllFinite(t.Income, t.Expenses, t.Savings, t.SavingsRate) {
		c.logger.Warn("planner totals overflowed",
			zap.String("op", "planner.Recompute"),
		)
	}
	c.result = r
	return r
}

// InsightRequest formats the yearly totals for the insight generator.
func (c *Calculator) InsightRequest() (calc.InsightRequest, bool) {
	if !c.result.Computable() {
		return calc.InsightRequest{}, false
	}
	t := Summarize(c.months)
	return calc.InsightRequest{
		Context: "Yearly Budget Plan",
		Data: map[string]string{
			"TotalIncome":   format.Currency(t.Income),
			"TotalExpenses": format.Currency(t.Expenses),
			"NetSavings":    format.Currency(t.Savings),
			"SavingsRate":   format.Percent(t.SavingsRate),
		},
	}, true
}
