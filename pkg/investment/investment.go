// Package investment implements the compound-interest projection calculator.
package investment

import (
	"fmt"

	"github.com/iwvelando/finance-calculators/pkg/calc"
	"github.com/iwvelando/finance-calculators/pkg/constants"
	"github.com/iwvelando/finance-calculators/pkg/format"
	"github.com/iwvelando/finance-calculators/pkg/mathutil"
	"go.uber.org/zap"
)

// Compounding frequencies, used as the calculator's modes.
const (
	FrequencyMonthly = "monthly"
	FrequencyYearly  = "yearly"
)

// Field keys.
const (
	FieldInitial      = "initial"
	FieldContribution = "contribution"
	FieldRate         = "rate"
	FieldYears        = "years"
)

// Result keys and series name.
const (
	KeyFutureValue      = "futureValue"
	KeyTotalContributed = "totalContributed"
	KeyInterestEarned   = "interestEarned"

	SeriesGrowth = "growth"
)

var frequencies = []string{FrequencyMonthly, FrequencyYearly}

// Periods returns the number of compounding periods per year for frequency.
func Periods(frequency string) int {
	if frequency == FrequencyYearly {
		return constants.YearlyCompounding
	}
	return constants.MonthlyCompounding
}

// Snapshot is one year of the simulated schedule, rounded to whole units.
type Snapshot struct {
	Year        int
	Balance     float64
	Contributed float64
	Interest    float64
}

// Projection is the outcome of a simulation. The headline numbers keep full
// precision; only the snapshots are rounded.
type Projection struct {
	FutureValue      float64
	TotalContributed float64
	InterestEarned   float64
	Snapshots        []Snapshot
}

// Project simulates the account year by year. It reports false unless
// years > 0, rate >= 0, initial and contribution are non-negative and at
// least one of them is positive.
func Project(initial, contribution, annualRate, years float64, periods int) (Projection, bool) {
	if !(years > 0 && (initial > 0 || contribution > 0) && annualRate >= 0) {
		return Projection{}, false
	}
	if initial < 0 || contribution < 0 || periods <= 0 || years > constants.MaxInvestmentYears {
		return Projection{}, false
	}

	periodicRate := mathutil.PercentToDecimal(annualRate) / float64(periods)
	balance := initial
	contributed := initial
	snapshots := make([]Snapshot, 0, int(years)+1)

	for year := 0; float64(year) <= years; year++ {
		snapshots = append(snapshots, Snapshot{
			Year:        year,
			Balance:     mathutil.RoundWhole(balance),
			Contributed: mathutil.RoundWhole(contributed),
			Interest:    mathutil.RoundWhole(balance - contributed),
		})

		if float64(year) < years {
			for k := 0; k < periods; k++ {
				balance = balance*(1+periodicRate) + contribution
				contributed += contribution
			}
		}
	}

	p := Projection{
		FutureValue:      balance,
		TotalContributed: contributed,
		InterestEarned:   balance - contributed,
		Snapshots:        snapshots,
	}
	if !mathutil.AllFinite(p.FutureValue, p.TotalContributed, p.InterestEarned) {
		return Projection{}, false
	}
	return p, true
}

// Calculator is an investment projection session.
type Calculator struct {
	logger    *zap.Logger
	session   *calc.Session
	frequency string
	result    calc.Result
}

// NewCalculator creates an investment calculator with monthly compounding.
func NewCalculator(logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{
		logger:    logger,
		session:   calc.NewSession(constants.CalculatorInvestment, FieldInitial, FieldContribution, FieldRate, FieldYears),
		frequency: FrequencyMonthly,
	}
}

func (c *Calculator) Name() string              { return constants.CalculatorInvestment }
func (c *Calculator) Keys() []string            { return c.session.Keys() }
func (c *Calculator) Fields() map[string]string { return c.session.Fields() }
func (c *Calculator) Result() calc.Result       { return c.result }
func (c *Calculator) Advisory() *calc.Advisory  { return c.session.Advisory() }
func (c *Calculator) Mode() string              { return c.frequency }
func (c *Calculator) Modes() []string           { return append([]string(nil), frequencies...) }

// SetField stores raw text for key and recomputes.
func (c *Calculator) SetField(key, raw string) error {
	if err := c.session.Set(key, raw); err != nil {
		return err
	}
	c.Recompute()
	return nil
}

// SetMode switches the compounding frequency. Inputs are kept.
func (c *Calculator) SetMode(frequency string) error {
	if err := calc.ValidateMode(c.Name(), frequencies, frequency); err != nil {
		return err
	}
	c.frequency = frequency
	c.session.Advisory().Invalidate()
	c.Recompute()
	return nil
}

// Recompute reruns the whole simulation from the current inputs.
func (c *Calculator) Recompute() calc.Result {
	var r calc.Result
	c.result = r

	rate, ok := c.session.Value(FieldRate)
	if !ok {
		return r
	}
	years, ok := c.session.Value(FieldYears)
	if !ok {
		return r
	}

	p, ok := Project(c.session.OrZero(FieldInitial), c.session.OrZero(FieldContribution), rate, years, Periods(c.frequency))
	if !ok {
		c.logger.Debug("investment inputs not computable",
			zap.String("op", "investment.Recompute"),
			zap.Float64("rate", rate),
			zap.Float64("years", years),
		)
		return r
	}

	r.Add(KeyFutureValue, p.FutureValue, calc.UnitCurrency)
	r.Add(KeyTotalContributed, p.TotalContributed, calc.UnitCurrency)
	r.Add(KeyInterestEarned, p.InterestEarned, calc.UnitCurrency)

	points := make([]calc.Point, 0, len(p.Snapshots))
	for _, s := range p.Snapshots {
		points = append(points, calc.Point{
			Name: fmt.Sprintf("Year %d", s.Year),
			Values: map[string]float64{
				"balance":      s.Balance,
				"contribution": s.Contributed,
				"interest":     s.Interest,
			},
		})
	}
	r.AddSeries(calc.Series{
		Name:   SeriesGrowth,
		Keys:   []string{"balance", "contribution", "interest"},
		Points: points,
	})

	c.result = r
	return r
}

// InsightRequest formats the current inputs and result for the insight generator.
func (c *Calculator) InsightRequest() (calc.InsightRequest, bool) {
	futureValue, ok := c.result.Get(KeyFutureValue)
	if !ok {
		return calc.InsightRequest{}, false
	}
	contributed, _ := c.result.Get(KeyTotalContributed)
	interest, _ := c.result.Get(KeyInterestEarned)

	divisor := contributed
	if divisor == 0 {
		divisor = 1
	}

	return calc.InsightRequest{
		Context: "Compound Interest Investment Projection",
		Data: map[string]string{
			"InitialPrincipal":     c.session.Raw(FieldInitial),
			"PeriodicContribution": fmt.Sprintf("%s (%s)", c.session.Raw(FieldContribution), c.frequency),
			"AnnualRate":           c.session.Raw(FieldRate) + "%",
			"TimePeriod":           c.session.Raw(FieldYears) + " years",
			"FutureValue":          format.Fixed(futureValue, 2),
			"TotalContributed":     format.Fixed(contributed, 2),
			"InterestEarned":       format.Fixed(interest, 2),
			"Multiplier":           format.Fixed(futureValue/divisor, 2) + "x",
		},
	}, true
}
