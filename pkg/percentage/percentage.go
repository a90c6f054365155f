// Package percentage implements the percentage calculator: X% of Y, X as a
// percentage of Y and percent change.
package percentage

import (
	"fmt"
	"math"

	"github.com/iwvelando/finance-calculators/pkg/calc"
	"github.com/iwvelando/finance-calculators/pkg/constants"
	"go.uber.org/zap"
)

// Modes of the percentage calculator.
const (
	ModeOf       = "XofY"
	ModeIs       = "XisY"
	ModeIncrease = "increase"
)

// Field keys.
const (
	FieldA = "a"
	FieldB = "b"
)

// ResultKey is the single output of every mode.
const ResultKey = "result"

var modes = []string{ModeOf, ModeIs, ModeIncrease}

// Of returns A% of B. It is defined for every pair of finite inputs.
func Of(a, b float64) float64 {
	return (a / constants.PercentageMultiplier) * b
}

// Is returns A as a percentage of B, or false when B is zero.
func Is(a, b float64) (float64, bool) {
	if b == 0 {
		return 0, false
	}
	return (a / b) * constants.PercentageMultiplier, true
}

// Change returns the percent change from A to B, or false when A is zero.
func Change(a, b float64) (float64, bool) {
	if a == 0 {
		return 0, false
	}
	return ((b - a) / math.Abs(a)) * constants.PercentageMultiplier, true
}

// Calculator is a percentage calculation session.
type Calculator struct {
	logger  *zap.Logger
	session *calc.Session
	mode    string
	result  calc.Result
}

// NewCalculator creates a calculator in XofY mode with empty inputs.
func NewCalculator(logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{
		logger:  logger,
		session: calc.NewSession(constants.CalculatorPercentage, FieldA, FieldB),
		mode:    ModeOf,
	}
}

func (c *Calculator) Name() string              { return constants.CalculatorPercentage }
func (c *Calculator) Keys() []string            { return c.session.Keys() }
func (c *Calculator) Fields() map[string]string { return c.session.Fields() }
func (c *Calculator) Result() calc.Result       { return c.result }
func (c *Calculator) Advisory() *calc.Advisory  { return c.session.Advisory() }
func (c *Calculator) Mode() string              { return c.mode }
func (c *Calculator) Modes() []string           { return append([]string(nil), modes...) }

// SetField stores raw text for key and recomputes.
func (c *Calculator) SetField(key, raw string) error {
	if err := c.session.Set(key, raw); err != nil {
		return err
	}
	c.Recompute()
	return nil
}

// SetMode switches mode, clearing both inputs and the result.
func (c *Calculator) SetMode(mode string) error {
	if err := calc.ValidateMode(c.Name(), modes, mode); err != nil {
		return err
	}
	c.mode = mode
	c.session.Clear()
	c.result = calc.Result{}
	return nil
}

// Recompute derives the result for the current mode.
func (c *Calculator) Recompute() calc.Result {
	c.result = Compute(c.mode, c.session)
	if !c.result.Computable() {
		c.logger.Debug("percentage inputs not computable",
			zap.String("op", "percentage.Recompute"),
			zap.String("mode", c.mode),
		)
	}
	return c.result
}

// Compute evaluates mode against the session's inputs.
func Compute(mode string, s *calc.Session) calc.Result {
	var r calc.Result
	a, okA := s.Value(FieldA)
	b, okB := s.Value(FieldB)
	if !okA || !okB {
		return r
	}

	switch mode {
	case ModeOf:
		r.Add(ResultKey, Of(a, b), calc.UnitNumber)
	case ModeIs:
		if v, ok := Is(a, b); ok {
			r.Add(ResultKey, v, calc.UnitPercent)
		}
	case ModeIncrease:
		if v, ok := Change(a, b); ok {
			r.Add(ResultKey, v, calc.UnitPercent)
		}
	}
	return r
}

// InsightRequest formats the current inputs and result for the insight generator.
func (c *Calculator) InsightRequest() (calc.InsightRequest, bool) {
	v, ok := c.result.Value(ResultKey)
	if !ok {
		return calc.InsightRequest{}, false
	}

	var question string
	switch c.mode {
	case ModeOf:
		question = fmt.Sprintf("What is %s%% of %s?", c.session.Raw(FieldA), c.session.Raw(FieldB))
	case ModeIs:
		question = fmt.Sprintf("%s is what percent of %s?", c.session.Raw(FieldA), c.session.Raw(FieldB))
	case ModeIncrease:
		question = fmt.Sprintf("Percent change from %s to %s", c.session.Raw(FieldA), c.session.Raw(FieldB))
	}

	return calc.InsightRequest{
		Context: "Percentage Calculation",
		Data: map[string]string{
			"Mode":     c.mode,
			"Question": question,
			"Result":   v.String(),
		},
	}, true
}
