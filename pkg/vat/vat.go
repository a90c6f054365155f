// Package vat splits an amount into its net, tax and gross parts.
package vat

import (
	"github.com/iwvelando/finance-calculators/pkg/calc"
	"github.com/iwvelando/finance-calculators/pkg/constants"
	"github.com/iwvelando/finance-calculators/pkg/mathutil"
	"go.uber.org/zap"
)

// Modes say whether the entered amount excludes or includes the tax.
const (
	ModeExclusive = "exclusive"
	ModeInclusive = "inclusive"
)

// Field keys.
const (
	FieldAmount = "amount"
	FieldRate   = "rate"
)

// Result keys.
const (
	KeyNet   = "netAmount"
	KeyTax   = "taxAmount"
	KeyGross = "grossAmount"
)

var modes = []string{ModeExclusive, ModeInclusive}

// Breakdown is the split of an amount at a tax rate.
type Breakdown struct {
	Net   float64
	Tax   float64
	Gross float64
}

// Split computes the breakdown of amount at rate percent. Negative inputs are
// rejected.
func Split(mode string, amount, rate float64) (Breakdown, bool) {
	if amount < 0 || rate < 0 {
		return Breakdown{}, false
	}
	var b Breakdown
	switch mode {
	case ModeExclusive:
		b.Net = amount
		b.Tax = mathutil.ApplyPercentage(amount, rate)
		b.Gross = amount + b.Tax
	case ModeInclusive:
		b.Gross = amount
		b.Net = amount / (1 + mathutil.PercentToDecimal(rate))
		b.Tax = b.Gross - b.Net
	default:
		return Breakdown{}, false
	}
	if !mathutil.AllFinite(b.Net, b.Tax, b.Gross) {
		return Breakdown{}, false
	}
	return b, true
}

// Calculator is a VAT session.
type Calculator struct {
	logger  *zap.Logger
	session *calc.Session
	mode    string
	result  calc.Result
}

// NewCalculator creates a VAT calculator in exclusive mode.
func NewCalculator(logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{
		logger:  logger,
		session: calc.NewSession(constants.CalculatorVAT, FieldAmount, FieldRate),
		mode:    ModeExclusive,
	}
}

func (c *Calculator) Name() string              { return constants.CalculatorVAT }
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

// SetMode switches between exclusive and inclusive amounts. Inputs are kept.
func (c *Calculator) SetMode(mode string) error {
	if err := calc.ValidateMode(c.Name(), modes, mode); err != nil {
		return err
	}
	c.mode = mode
	c.session.Advisory().Invalidate()
	c.Recompute()
	return nil
}

// Recompute derives the breakdown from the current inputs.
func (c *Calculator) Recompute() calc.Result {
	var r calc.Result
	c.result = r

	amount, ok := c.session.Value(FieldAmount)
	if !ok {
		return r
	}
	rate, ok := c.session.Value(FieldRate)
	if !ok {
		return r
	}
	b, ok := Split(c.mode, amount, rate)
	if !ok {
		c.logger.Debug("vat inputs not computable",
			zap.String("op", "vat.Recompute"),
			zap.Float64("amount", amount),
			zap.Float64("rate", rate),
		)
		return r
	}

	r.Add(KeyNet, b.Net, calc.UnitCurrency)
	r.Add(KeyTax, b.Tax, calc.UnitCurrency)
	r.Add(KeyGross, b.Gross, calc.UnitCurrency)
	c.result = r
	return r
}

// InsightRequest formats the current inputs and result for the insight generator.
func (c *Calculator) InsightRequest() (calc.InsightRequest, bool) {
	if !c.result.Computable() {
		return calc.InsightRequest{}, false
	}
	data := map[string]string{
		"Amount":  c.session.Raw(FieldAmount),
		"VATRate": c.session.Raw(FieldRate) + "%",
		"Mode":    c.mode,
	}
	for _, v := range c.result.Values {
		data[v.Key] = v.String()
	}
	return calc.InsightRequest{
		Context: "VAT Calculation (" + c.mode + ")",
		Data:    data,
	}, true
}

var _ calc.ModeSwitcher = (*Calculator)(nil)
