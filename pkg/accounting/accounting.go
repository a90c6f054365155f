// Package accounting implements the factory and accounting calculator with
// four sub-modes: factory costs, break-even, margin/markup and straight-line
// depreciation.
package accounting

import (
	"github.com/iwvelando/finance-calculators/pkg/calc"
	"github.com/iwvelando/finance-calculators/pkg/constants"
	"github.com/iwvelando/finance-calculators/pkg/mathutil"
	"go.uber.org/zap"
)

// Sub-modes.
const (
	ModeFactory      = "factory"
	ModeBreakEven    = "breakeven"
	ModeMargin       = "margin"
	ModeDepreciation = "depreciation"
)

// Field keys, grouped by sub-mode.
const (
	FieldMaterials = "materials"
	FieldLabor     = "labor"
	FieldOverhead  = "overhead"

	FieldFixedCost    = "fixedCost"
	FieldVariableCost = "variableCost"
	FieldPrice        = "price"

	FieldCost    = "cost"
	FieldRevenue = "revenue"

	FieldAssetCost    = "assetCost"
	FieldSalvageValue = "salvageValue"
	FieldLifeYears    = "lifeYears"
)

// Result keys.
const (
	KeyPrimeCost      = "primeCost"
	KeyConversionCost = "conversionCost"
	KeyTotalMfgCost   = "totalMfgCost"

	KeyBreakEvenUnits     = "breakEvenUnits"
	KeyBreakEvenRevenue   = "breakEvenRevenue"
	KeyContributionMargin = "contributionMargin"

	KeyGrossProfit = "grossProfit"
	KeyGrossMargin = "grossMargin"
	KeyMarkup      = "markup"

	KeyAnnualDepreciation  = "annualDepreciation"
	KeyMonthlyDepreciation = "monthlyDepreciation"
	KeyTotalDepreciation   = "totalDepreciation"
)

var modes = []string{ModeFactory, ModeBreakEven, ModeMargin, ModeDepreciation}

var modeFields = map[string][]string{
	ModeFactory:      {FieldMaterials, FieldLabor, FieldOverhead},
	ModeBreakEven:    {FieldFixedCost, FieldVariableCost, FieldPrice},
	ModeMargin:       {FieldCost, FieldRevenue},
	ModeDepreciation: {FieldAssetCost, FieldSalvageValue, FieldLifeYears},
}

var modeLabels = map[string]string{
	ModeFactory:      "Factory Costs",
	ModeBreakEven:    "Break-Even Analysis",
	ModeMargin:       "Margin & Markup",
	ModeDepreciation: "Straight-Line Depreciation",
}

// FieldsFor returns the field keys used by mode.
func FieldsFor(mode string) []string {
	return append([]string(nil), modeFields[mode]...)
}

// Calculator is an accounting calculation session. Every sub-mode keeps its
// own fields; switching sub-modes discards only the result.
type Calculator struct {
	logger  *zap.Logger
	session *calc.Session
	mode    string
	result  calc.Result
}

// NewCalculator creates an accounting calculator in factory mode.
func NewCalculator(logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	var keys []string
	for _, mode := range modes {
		keys = append(keys, modeFields[mode]...)
	}
	return &Calculator{
		logger:  logger,
		session: calc.NewSession(constants.CalculatorAccounting, keys...),
		mode:    ModeFactory,
	}
}

func (c *Calculator) Name() string              { return constants.CalculatorAccounting }
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

// SetMode switches sub-mode. The previous result is discarded and the new
// sub-mode is recomputed from its own fields, whose raw text is kept.
func (c *Calculator) SetMode(mode string) error {
	if err := calc.ValidateMode(c.Name(), modes, mode); err != nil {
		return err
	}
	c.mode = mode
	c.result = calc.Result{}
	c.session.Advisory().Invalidate()
	c.Recompute()
	return nil
}

// Recompute derives the result for the active sub-mode.
func (c *Calculator) Recompute() calc.Result {
	c.result = Compute(c.mode, c.session)
	if !c.result.Computable() {
		c.logger.Debug("accounting inputs not computable",
			zap.String("op", "accounting.Recompute"),
			zap.String("mode", c.mode),
		)
	}
	return c.result
}

// Compute evaluates the sub-mode formula against the session.
func Compute(mode string, s *calc.Session) calc.Result {
	switch mode {
	case ModeFactory:
		return factory(s)
	case ModeBreakEven:
		return breakEven(s)
	case ModeMargin:
		return margin(s)
	case ModeDepreciation:
		return depreciation(s)
	}
	return calc.Result{}
}

// factory defaults blank fields to zero, but only emits a result once at
// least one field has text.
func factory(s *calc.Session) calc.Result {
	var r calc.Result
	if !s.AnyEntered(FieldMaterials, FieldLabor, FieldOverhead) {
		return r
	}
	materials := s.OrZero(FieldMaterials)
	labor := s.OrZero(FieldLabor)
	overhead := s.OrZero(FieldOverhead)

	return build(
		value{KeyPrimeCost, materials + labor, calc.UnitCurrency},
		value{KeyConversionCost, labor + overhead, calc.UnitCurrency},
		value{KeyTotalMfgCost, materials + labor + overhead, calc.UnitCurrency},
	)
}

func breakEven(s *calc.Session) calc.Result {
	fixed, okF := s.Value(FieldFixedCost)
	variable, okV := s.Value(FieldVariableCost)
	price, okP := s.Value(FieldPrice)
	if !okF || !okV || !okP || fixed < 0 || variable < 0 || price <= variable {
		return calc.Result{}
	}

	units := fixed / (price - variable)
	return build(
		value{KeyBreakEvenUnits, units, calc.UnitUnits},
		value{KeyBreakEvenRevenue, units * price, calc.UnitCurrency},
		value{KeyContributionMargin, price - variable, calc.UnitCurrency},
	)
}

func margin(s *calc.Session) calc.Result {
	cost, okC := s.Value(FieldCost)
	revenue, okR := s.Value(FieldRevenue)
	if !okC || !okR || cost < 0 || revenue <= 0 {
		return calc.Result{}
	}

	profit := revenue - cost
	r := build(
		value{KeyGrossProfit, profit, calc.UnitCurrency},
		value{KeyGrossMargin, profit / revenue * constants.PercentageMultiplier, calc.UnitPercent},
	)
	if r.Computable() && cost != 0 {
		r.Add(KeyMarkup, profit/cost*constants.PercentageMultiplier, calc.UnitPercent)
	}
	return r
}

func depreciation(s *calc.Session) calc.Result {
	assetCost, okA := s.Value(FieldAssetCost)
	life, okL := s.Value(FieldLifeYears)
	if !okA || !okL || assetCost <= 0 || life <= 0 {
		return calc.Result{}
	}
	salvage := s.OrZero(FieldSalvageValue)

	annual := (assetCost - salvage) / life
	return build(
		value{KeyAnnualDepreciation, annual, calc.UnitCurrency},
		value{KeyMonthlyDepreciation, annual / constants.MonthsPerYear, calc.UnitCurrency},
		value{KeyTotalDepreciation, assetCost - salvage, calc.UnitCurrency},
	)
}

type value struct {
	key    string
	amount float64
	unit   calc.Unit
}

// build returns an empty result unless every value is finite.
func build(values ...value) calc.Result {
	var r calc.Result
	for _, v := range values {
		if !mathutil.IsFinite(v.amount) {
			return calc.Result{}
		}
	}
	for _, v := range values {
		r.Add(v.key, v.amount, v.unit)
	}
	return r
}

// InsightRequest formats the active sub-mode's inputs and result for the insight generator.
func (c *Calculator) InsightRequest() (calc.InsightRequest, bool) {
	if !c.result.Computable() {
		return calc.InsightRequest{}, false
	}
	data := make(map[string]string)
	for _, key := range modeFields[c.mode] {
		data[key] = c.session.Raw(key)
	}
	for _, v := range c.result.Values {
		data[v.Key] = v.String()
	}
	return calc.InsightRequest{
		Context: "Accounting: " + modeLabels[c.mode],
		Data:    data,
	}, true
}
