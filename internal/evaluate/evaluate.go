// Package evaluate runs the sheets of a worksheet through their calculators
// and collects the results.
package evaluate

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/iwvelando/finance-calculators/internal/config"
	"github.com/iwvelando/finance-calculators/pkg/accounting"
	"github.com/iwvelando/finance-calculators/pkg/calc"
	"github.com/iwvelando/finance-calculators/pkg/constants"
	"github.com/iwvelando/finance-calculators/pkg/investment"
	"github.com/iwvelando/finance-calculators/pkg/loans"
	"github.com/iwvelando/finance-calculators/pkg/percentage"
	"github.com/iwvelando/finance-calculators/pkg/planner"
	"github.com/iwvelando/finance-calculators/pkg/validation"
	"github.com/iwvelando/finance-calculators/pkg/vat"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Evaluation holds the outcome of one sheet.
type Evaluation struct {
	Name       string            `json:"name"`
	Calculator string            `json:"calculator"`
	Mode       string            `json:"mode,omitempty"`
	Fields     map[string]string `json:"fields"`
	Result     calc.Result       `json:"result"`
	Insight    string            `json:"insight,omitempty"`
	Notes      []string          `json:"notes,omitempty"`
}

// Computable reports whether the sheet produced any value.
func (e Evaluation) Computable() bool {
	return e.Result.Computable()
}

// NewCalculator returns a fresh calculator session by name.
func NewCalculator(name string, logger *zap.Logger) (calc.Calculator, error) {
	switch name {
	case constants.CalculatorPercentage:
		return percentage.NewCalculator(logger), nil
	case constants.CalculatorLoan:
		return loans.NewCalculator(logger), nil
	case constants.CalculatorInvestment:
		return investment.NewCalculator(logger), nil
	case constants.CalculatorAccounting:
		return accounting.NewCalculator(logger), nil
	case constants.CalculatorPlanner:
		return planner.NewCalculator(logger), nil
	case constants.CalculatorVAT:
		return vat.NewCalculator(logger), nil
	}
	return nil, validation.ValidateCalculator(name)
}

// ApplySheet feeds a sheet's mode, fields, months and propagation into c.
// The mode is applied first because some calculators clear their inputs on a
// mode switch.
func ApplySheet(c calc.Calculator, sheet config.Sheet) error {
	if sheet.Mode != "" {
		switcher, ok := c.(calc.ModeSwitcher)
		if !ok {
			return fmt.Errorf("calculator %s has no modes, got mode %q", c.Name(), sheet.Mode)
		}
		if err := switcher.SetMode(sheet.Mode); err != nil {
			return err
		}
	}

	keys := c.Keys()
	names := make([]string, 0, len(sheet.Fields))
	for name := range sheet.Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := c.SetField(resolveKey(keys, name), sheet.Fields[name]); err != nil {
			return err
		}
	}

	if len(sheet.Months) == 0 && sheet.PropagateFrom == 0 {
		return nil
	}
	p, ok := c.(*planner.Calculator)
	if !ok {
		return fmt.Errorf("calculator %s has no months", c.Name())
	}
	for _, m := range sheet.Months {
		if err := p.SetMonth(m.ID, planner.FieldIncome, m.Income); err != nil {
			return err
		}
		if err := p.SetMonth(m.ID, planner.FieldExpenses, m.Expenses); err != nil {
			return err
		}
	}
	if sheet.PropagateFrom != 0 {
		return p.Propagate(sheet.PropagateFrom)
	}
	return nil
}

// resolveKey maps a configured field name onto the calculator's key. Config
// loaders may lower-case map keys, so the match ignores case.
func resolveKey(keys []string, name string) string {
	for _, key := range keys {
		if strings.EqualFold(key, name) {
			return key
		}
	}
	return name
}

// Evaluate computes every sheet of conf. When insights are enabled and gen is
// set, insight requests run concurrently, bounded by the configured
// concurrency.
func Evaluate(ctx context.Context, logger *zap.Logger, conf config.Configuration, gen calc.InsightGenerator) ([]Evaluation, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var results []Evaluation
	var sessions []calc.Calculator
	for _, sheet := range conf.Sheets {
		c, err := NewCalculator(sheet.Calculator, logger)
		if err != nil {
			logger.Warn(fmt.Sprintf("skipping sheet %s", sheet.Name),
				zap.String("op", "evaluate.Evaluate"),
				zap.Error(err),
			)
			continue
		}
		if err := ApplySheet(c, sheet); err != nil {
			return results, fmt.Errorf("sheet %s: %w", sheet.Name, err)
		}

		result := Evaluation{
			Name:       sheet.Name,
			Calculator: c.Name(),
			Fields:     c.Fields(),
			Result:     c.Result(),
		}
		if switcher, ok := c.(calc.ModeSwitcher); ok {
			result.Mode = switcher.Mode()
		}
		if !result.Computable() {
			result.Notes = append(result.Notes, "inputs are incomplete or out of range; no result")
		}

		logger.Debug(fmt.Sprintf("evaluated sheet %s", sheet.Name),
			zap.String("op", "evaluate.Evaluate"),
			zap.String("calculator", c.Name()),
			zap.Bool("computable", result.Computable()),
		)
		results = append(results, result)
		sessions = append(sessions, c)
	}

	if !conf.Insight.Enabled || gen == nil {
		return results, nil
	}
	if err := requestInsights(ctx, conf.Insight.Concurrency, gen, sessions, results); err != nil {
		return results, err
	}
	return results, nil
}

func requestInsights(ctx context.Context, limit int, gen calc.InsightGenerator, sessions []calc.Calculator, results []Evaluation) error {
	if limit < 1 {
		limit = constants.DefaultInsightConcurrency
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, c := range sessions {
		req, ok := c.InsightRequest()
		if !ok {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			advisory := c.Advisory()
			<-advisory.Request(ctx, gen, req)
			results[i].Insight = advisory.Text()
			return ctx.Err()
		})
	}
	return g.Wait()
}
