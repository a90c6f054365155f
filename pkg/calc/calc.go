// Package calc holds the primitives shared by every calculator: the input
// session, the result mapping and the insight advisory.
package calc

import (
	"context"
	"errors"
)

var (
	// ErrUnknownField is returned when a field key is not part of a calculator.
	ErrUnknownField = errors.New("unknown field")

	// ErrUnknownMode is returned when a mode is not supported by a calculator.
	ErrUnknownMode = errors.New("unknown mode")
)

// Calculator is one independent formula evaluator driven by raw field text.
type Calculator interface {
	Name() string
	Keys() []string
	SetField(key, raw string) error
	Fields() map[string]string
	// Recompute derives the Result from the current inputs from scratch.
	Recompute() Result
	// Result returns the last recomputed Result.
	Result() Result
	InsightRequest() (InsightRequest, bool)
	Advisory() *Advisory
}

// ModeSwitcher is implemented by calculators with mutually exclusive modes.
type ModeSwitcher interface {
	Mode() string
	Modes() []string
	SetMode(mode string) error
}

// InsightRequest is the context label and flat data record handed to the
// insight generator.
type InsightRequest struct {
	Context string            `json:"context"`
	Data    map[string]string `json:"data"`
}

// InsightGenerator turns an InsightRequest into advisory text. Implementations
// never fail; failures are reported as fallback text.
type InsightGenerator interface {
	Generate(ctx context.Context, req InsightRequest) string
}

func containsMode(modes []string, mode string) bool {
	for _, m := range modes {
		if m == mode {
			return true
		}
	}
	return false
}

// ValidateMode returns ErrUnknownMode when mode is not in modes.
func ValidateMode(calculator string, modes []string, mode string) error {
	if !containsMode(modes, mode) {
		return &ModeError{Calculator: calculator, Mode: mode, Modes: modes}
	}
	return nil
}
