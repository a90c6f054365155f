package calc

import (
	"fmt"
	"strings"
)

// FieldError reports a field key that a calculator does not know.
type FieldError struct {
	Calculator string
	Key        string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: unknown field %q", e.Calculator, e.Key)
}

func (e *FieldError) Unwrap() error {
	return ErrUnknownField
}

// ModeError reports an unsupported mode.
type ModeError struct {
	Calculator string
	Mode       string
	Modes      []string
}

func (e *ModeError) Error() string {
	return fmt.Sprintf("%s: unknown mode %q, expected one of %s", e.Calculator, e.Mode, strings.Join(e.Modes, ", "))
}

func (e *ModeError) Unwrap() error {
	return ErrUnknownMode
}
