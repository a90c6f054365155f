// Package numeric turns raw field text into numbers.
package numeric

import (
	"regexp"
	"strconv"
	"strings"
)

// decimalPattern is the accepted grammar: optional sign, digits with an
// optional decimal point, optional exponent. strconv alone would also accept
// Inf, NaN, hex floats and underscores.
var decimalPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// Parse returns the value of raw and true, or false when raw is empty or not
// a valid decimal number. It never panics.
func Parse(raw string) (float64, bool) {
	text := strings.TrimSpace(raw)
	if text == "" || !decimalPattern.MatchString(text) {
		return 0, false
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		// Out of range for float64.
		return 0, false
	}
	return v, true
}

// OrZero parses raw and falls back to zero when it is absent.
func OrZero(raw string) float64 {
	v, ok := Parse(raw)
	if !ok {
		return 0
	}
	return v
}

// Valid reports whether raw parses to a number.
func Valid(raw string) bool {
	_, ok := Parse(raw)
	return ok
}
