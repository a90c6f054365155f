package calc

import (
	"github.com/iwvelando/finance-calculators/pkg/numeric"
)

// Session holds the raw text of every named input field of one calculator.
// Numeric values are parsed on demand so the raw text is always exactly what
// the user typed.
type Session struct {
	calculator string
	keys       []string
	raw        map[string]string
	advisory   *Advisory
}

// NewSession creates a session with every key set to the empty string.
func NewSession(calculator string, keys ...string) *Session {
	s := &Session{
		calculator: calculator,
		keys:       append([]string(nil), keys...),
		raw:        make(map[string]string, len(keys)),
		advisory:   &Advisory{},
	}
	for _, key := range keys {
		s.raw[key] = ""
	}
	return s
}

// Keys returns the field keys in declaration order.
func (s *Session) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Has reports whether key is a field of this session.
func (s *Session) Has(key string) bool {
	_, ok := s.raw[key]
	return ok
}

// Set stores raw text for key and invalidates any advisory for the previous inputs.
func (s *Session) Set(key, raw string) error {
	if !s.Has(key) {
		return &FieldError{Calculator: s.calculator, Key: key}
	}
	s.raw[key] = raw
	s.advisory.Invalidate()
	return nil
}

// Raw returns the raw text of key.
func (s *Session) Raw(key string) string {
	return s.raw[key]
}

// Value returns the parsed value of key, or false when it is absent.
func (s *Session) Value(key string) (float64, bool) {
	return numeric.Parse(s.raw[key])
}

// OrZero returns the parsed value of key, defaulting absent values to zero.
func (s *Session) OrZero(key string) float64 {
	return numeric.OrZero(s.raw[key])
}

// AnyEntered reports whether at least one of keys has non-empty raw text.
func (s *Session) AnyEntered(keys ...string) bool {
	for _, key := range keys {
		if s.raw[key] != "" {
			return true
		}
	}
	return false
}

// Clear empties every field.
func (s *Session) Clear() {
	for key := range s.raw {
		s.raw[key] = ""
	}
	s.advisory.Invalidate()
}

// Fields returns a copy of the raw text keyed by field.
func (s *Session) Fields() map[string]string {
	fields := make(map[string]string, len(s.raw))
	for k, v := range s.raw {
		fields[k] = v
	}
	return fields
}

// Advisory returns the insight advisory tied to this session's inputs.
func (s *Session) Advisory() *Advisory {
	return s.advisory
}
