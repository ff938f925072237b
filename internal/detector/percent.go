package detector

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMissingField is returned when a required pool field is empty.
var ErrMissingField = errors.New("missing field")

// FieldError describes a pool field that could not be parsed.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// ParsePercent converts a percentage string such as "250%" or "-3.25" to a float.
func ParsePercent(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	if s == "" {
		return 0, ErrMissingField
	}
	return strconv.ParseFloat(s, 64)
}

// parseField wraps ParsePercent errors with the field name.
func parseField(field, raw string) (float64, error) {
	v, err := ParsePercent(raw)
	if err != nil {
		return 0, &FieldError{Field: field, Value: raw, Err: err}
	}
	return v, nil
}
