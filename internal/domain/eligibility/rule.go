package eligibility

import (
	"errors"
	"strings"
)

// Operator constants. The set mirrors what organizers can pick when
// building event conditions.
const (
	OpEqual        = "="
	OpNotEqual     = "!="
	OpLess         = "<"
	OpLessEqual    = "<="
	OpGreater      = ">"
	OpGreaterEqual = ">="
	OpIn           = "in"
	OpNotIn        = "not_in"
)

// Max length constants for user-editable fields.
const (
	MaxAttributeLength    = 100
	MaxRawValueLength     = 500
	MaxErrorMessageLength = 500
)

// validOperators contains all accepted operator spellings.
var validOperators = map[string]bool{
	OpEqual: true, OpNotEqual: true,
	OpLess: true, OpLessEqual: true,
	OpGreater: true, OpGreaterEqual: true,
	OpIn: true, OpNotIn: true,
}

// Domain errors
var (
	ErrEmptyAttribute  = errors.New("rule attribute is required")
	ErrInvalidOperator = errors.New("rule operator is not recognized")
)

// Rule is a single eligibility condition attached to an event.
// INVARIANT: an inactive rule is never evaluated.
type Rule struct {
	ID           string
	EventID      string
	Attribute    string // references a snapshot attribute ("diving_level", "age", ...)
	Operator     string
	RawValue     string // comparison value; comma-separated list for in/not_in
	Active       bool
	DisplayOrder int
	ErrorMessage string // shown to the member on rejection
}

// Validate checks if the Rule has valid data.
// PRE: Rule struct is populated
// POST: Returns nil if valid, error otherwise
func (r *Rule) Validate() error {
	if strings.TrimSpace(r.Attribute) == "" {
		return ErrEmptyAttribute
	}
	if len(r.Attribute) > MaxAttributeLength {
		return errors.New("rule attribute cannot exceed 100 characters")
	}
	if !validOperators[r.Operator] {
		return ErrInvalidOperator
	}
	if len(r.RawValue) > MaxRawValueLength {
		return errors.New("rule value cannot exceed 500 characters")
	}
	if len(r.ErrorMessage) > MaxErrorMessageLength {
		return errors.New("rule error message cannot exceed 500 characters")
	}
	return nil
}

// listValues splits a comma-separated raw value for in/not_in operators.
// PRE: none
// POST: Returns trimmed, non-empty elements in order
func (r *Rule) listValues() []string {
	parts := strings.Split(r.RawValue, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
