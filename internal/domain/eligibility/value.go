package eligibility

import (
	"strconv"
	"time"
)

// Kind tags the type of an attribute value.
type Kind uint8

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindDate
	KindLevel // ordered enum (diving / freediving levels)
)

// Value is a typed attribute value. Exactly one field matching Kind is
// meaningful; the rest hold zero values.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Bool bool
	Date time.Time
	Rank int // ordinal for KindLevel
}

// String creates a string value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number creates a numeric value.
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// Bool creates a boolean value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Date creates a date value.
func Date(t time.Time) Value { return Value{Kind: KindDate, Date: t} }

// Level creates an ordered level value. Str keeps the display form ("N2"),
// Rank carries the ordinal used by ordering operators.
func Level(name string, rank int) Value {
	return Value{Kind: KindLevel, Str: name, Rank: rank}
}

// Snapshot is the typed attribute map evaluated against eligibility rules.
// Built once per registration attempt; read-only to the evaluator.
type Snapshot map[string]Value

// equalsRaw reports whether the value equals a raw rule value.
// PRE: raw is the rule's comparison value as stored
// POST: returns true on typed equality, false otherwise (never errors)
func (v Value) equalsRaw(raw string) bool {
	switch v.Kind {
	case KindString, KindLevel:
		return v.Str == raw
	case KindNumber:
		n, err := strconv.ParseFloat(raw, 64)
		return err == nil && v.Num == n
	case KindBool:
		b, err := strconv.ParseBool(raw)
		return err == nil && v.Bool == b
	case KindDate:
		t, err := time.Parse("2006-01-02", raw)
		return err == nil && v.Date.Equal(t)
	}
	return false
}

// compareRaw returns the three-way comparison of the value against a raw
// rule value, or ok=false when the kinds are not order-comparable or the
// raw value does not parse. Callers must fail the rule when ok is false.
func (v Value) compareRaw(raw string, levelRank func(string) (int, bool)) (cmp int, ok bool) {
	switch v.Kind {
	case KindNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, false
		}
		switch {
		case v.Num < n:
			return -1, true
		case v.Num > n:
			return 1, true
		}
		return 0, true
	case KindDate:
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return 0, false
		}
		switch {
		case v.Date.Before(t):
			return -1, true
		case v.Date.After(t):
			return 1, true
		}
		return 0, true
	case KindLevel:
		if levelRank == nil {
			return 0, false
		}
		r, known := levelRank(raw)
		if !known {
			return 0, false
		}
		switch {
		case v.Rank < r:
			return -1, true
		case v.Rank > r:
			return 1, true
		}
		return 0, true
	}
	// strings and booleans are not order-comparable: fail closed
	return 0, false
}
