package models

import (
	"encoding/json"
	"math"
)

// OptFloat is a float64 signal that may be absent. Absent, NaN and infinite
// values all encode to JSON null.
type OptFloat struct {
	Value float64
	Valid bool
}

// Float returns a present OptFloat.
func Float(v float64) OptFloat {
	return OptFloat{Value: v, Valid: true}
}

// Present reports whether the value is set and finite.
func (o OptFloat) Present() bool {
	return o.Valid && !math.IsNaN(o.Value) && !math.IsInf(o.Value, 0)
}

// Or returns the value when present, otherwise fallback.
func (o OptFloat) Or(fallback float64) float64 {
	if o.Present() {
		return o.Value
	}
	return fallback
}

func (o OptFloat) MarshalJSON() ([]byte, error) {
	if !o.Present() {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o *OptFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*o = OptFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Float(v)
	return nil
}

// OptInt is an int signal that may be absent.
type OptInt struct {
	Value int
	Valid bool
}

// Int returns a present OptInt.
func Int(v int) OptInt {
	return OptInt{Value: v, Valid: true}
}

// Or returns the value when present, otherwise fallback.
func (o OptInt) Or(fallback int) int {
	if o.Valid {
		return o.Value
	}
	return fallback
}

func (o OptInt) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o *OptInt) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*o = OptInt{}
		return nil
	}
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Int(v)
	return nil
}

// Finite replaces NaN and infinities with zero.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
