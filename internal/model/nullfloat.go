package model

import (
	"encoding/json"
	"math"
)

// NullFloat is a float64 that may be undefined, e.g. a rolling value still
// inside its warm-up window. Non-finite numbers are never Valid.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Some wraps v. NaN and ±Inf map to the undefined value.
func Some(v float64) NullFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NullFloat{}
	}
	return NullFloat{Float64: v, Valid: true}
}

// Get returns the value and whether it is defined.
func (n NullFloat) Get() (float64, bool) { return n.Float64, n.Valid }

// Ptr returns nil when undefined. Used by encoders that treat nil as null.
func (n NullFloat) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

func (n *NullFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = NullFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Some(v)
	return nil
}
