package pipeline

import (
	"context"
	"errors"
)

// Per-ticker failure classes. Every skip reason in a Report wraps one of
// these (or a context error).
var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrEmptyFeatureSet  = errors.New("empty feature set")
	ErrAcquisition      = errors.New("acquisition failure")
	ErrDelivery         = errors.New("delivery failure")
)

// Reason returns a short metrics label for err.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, ErrEmptyFeatureSet):
		return "empty_feature_set"
	case errors.Is(err, ErrAcquisition):
		return "acquisition"
	case errors.Is(err, ErrDelivery):
		return "delivery"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
