package intel

import (
	"errors"
	"fmt"
	"time"
)

// ErrValidation marks a malformed signal rejected at ingest. The caller must
// correct the signal and resubmit; validation failures are never retried.
var ErrValidation = errors.New("validation error")

// ValidationError wraps a field-level rejection reason.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// ValidateSignal checks a signal for the malformed-input conditions that
// reject it at the head boundary: missing competitor or head kind, unknown
// head kind, zero observed-at, observed-at beyond the future-skew tolerance,
// or a raw confidence outside [0,1].
func ValidateSignal(s *Signal, now time.Time, futureSkew time.Duration) error {
	if s == nil {
		return &ValidationError{Field: "signal", Reason: "missing"}
	}
	if s.Competitor == "" {
		return &ValidationError{Field: "competitor", Reason: "missing"}
	}
	if s.Head == "" {
		return &ValidationError{Field: "head", Reason: "missing"}
	}
	if !s.Head.IsValid() {
		return &ValidationError{Field: "head", Reason: fmt.Sprintf("unknown head kind %q", s.Head)}
	}
	if s.ObservedAt.IsZero() {
		return &ValidationError{Field: "observed_at", Reason: "missing"}
	}
	if s.ObservedAt.After(now.Add(futureSkew)) {
		return &ValidationError{
			Field:  "observed_at",
			Reason: fmt.Sprintf("beyond future-skew tolerance of %s", futureSkew),
		}
	}
	if s.RawConfidence < 0 || s.RawConfidence > 1 {
		return &ValidationError{Field: "raw_confidence", Reason: "must be in [0,1]"}
	}
	return nil
}
