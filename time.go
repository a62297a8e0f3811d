package sessions

import (
	"time"

	"github.com/goliatone/go-errors"
)

// IsWithinThresholdPeriod reports whether t falls inside the trailing window
// described by pattern, a time.ParseDuration string such as "24h".
func IsWithinThresholdPeriod(t time.Time, pattern string) (bool, error) {
	window, err := time.ParseDuration(pattern)
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryBadInput, "invalid threshold pattern").
			WithMetadata(map[string]any{"pattern": pattern})
	}

	return t.After(time.Now().Add(-window)), nil
}

// IsOutsideThresholdPeriod is the negation of IsWithinThresholdPeriod.
func IsOutsideThresholdPeriod(t time.Time, pattern string) (bool, error) {
	within, err := IsWithinThresholdPeriod(t, pattern)
	if err != nil {
		return false, err
	}

	return !within, nil
}
