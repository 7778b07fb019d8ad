// Package scheduler holds the pure reservation engine: interval arithmetic,
// conflict detection, availability, space recommendation and semester
// session generation/validation. Every function works on caller supplied
// snapshots and never mutates them.
package scheduler

import (
	"github.com/noah-isme/sma-space-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-space-scheduler/pkg/errors"
)

// Overlaps reports whether two half-open ranges intersect.
// Touching endpoints do not overlap.
func Overlaps(a, b models.TimeRange) (bool, error) {
	if err := ValidateRange(a); err != nil {
		return false, err
	}
	if err := ValidateRange(b); err != nil {
		return false, err
	}
	return overlaps(a, b), nil
}

// ValidateRange returns an input error unless r.Start < r.End.
func ValidateRange(r models.TimeRange) error {
	if !r.IsValid() {
		return appErrors.Inputf("time range %s: start must precede end", r)
	}
	return nil
}

func overlaps(a, b models.TimeRange) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}
