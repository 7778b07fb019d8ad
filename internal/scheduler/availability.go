package scheduler

import (
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/sma-space-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-space-scheduler/pkg/errors"
)

const (
	// DefaultGranularityMinutes is the step between candidate slot starts.
	DefaultGranularityMinutes = 30
	// DefaultHorizonDays bounds the free-day search.
	DefaultHorizonDays = 7
)

// ComputeFreeSlots enumerates candidate slots of durationMinutes inside the
// space's opening hours on date, stepping by granularityMinutes (0 selects
// DefaultGranularityMinutes). A slot is available when it overlaps no active
// reservation of the space, each reservation blocking until its end plus the
// cleaning buffer. A duration longer than the opening window yields no slots.
func ComputeFreeSlots(space models.Space, date time.Time, reservations []models.Reservation, durationMinutes, granularityMinutes int) ([]models.TimeSlot, error) {
	if err := validateSlotQuery(space, date, durationMinutes, granularityMinutes); err != nil {
		return nil, err
	}
	if granularityMinutes == 0 {
		granularityMinutes = DefaultGranularityMinutes
	}

	slots := make([]models.TimeSlot, 0)
	if durationMinutes > space.OpeningHours.Minutes() {
		return slots, nil
	}

	window := space.OpeningHours.On(date)
	blocked, err := blockedRanges(space, reservations, window)
	if err != nil {
		return nil, err
	}

	duration := time.Duration(durationMinutes) * time.Minute
	step := time.Duration(granularityMinutes) * time.Minute
	for start := window.Start; !start.Add(duration).After(window.End); start = start.Add(step) {
		slot := models.TimeRange{Start: start, End: start.Add(duration)}
		slots = append(slots, models.TimeSlot{TimeRange: slot, Available: !hitsAny(slot, blocked)})
	}
	return slots, nil
}

// IsFullyFree reports whether the space has no active reservation on date.
func IsFullyFree(space models.Space, date time.Time, reservations []models.Reservation) bool {
	day := models.DayRange(date)
	for _, r := range reservations {
		if r.SpaceID != space.ID || !r.IsActive() || !r.IsValid() {
			continue
		}
		if overlaps(day, r.TimeRange) {
			return false
		}
	}
	return true
}

// FreeDaysInHorizon lists, for each of horizonDays days starting on from's
// calendar day, the bookable spaces without any active reservation.
// horizonDays of 0 selects DefaultHorizonDays.
func FreeDaysInHorizon(spaces []models.Space, reservations []models.Reservation, from time.Time, horizonDays int) ([]models.FreeDay, error) {
	if horizonDays < 0 {
		return nil, appErrors.Inputf("horizon of %d days must not be negative", horizonDays)
	}
	if from.IsZero() {
		return nil, appErrors.Inputf("horizon start date is required")
	}
	if horizonDays == 0 {
		horizonDays = DefaultHorizonDays
	}

	bySpace := make(map[string][]models.Reservation, len(spaces))
	for _, r := range reservations {
		if r.IsActive() {
			bySpace[r.SpaceID] = append(bySpace[r.SpaceID], r)
		}
	}

	first := models.Midnight(from)
	days := make([]models.FreeDay, 0, horizonDays)
	for i := 0; i < horizonDays; i++ {
		date := first.AddDate(0, 0, i)
		free := make([]models.Space, 0)
		for _, space := range spaces {
			if !space.Status.Bookable() {
				continue
			}
			if IsFullyFree(space, date, bySpace[space.ID]) {
				free = append(free, space)
			}
		}
		days = append(days, models.FreeDay{Date: date, Spaces: free})
	}
	return days, nil
}

// IsRangeFree reports whether r fits inside the space's opening hours on its
// own day and clashes with no active reservation of that space.
func IsRangeFree(space models.Space, r models.TimeRange, reservations []models.Reservation) (bool, error) {
	if err := ValidateRange(r); err != nil {
		return false, err
	}
	window := space.OpeningHours.On(r.Start)
	if !window.Contains(r) {
		return false, nil
	}
	blocked, err := blockedRanges(space, reservations, window)
	if err != nil {
		return false, err
	}
	return !hitsAny(r, blocked), nil
}

func validateSlotQuery(space models.Space, date time.Time, durationMinutes, granularityMinutes int) error {
	if strings.TrimSpace(space.ID) == "" {
		return appErrors.Inputf("space id is required")
	}
	if date.IsZero() {
		return appErrors.Inputf("date is required")
	}
	if durationMinutes <= 0 {
		return appErrors.Inputf("duration of %d minutes must be positive", durationMinutes)
	}
	if granularityMinutes < 0 {
		return appErrors.Inputf("granularity of %d minutes must be positive", granularityMinutes)
	}
	if !space.OpeningHours.Valid() {
		return appErrors.Inputf("space %s has invalid opening hours %s-%s", space.ID, space.Open, space.Close)
	}
	return nil
}

// blockedRanges returns the buffered ranges of active reservations of space
// that can affect window, sorted by start.
func blockedRanges(space models.Space, reservations []models.Reservation, window models.TimeRange) ([]models.TimeRange, error) {
	buffer := space.CleaningBuffer()
	var blocked []models.TimeRange
	for _, r := range reservations {
		if r.SpaceID != space.ID || !r.IsActive() {
			continue
		}
		if err := ValidateRange(r.TimeRange); err != nil {
			return nil, appErrors.Inputf("reservation %q: start must precede end", r.ID)
		}
		extended := r.TimeRange.ExtendEnd(buffer)
		if overlaps(extended, window) {
			blocked = append(blocked, extended)
		}
	}
	sort.Slice(blocked, func(i, j int) bool {
		return blocked[i].Start.Before(blocked[j].Start)
	})
	return blocked, nil
}

func hitsAny(r models.TimeRange, blocked []models.TimeRange) bool {
	for _, b := range blocked {
		if !b.Start.Before(r.End) {
			return false
		}
		if overlaps(r, b) {
			return true
		}
	}
	return false
}

var featureNames = map[string]func(models.SpaceFeatures) bool{
	"multimedia":       func(f models.SpaceFeatures) bool { return f.Multimedia },
	"computer":         func(f models.SpaceFeatures) bool { return f.Computer },
	"computers":        func(f models.SpaceFeatures) bool { return f.Computer },
	"specialized":      func(f models.SpaceFeatures) bool { return f.Specialized },
	"accessibility":    func(f models.SpaceFeatures) bool { return f.Accessibility },
	"air_conditioning": func(f models.SpaceFeatures) bool { return f.AirConditioning },
	"natural_light":    func(f models.SpaceFeatures) bool { return f.NaturalLight },
}

// spaceProvides matches a requested item against the equipment list or a feature flag.
func spaceProvides(space models.Space, item string) bool {
	if space.HasEquipment(item) {
		return true
	}
	if flag, ok := featureNames[item]; ok {
		return flag(space.SpaceFeatures)
	}
	return false
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
