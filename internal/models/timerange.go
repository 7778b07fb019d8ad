package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time `db:"start_at" json:"start"`
	End   time.Time `db:"end_at" json:"end"`
}

// NewTimeRange builds a range without validating it.
func NewTimeRange(start, end time.Time) TimeRange {
	return TimeRange{Start: start, End: end}
}

// IsValid reports whether Start strictly precedes End.
func (r TimeRange) IsValid() bool {
	return r.Start.Before(r.End)
}

// Duration returns End - Start.
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Contains reports whether inner lies entirely inside r.
func (r TimeRange) Contains(inner TimeRange) bool {
	return !inner.Start.Before(r.Start) && !inner.End.After(r.End)
}

// ExtendEnd returns a copy of r whose End is pushed by d.
func (r TimeRange) ExtendEnd(d time.Duration) TimeRange {
	return TimeRange{Start: r.Start, End: r.End.Add(d)}
}

// Equal compares instants rather than location pointers.
func (r TimeRange) Equal(other TimeRange) bool {
	return r.Start.Equal(other.Start) && r.End.Equal(other.End)
}

func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
}

// TimeOfDay counts minutes after midnight. It serialises as "HH:MM".
type TimeOfDay int

const minutesPerDay = 24 * 60

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS". "24:00" is accepted as end of day.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	if hour < 0 || hour > 24 || minute < 0 || minute > 59 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("time of day %q out of range", raw)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// MustTimeOfDay parses raw and panics on error. Intended for constants and tests.
func MustTimeOfDay(raw string) TimeOfDay {
	t, err := ParseTimeOfDay(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// Clock builds a TimeOfDay from hour and minute.
func Clock(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// Minutes returns the raw minute count.
func (t TimeOfDay) Minutes() int {
	return int(t)
}

// Valid reports whether t falls within a single day (inclusive of 24:00).
func (t TimeOfDay) Valid() bool {
	return t >= 0 && int(t) <= minutesPerDay
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// On anchors t to the calendar day of date as a wall clock in date's
// location, so DST changeover days keep their local times.
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, int(t)/60, int(t)%60, 0, 0, date.Location())
}

// TimeOfDayOf extracts the wall clock of ts, truncated to the minute.
func TimeOfDayOf(ts time.Time) TimeOfDay {
	return TimeOfDay(ts.Hour()*60 + ts.Minute())
}

// MarshalText implements encoding.TextMarshaler.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value stores the time of day as "HH:MM".
func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String(), nil
}

// Scan reads TIME/TEXT columns.
func (t *TimeOfDay) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*t = 0
		return nil
	case []byte:
		return t.UnmarshalText(v)
	case string:
		return t.UnmarshalText([]byte(v))
	case time.Time:
		*t = TimeOfDayOf(v)
		return nil
	case int64:
		*t = TimeOfDay(v)
		return nil
	default:
		return fmt.Errorf("unsupported type %T for TimeOfDay", value)
	}
}

// Midnight returns the start of date's calendar day in date's location.
func Midnight(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, date.Location())
}

// DayRange returns [midnight, next midnight) for date.
func DayRange(date time.Time) TimeRange {
	start := Midnight(date)
	return TimeRange{Start: start, End: start.AddDate(0, 0, 1)}
}
