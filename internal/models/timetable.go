package models

import (
	"strings"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Weekday names a day of the academic week.
type Weekday string

const (
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
)

// AcademicDays is the six-day working week in calendar order, Friday excluded.
var AcademicDays = []Weekday{Saturday, Sunday, Monday, Tuesday, Wednesday, Thursday}

var weekdayIndex = map[Weekday]time.Weekday{
	Sunday:    time.Sunday,
	Monday:    time.Monday,
	Tuesday:   time.Tuesday,
	Wednesday: time.Wednesday,
	Thursday:  time.Thursday,
	Friday:    time.Friday,
	Saturday:  time.Saturday,
}

// ParseWeekday normalises case and whitespace; ok is false for unknown names.
func ParseWeekday(raw string) (Weekday, bool) {
	day := Weekday(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := weekdayIndex[day]
	return day, ok
}

// Time returns the time.Weekday equivalent.
func (d Weekday) Time() (time.Weekday, bool) {
	wd, ok := weekdayIndex[Weekday(strings.ToLower(string(d)))]
	return wd, ok
}

// IsAcademic reports whether d is one of the six working days.
func (d Weekday) IsAcademic() bool {
	wd, ok := d.Time()
	return ok && wd != time.Friday
}

// WeekdayOf maps a calendar weekday back to its name.
func WeekdayOf(wd time.Weekday) Weekday {
	for name, idx := range weekdayIndex {
		if idx == wd {
			return name
		}
	}
	return ""
}

// SessionType is the teaching format of a timetable entry.
type SessionType string

const (
	SessionLecture  SessionType = "lecture"
	SessionTutorial SessionType = "tutorial"
	SessionLab      SessionType = "lab"
)

// DefaultEquipment returns the equipment a session type needs.
func (t SessionType) DefaultEquipment() []string {
	switch t {
	case SessionLecture:
		return []string{"projector", "microphone"}
	case SessionLab:
		return []string{"computers", "projector"}
	case SessionTutorial:
		return []string{"smartboard"}
	default:
		return nil
	}
}

// TimetableEntry is one recurring weekly session of a template.
type TimetableEntry struct {
	ID               string      `db:"id" json:"id"`
	TimetableID      string      `db:"timetable_id" json:"timetableId,omitempty"`
	DayOfWeek        Weekday     `db:"day_of_week" json:"dayOfWeek"`
	Start            TimeOfDay   `db:"start_time" json:"start"`
	End              TimeOfDay   `db:"end_time" json:"end"`
	RoomID           string      `db:"room_id" json:"roomId"`
	TeacherID        string      `db:"teacher_id" json:"teacherId"`
	SessionType      SessionType `db:"session_type" json:"sessionType"`
	Title            string      `db:"title" json:"title,omitempty"`
	ParticipantCount int         `db:"participant_count" json:"participantCount"`
}

// GeneratedSession is one dated occurrence of an entry.
type GeneratedSession struct {
	ID          string      `json:"id"`
	EntryID     string      `json:"entryId"`
	WeekIndex   int         `json:"weekIndex"`
	Date        time.Time   `json:"date"`
	Reservation Reservation `json:"reservation"`
}

// SkippedEntry records an entry the generator could not expand.
type SkippedEntry struct {
	EntryID string `json:"entryId"`
	Reason  string `json:"reason"`
}

// GenerationResult aggregates a semester expansion.
type GenerationResult struct {
	Sessions  []GeneratedSession `json:"sessions"`
	Skipped   []SkippedEntry     `json:"skipped"`
	WeekCount int                `json:"weekCount"`
}

// ValidationResult is the outcome of a timetable check.
type ValidationResult struct {
	IsValid   bool     `json:"isValid"`
	Conflicts []string `json:"conflicts"`
	Warnings  []string `json:"warnings"`
}

// TimetableStatus tracks template publication.
type TimetableStatus string

const (
	TimetableStatusDraft     TimetableStatus = "draft"
	TimetableStatusPublished TimetableStatus = "published"
)

// Timetable is a versioned weekly template.
type Timetable struct {
	ID        string          `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Version   int             `db:"version" json:"version"`
	YearStart time.Time       `db:"year_start" json:"yearStart"`
	WeekCount int             `db:"week_count" json:"weekCount"`
	Status    TimetableStatus `db:"status" json:"status"`
	Meta      types.JSONText  `db:"meta" json:"meta"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`

	Entries []TimetableEntry `db:"-" json:"entries,omitempty"`
}
