package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/sma-space-scheduler/internal/models"
)

// DefaultWorkingHours is the global teaching window.
func DefaultWorkingHours() models.OpeningHours {
	return models.OpeningHours{Open: models.Clock(8, 0), Close: models.Clock(23, 0)}
}

// ValidateOptions tunes ValidateTimetable. Nil lookups disable the matching check.
type ValidateOptions struct {
	WorkingHours  models.OpeningHours
	KnownRooms    map[string]models.Space
	KnownTeachers map[string]bool
}

// anchorDate gives week-relative entries a concrete day for interval checks.
var anchorDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// ValidateTimetable runs every check over entries and reports all findings
// together. Unknown rooms and teachers are reported as conflicts. An empty
// timetable is valid with a warning.
func ValidateTimetable(entries []models.TimetableEntry, opts ValidateOptions) models.ValidationResult {
	hours := opts.WorkingHours
	if !hours.Valid() {
		hours = DefaultWorkingHours()
	}
	result := models.ValidationResult{Conflicts: []string{}, Warnings: []string{}}
	if len(entries) == 0 {
		result.IsValid = true
		result.Warnings = append(result.Warnings, "timetable has no entries")
		return result
	}

	usable := make([]bool, len(entries))
	seen := make(map[string]int, len(entries))
	for i, entry := range entries {
		label := entryLabel(entry, i)
		rangeOK := true

		if entry.ID != "" {
			if first, dup := seen[entry.ID]; dup {
				result.Conflicts = append(result.Conflicts, fmt.Sprintf("entry %s duplicates entry #%d", label, first+1))
			} else {
				seen[entry.ID] = i
			}
		}
		if !entry.DayOfWeek.IsAcademic() {
			result.Conflicts = append(result.Conflicts, fmt.Sprintf("entry %s: %q is not an academic working day", label, entry.DayOfWeek))
		}
		if !entry.Start.Valid() || !entry.End.Valid() || entry.Start >= entry.End {
			rangeOK = false
			result.Conflicts = append(result.Conflicts, fmt.Sprintf("entry %s: start %s must precede end %s", label, entry.Start, entry.End))
		} else if entry.Start < hours.Open || entry.End > hours.Close {
			result.Conflicts = append(result.Conflicts, fmt.Sprintf("entry %s: %s-%s falls outside working hours %s-%s", label, entry.Start, entry.End, hours.Open, hours.Close))
		}

		switch room, known := opts.KnownRooms[entry.RoomID]; {
		case strings.TrimSpace(entry.RoomID) == "":
			result.Conflicts = append(result.Conflicts, fmt.Sprintf("entry %s: room is required", label))
		case opts.KnownRooms != nil && !known:
			result.Conflicts = append(result.Conflicts, fmt.Sprintf("entry %s: room %s not found", label, entry.RoomID))
		case known && entry.ParticipantCount > room.Capacity:
			result.Warnings = append(result.Warnings, fmt.Sprintf("entry %s: %d participants exceed capacity %d of room %s", label, entry.ParticipantCount, room.Capacity, entry.RoomID))
		}

		switch {
		case strings.TrimSpace(entry.TeacherID) == "":
			result.Warnings = append(result.Warnings, fmt.Sprintf("entry %s has no teacher assigned", label))
		case opts.KnownTeachers != nil && !opts.KnownTeachers[entry.TeacherID]:
			result.Conflicts = append(result.Conflicts, fmt.Sprintf("entry %s: teacher %s not found", label, entry.TeacherID))
		}

		usable[i] = rangeOK
	}

	for i := 0; i < len(entries); i++ {
		if !usable[i] {
			continue
		}
		for j := i + 1; j < len(entries); j++ {
			if !usable[j] {
				continue
			}
			a, b := entries[i], entries[j]
			if !sameDay(a.DayOfWeek, b.DayOfWeek) {
				continue
			}
			if !overlaps(anchored(a), anchored(b)) {
				continue
			}
			if a.RoomID != "" && a.RoomID == b.RoomID {
				result.Conflicts = append(result.Conflicts, fmt.Sprintf("room %s is double-booked on %s: %s (%s-%s) overlaps %s (%s-%s)",
					a.RoomID, a.DayOfWeek, entryLabel(a, i), a.Start, a.End, entryLabel(b, j), b.Start, b.End))
			}
			if a.TeacherID != "" && a.TeacherID == b.TeacherID {
				result.Conflicts = append(result.Conflicts, fmt.Sprintf("teacher %s is double-booked on %s: %s (%s-%s) overlaps %s (%s-%s)",
					a.TeacherID, a.DayOfWeek, entryLabel(a, i), a.Start, a.End, entryLabel(b, j), b.Start, b.End))
			}
		}
	}

	result.IsValid = len(result.Conflicts) == 0
	return result
}

func anchored(entry models.TimetableEntry) models.TimeRange {
	return models.TimeRange{Start: entry.Start.On(anchorDate), End: entry.End.On(anchorDate)}
}

func sameDay(a, b models.Weekday) bool {
	return strings.EqualFold(strings.TrimSpace(string(a)), strings.TrimSpace(string(b)))
}
