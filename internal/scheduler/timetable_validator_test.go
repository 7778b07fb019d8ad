package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-space-scheduler/internal/models"
)

func entry(id string, day models.Weekday, start, end models.TimeOfDay, room, teacher string) models.TimetableEntry {
	return models.TimetableEntry{ID: id, DayOfWeek: day, Start: start, End: end, RoomID: room, TeacherID: teacher}
}

func TestValidateTimetableRoomDoubleBooking(t *testing.T) {
	entries := []models.TimetableEntry{
		entry("e1", models.Monday, models.Clock(9, 0), models.Clock(10, 30), "Room 101", "t1"),
		entry("e2", models.Monday, models.Clock(10, 0), models.Clock(11, 0), "Room 101", "t2"),
	}

	result := ValidateTimetable(entries, ValidateOptions{})
	assert.False(t, result.IsValid)
	require.Len(t, result.Conflicts, 1)
	assert.Contains(t, result.Conflicts[0], "Room 101")
	assert.Contains(t, result.Conflicts[0], "e1")
	assert.Contains(t, result.Conflicts[0], "e2")
	assert.Empty(t, result.Warnings)
}

func TestValidateTimetableTeacherDoubleBooking(t *testing.T) {
	entries := []models.TimetableEntry{
		entry("e1", models.Sunday, models.Clock(9, 0), models.Clock(10, 0), "r1", "t1"),
		entry("e2", models.Sunday, models.Clock(9, 30), models.Clock(10, 30), "r2", "t1"),
	}

	result := ValidateTimetable(entries, ValidateOptions{})
	require.Len(t, result.Conflicts, 1)
	assert.Contains(t, result.Conflicts[0], "teacher t1")
}

func TestValidateTimetableNestedEntryConflictsOnBothDimensions(t *testing.T) {
	entries := []models.TimetableEntry{
		entry("e1", models.Wednesday, models.Clock(8, 0), models.Clock(12, 0), "r1", "t1"),
		entry("e2", models.Wednesday, models.Clock(9, 0), models.Clock(9, 45), "r1", "t1"),
	}

	result := ValidateTimetable(entries, ValidateOptions{})
	assert.False(t, result.IsValid)
	require.Len(t, result.Conflicts, 2)
	assert.Contains(t, result.Conflicts[0], "room r1")
	assert.Contains(t, result.Conflicts[1], "teacher t1")
}

func TestValidateTimetableTouchingAndOtherDaysAreFine(t *testing.T) {
	entries := []models.TimetableEntry{
		entry("e1", models.Monday, models.Clock(9, 0), models.Clock(10, 0), "r1", "t1"),
		entry("e2", models.Monday, models.Clock(10, 0), models.Clock(11, 0), "r1", "t1"),
		entry("e3", models.Tuesday, models.Clock(9, 0), models.Clock(10, 0), "r1", "t1"),
		entry("e4", "MONDAY", models.Clock(11, 0), models.Clock(12, 0), "r1", "t1"),
	}

	result := ValidateTimetable(entries, ValidateOptions{})
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Conflicts)
}

func TestValidateTimetableEmpty(t *testing.T) {
	result := ValidateTimetable(nil, ValidateOptions{})
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Conflicts)
	assert.Equal(t, []string{"timetable has no entries"}, result.Warnings)
}

func TestValidateTimetableEntryChecks(t *testing.T) {
	cases := []struct {
		name  string
		entry models.TimetableEntry
		want  string
	}{
		{"friday", entry("e1", models.Friday, models.Clock(9, 0), models.Clock(10, 0), "r1", "t1"), "not an academic working day"},
		{"inverted", entry("e1", models.Monday, models.Clock(10, 0), models.Clock(9, 0), "r1", "t1"), "must precede"},
		{"too early", entry("e1", models.Monday, models.Clock(7, 0), models.Clock(9, 0), "r1", "t1"), "outside working hours"},
		{"too late", entry("e1", models.Monday, models.Clock(22, 0), models.Clock(23, 30), "r1", "t1"), "outside working hours"},
		{"no room", entry("e1", models.Monday, models.Clock(9, 0), models.Clock(10, 0), "", "t1"), "room is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := ValidateTimetable([]models.TimetableEntry{tc.entry}, ValidateOptions{})
			assert.False(t, result.IsValid)
			require.Len(t, result.Conflicts, 1)
			assert.Contains(t, result.Conflicts[0], tc.want)
		})
	}
}

func TestValidateTimetableReferenceLookups(t *testing.T) {
	rooms := map[string]models.Space{"r1": {ID: "r1", Capacity: 20}}
	teachers := map[string]bool{"t1": true}
	big := entry("e1", models.Monday, models.Clock(9, 0), models.Clock(10, 0), "r1", "t1")
	big.ParticipantCount = 40
	entries := []models.TimetableEntry{
		big,
		entry("e2", models.Monday, models.Clock(9, 0), models.Clock(10, 0), "r9", "t1"),
		entry("e3", models.Tuesday, models.Clock(9, 0), models.Clock(10, 0), "r1", "t9"),
		entry("e4", models.Tuesday, models.Clock(11, 0), models.Clock(12, 0), "r1", ""),
	}

	result := ValidateTimetable(entries, ValidateOptions{KnownRooms: rooms, KnownTeachers: teachers})
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Conflicts, "entry e2: room r9 not found")
	assert.Contains(t, result.Conflicts, "entry e3: teacher t9 not found")
	assert.Contains(t, result.Warnings, "entry e1: 40 participants exceed capacity 20 of room r1")
	assert.Contains(t, result.Warnings, "entry e4 has no teacher assigned")
	// e1 and e2 share teacher t1 at the same time
	assert.Len(t, result.Conflicts, 3)
}

func TestValidateTimetableCollectsEverything(t *testing.T) {
	entries := []models.TimetableEntry{
		entry("e1", models.Friday, models.Clock(9, 0), models.Clock(10, 0), "r1", "t1"),
		entry("e1", models.Monday, models.Clock(6, 0), models.Clock(7, 0), "r1", "t1"),
		entry("e3", models.Monday, models.Clock(6, 30), models.Clock(7, 30), "r1", "t1"),
	}

	result := ValidateTimetable(entries, ValidateOptions{WorkingHours: models.OpeningHours{Open: models.Clock(8, 0), Close: models.Clock(18, 0)}})
	assert.False(t, result.IsValid)
	// friday, duplicate id, two out-of-hours entries, room and teacher clash
	assert.Len(t, result.Conflicts, 6)
}
