package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-space-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-space-scheduler/pkg/errors"
)

// DefaultWeekCount is the length of a teaching semester.
const DefaultWeekCount = 16

// sessionNamespace seeds deterministic session ids. Changing it re-keys every
// published session.
var sessionNamespace = uuid.MustParse("6f1c1c4e-8f0a-4c55-9d0e-5b1f6a7d2c31")

// SessionID derives the stable id of the week-th occurrence of an entry.
func SessionID(entryID string, week int) string {
	return uuid.NewSHA1(sessionNamespace, []byte(entryID+":"+strconv.Itoa(week))).String()
}

// GenerateOptions tunes GenerateSemesterSessions.
type GenerateOptions struct {
	// Workers caps the number of entries expanded concurrently. Values below 1 mean 1.
	Workers int
}

// GenerateSemesterSessions expands each weekly entry into weekCount dated
// sessions, the first on or after yearStart's calendar day. weekCount of 0
// selects DefaultWeekCount. Times of day are applied in yearStart's location.
//
// Entries that cannot be expanded are listed in Skipped and do not stop the
// others. Output is ordered by entry then week whatever the worker count, and
// session ids depend only on entry id and week, so reruns are identical.
// A cancelled ctx aborts the run and nothing is returned.
func GenerateSemesterSessions(ctx context.Context, entries []models.TimetableEntry, yearStart time.Time, weekCount int, opts GenerateOptions) (*models.GenerationResult, error) {
	if yearStart.IsZero() {
		return nil, appErrors.Inputf("year start date is required")
	}
	if weekCount < 0 {
		return nil, appErrors.Inputf("week count %d must be positive", weekCount)
	}
	if weekCount == 0 {
		weekCount = DefaultWeekCount
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	result := &models.GenerationResult{WeekCount: weekCount, Skipped: []models.SkippedEntry{}}
	valid := make([]models.TimetableEntry, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for i, entry := range entries {
		reason := entryProblem(entry)
		if reason == "" {
			if _, dup := seen[entry.ID]; dup {
				reason = "duplicate entry id"
			}
		}
		if reason != "" {
			result.Skipped = append(result.Skipped, models.SkippedEntry{EntryID: entryLabel(entry, i), Reason: reason})
			continue
		}
		seen[entry.ID] = struct{}{}
		valid = append(valid, entry)
	}

	sessions := make([]models.GeneratedSession, len(valid)*weekCount)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range valid {
		entry := valid[i]
		offset := i * weekCount
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			first := firstOccurrence(yearStart, entry.DayOfWeek)
			for week := 1; week <= weekCount; week++ {
				sessions[offset+week-1] = buildSession(entry, first, week)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.Sessions = sessions
	return result, nil
}

// FirstOccurrence returns the first date on or after start falling on day.
func FirstOccurrence(start time.Time, day models.Weekday) (time.Time, error) {
	if !day.IsAcademic() {
		return time.Time{}, appErrors.Inputf("%q is not an academic working day", day)
	}
	return firstOccurrence(start, day), nil
}

func firstOccurrence(start time.Time, day models.Weekday) time.Time {
	target, _ := day.Time()
	base := models.Midnight(start)
	offset := (int(target) - int(base.Weekday()) + 7) % 7
	return base.AddDate(0, 0, offset)
}

func buildSession(entry models.TimetableEntry, first time.Time, week int) models.GeneratedSession {
	date := first.AddDate(0, 0, 7*(week-1))
	id := SessionID(entry.ID, week)
	return models.GeneratedSession{
		ID:        id,
		EntryID:   entry.ID,
		WeekIndex: week,
		Date:      date,
		Reservation: models.Reservation{
			ID:               id,
			SpaceID:          entry.RoomID,
			TeacherID:        entry.TeacherID,
			Title:            entry.Title,
			TimeRange:        models.TimeRange{Start: entry.Start.On(date), End: entry.End.On(date)},
			ParticipantCount: entry.ParticipantCount,
			Priority:         models.PriorityUrgent,
			Status:           models.ReservationStatusConfirmed,
			Equipment:        entry.SessionType.DefaultEquipment(),
			SessionType:      entry.SessionType,
			Source:           models.ReservationSourceTimetable,
		},
	}
}

// entryProblem returns why an entry cannot be expanded, or "".
func entryProblem(entry models.TimetableEntry) string {
	switch {
	case strings.TrimSpace(entry.ID) == "":
		return "entry id is required"
	case strings.TrimSpace(entry.RoomID) == "":
		return "room id is required"
	case !entry.DayOfWeek.IsAcademic():
		return fmt.Sprintf("%q is not an academic working day", entry.DayOfWeek)
	case !entry.Start.Valid() || !entry.End.Valid() || entry.Start >= entry.End:
		return fmt.Sprintf("start %s must precede end %s", entry.Start, entry.End)
	}
	return ""
}

func entryLabel(entry models.TimetableEntry, index int) string {
	if entry.ID != "" {
		return entry.ID
	}
	return fmt.Sprintf("#%d", index+1)
}
