package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/sma-space-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-space-scheduler/pkg/errors"
)

// DetectConflicts checks candidate against the existing reservations and,
// when space is known, against its capacity, status and equipment.
//
// Only active records count. A record sharing the candidate's ID is the
// candidate itself and is ignored. The room dimension honours the space's
// cleaning buffer; the teacher dimension does not. The full list is always
// returned, a found conflict is never an error.
func DetectConflicts(candidate models.Reservation, existing []models.Reservation, space *models.Space) ([]models.Conflict, error) {
	if err := validateCandidate(candidate); err != nil {
		return nil, err
	}
	if space != nil && space.ID != candidate.SpaceID {
		return nil, appErrors.Inputf("space %q does not match reservation space %q", space.ID, candidate.SpaceID)
	}

	buffer := spaceBuffer(space)
	conflicts := make([]models.Conflict, 0)
	var teacherHits []models.Conflict

	for _, other := range existing {
		if !other.IsActive() || (candidate.ID != "" && other.ID == candidate.ID) {
			continue
		}
		sameSpace := other.SpaceID == candidate.SpaceID
		sameTeacher := candidate.TeacherID != "" && other.TeacherID == candidate.TeacherID
		if !sameSpace && !sameTeacher {
			continue
		}
		if err := ValidateRange(other.TimeRange); err != nil {
			return nil, appErrors.Inputf("existing reservation %q: start must precede end", other.ID)
		}
		if sameSpace && overlaps(candidate.TimeRange, other.TimeRange.ExtendEnd(buffer)) {
			conflicts = append(conflicts, overlapConflict(candidate, other, models.DimensionRoom))
		}
		if sameTeacher && overlaps(candidate.TimeRange, other.TimeRange) {
			teacherHits = append(teacherHits, overlapConflict(candidate, other, models.DimensionTeacher))
		}
	}
	conflicts = append(conflicts, teacherHits...)

	if space == nil {
		return conflicts, nil
	}

	if candidate.ParticipantCount > space.Capacity {
		conflicts = append(conflicts, models.Conflict{
			Type:           models.ConflictCapacityExceeded,
			Severity:       severityFor(candidate.Priority),
			Dimension:      models.DimensionSpace,
			ReservationIDs: idsOf(candidate),
			Message:        fmt.Sprintf("%d participants exceed capacity %d of space %s", candidate.ParticipantCount, space.Capacity, space.ID),
			Suggestions: []string{
				fmt.Sprintf("choose a space with capacity of at least %d", candidate.ParticipantCount),
				fmt.Sprintf("reduce participants to %d or fewer", space.Capacity),
			},
		})
	}

	if !space.Status.Bookable() {
		conflicts = append(conflicts, models.Conflict{
			Type:           models.ConflictMaintenance,
			Severity:       models.SeverityHigh,
			Dimension:      models.DimensionSpace,
			ReservationIDs: idsOf(candidate),
			Message:        fmt.Sprintf("space %s is %s", space.ID, space.Status),
			Suggestions:    []string{"choose another space"},
		})
	}

	if missing := missingEquipment(*space, candidate.Equipment); len(missing) > 0 {
		conflicts = append(conflicts, models.Conflict{
			Type:           models.ConflictEquipment,
			Severity:       models.SeverityLow,
			Dimension:      models.DimensionSpace,
			ReservationIDs: idsOf(candidate),
			Message:        fmt.Sprintf("space %s lacks %s", space.ID, strings.Join(missing, ", ")),
			Suggestions:    []string{"request portable equipment", "choose a better equipped space"},
		})
	}

	return conflicts, nil
}

func validateCandidate(candidate models.Reservation) error {
	if strings.TrimSpace(candidate.SpaceID) == "" {
		return appErrors.Inputf("reservation %q: space id is required", candidate.ID)
	}
	if err := ValidateRange(candidate.TimeRange); err != nil {
		return err
	}
	if !candidate.Priority.Valid() {
		return appErrors.Inputf("reservation %q: priority %d outside 1..4", candidate.ID, candidate.Priority)
	}
	if candidate.ParticipantCount < 0 {
		return appErrors.Inputf("reservation %q: participant count cannot be negative", candidate.ID)
	}
	return nil
}

func overlapConflict(candidate, other models.Reservation, dim models.ConflictDimension) models.Conflict {
	severity := models.SeverityMedium
	if candidate.Priority == models.PriorityUrgent || other.Priority == models.PriorityUrgent {
		severity = models.SeverityHigh
	}
	msg := fmt.Sprintf("space %s already booked by reservation %s during %s", other.SpaceID, other.ID, other.TimeRange)
	alternative := "pick another space"
	if dim == models.DimensionTeacher {
		msg = fmt.Sprintf("teacher %s already teaches in reservation %s during %s", other.TeacherID, other.ID, other.TimeRange)
		alternative = "assign another teacher"
	}
	return models.Conflict{
		Type:           models.ConflictTimeOverlap,
		Severity:       severity,
		Dimension:      dim,
		ReservationIDs: append(idsOf(candidate), other.ID),
		Message:        msg,
		Suggestions: []string{
			fmt.Sprintf("start at or after %s", other.End.Format("15:04")),
			fmt.Sprintf("end at or before %s", other.Start.Format("15:04")),
			alternative,
		},
	}
}

func severityFor(p models.Priority) models.ConflictSeverity {
	if p == models.PriorityUrgent {
		return models.SeverityHigh
	}
	return models.SeverityMedium
}

func idsOf(r models.Reservation) []string {
	if r.ID == "" {
		return []string{}
	}
	return []string{r.ID}
}

func missingEquipment(space models.Space, requested []string) []string {
	var missing []string
	for _, item := range dedupe(requested) {
		if !spaceProvides(space, item) {
			missing = append(missing, item)
		}
	}
	return missing
}

func spaceBuffer(space *models.Space) time.Duration {
	if space == nil {
		return 0
	}
	return space.CleaningBuffer()
}
