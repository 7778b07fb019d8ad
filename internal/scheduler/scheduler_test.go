package scheduler

import (
	"time"

	"github.com/noah-isme/sma-space-scheduler/internal/models"
)

// 2024-09-02 is a Monday.
var testDay = time.Date(2024, time.September, 2, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return testDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func span(h1, m1, h2, m2 int) models.TimeRange {
	return models.TimeRange{Start: at(h1, m1), End: at(h2, m2)}
}

func roomA() models.Space {
	return models.Space{
		ID:           "A",
		Name:         "Room A",
		Building:     "Main",
		Capacity:     30,
		Type:         models.SpaceTypeClassroom,
		Status:       models.SpaceStatusAvailable,
		OpeningHours: models.OpeningHours{Open: models.Clock(8, 0), Close: models.Clock(18, 0)},
	}
}

func booking(id, spaceID string, r models.TimeRange, priority models.Priority) models.Reservation {
	return models.Reservation{
		ID:               id,
		SpaceID:          spaceID,
		TimeRange:        r,
		ParticipantCount: 10,
		Priority:         priority,
		Status:           models.ReservationStatusConfirmed,
	}
}
