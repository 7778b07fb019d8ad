package dto

import (
	"time"

	"github.com/noah-isme/sma-space-scheduler/internal/models"
)

// ReservationRequest describes a candidate booking.
type ReservationRequest struct {
	ID               string    `json:"id"`
	SpaceID          string    `json:"spaceId" validate:"required"`
	TeacherID        string    `json:"teacherId"`
	Title            string    `json:"title" validate:"max=200"`
	Start            time.Time `json:"start" validate:"required"`
	End              time.Time `json:"end" validate:"required"`
	ParticipantCount int       `json:"participantCount" validate:"min=0"`
	Priority         int       `json:"priority" validate:"omitempty,min=1,max=4"`
	Equipment        []string  `json:"equipment" validate:"omitempty,dive,required"`
	SessionType      string    `json:"sessionType" validate:"omitempty,oneof=lecture tutorial lab"`
}

// CreateReservationRequest books a space. Force stores the reservation even
// when blocking conflicts are found.
type CreateReservationRequest struct {
	ReservationRequest
	Status string `json:"status" validate:"omitempty,oneof=pending confirmed"`
	Force  bool   `json:"force"`
}

// UpdateReservationStatusRequest moves a reservation through its lifecycle.
type UpdateReservationStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed approved cancelled rejected"`
}

// ConflictCheckResponse lists the conflicts of a candidate.
type ConflictCheckResponse struct {
	Conflicts   []models.Conflict `json:"conflicts"`
	HasBlocking bool              `json:"hasBlocking"`
}

// FreeSlotsQuery filters slot enumeration for one space.
type FreeSlotsQuery struct {
	Date        string `form:"date" json:"date" validate:"required"`
	Duration    int    `form:"duration" json:"duration" validate:"required,min=1,max=1440"`
	Granularity int    `form:"granularity" json:"granularity" validate:"omitempty,min=1,max=1440"`
}

// FreeDaysQuery selects the free-day horizon.
type FreeDaysQuery struct {
	From    string `form:"from" json:"from"`
	Horizon int    `form:"horizon" json:"horizon" validate:"omitempty,min=1,max=366"`
}

// RecommendationRequest describes a space search.
type RecommendationRequest struct {
	Date             string   `json:"date" validate:"required"`
	StartTime        string   `json:"startTime" validate:"required"`
	DurationMinutes  int      `json:"durationMinutes" validate:"required,min=1,max=1440"`
	ParticipantCount int      `json:"participantCount" validate:"min=0"`
	Type             string   `json:"type"`
	Equipment        []string `json:"equipment"`
	Building         string   `json:"building"`
	Granularity      int      `json:"granularity" validate:"omitempty,min=1,max=1440"`
}

// GenerateSessionsRequest expands weekly entries over a semester.
type GenerateSessionsRequest struct {
	YearStart string                  `json:"yearStart" validate:"required"`
	WeekCount int                     `json:"weekCount" validate:"omitempty,min=1,max=53"`
	Entries   []models.TimetableEntry `json:"entries"`
}

// ValidateTimetableRequest checks a weekly template without storing it.
type ValidateTimetableRequest struct {
	Entries []models.TimetableEntry `json:"entries"`
}

// CreateTimetableRequest stores a new version of a named template.
type CreateTimetableRequest struct {
	Name      string                  `json:"name" validate:"required,max=120"`
	YearStart string                  `json:"yearStart" validate:"required"`
	WeekCount int                     `json:"weekCount" validate:"omitempty,min=1,max=53"`
	Entries   []models.TimetableEntry `json:"entries" validate:"required,min=1"`
}

// PublishResponse reports the publication job handed to the queue.
type PublishResponse struct {
	TimetableID string `json:"timetableId"`
	JobID       string `json:"jobId"`
	State       string `json:"state"`
}

// ExportQuery selects the export format.
type ExportQuery struct {
	Format string `form:"format" json:"format" validate:"omitempty,oneof=csv pdf"`
}

// ExportResponse carries the signed download link of a rendered export.
type ExportResponse struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	Format    string    `json:"format"`
	ExpiresAt time.Time `json:"expiresAt"`
}
