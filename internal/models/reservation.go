package models

import (
	"time"

	"github.com/lib/pq"
)

// ReservationStatus captures the reservation lifecycle.
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusApproved  ReservationStatus = "approved"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusRejected  ReservationStatus = "rejected"
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationStatusPending:   {ReservationStatusConfirmed, ReservationStatusApproved, ReservationStatusCancelled, ReservationStatusRejected},
	ReservationStatusApproved:  {ReservationStatusConfirmed, ReservationStatusCancelled},
	ReservationStatusConfirmed: {ReservationStatusCancelled},
}

// IsActive reports whether the status blocks the space.
func (s ReservationStatus) IsActive() bool {
	return s == ReservationStatusPending || s == ReservationStatusConfirmed
}

// IsTerminal reports whether no transition leaves s.
func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationStatusCancelled || s == ReservationStatusRejected
}

// Known reports whether s is one of the defined statuses.
func (s ReservationStatus) Known() bool {
	switch s {
	case ReservationStatusPending, ReservationStatusConfirmed, ReservationStatusApproved,
		ReservationStatusCancelled, ReservationStatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether s -> next is allowed.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	for _, allowed := range reservationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Priority ranks reservations, 1 being the most urgent.
type Priority int

const (
	PriorityUrgent Priority = 1
	PriorityHigh   Priority = 2
	PriorityNormal Priority = 3
	PriorityLow    Priority = 4
)

// Valid reports whether p is within 1..4.
func (p Priority) Valid() bool {
	return p >= PriorityUrgent && p <= PriorityLow
}

// ReservationSource distinguishes ad-hoc bookings from timetable publications.
type ReservationSource string

const (
	ReservationSourceManual    ReservationSource = "manual"
	ReservationSourceTimetable ReservationSource = "timetable"
)

// Reservation is a booking of a space for a time range.
type Reservation struct {
	ID               string            `db:"id" json:"id"`
	SpaceID          string            `db:"space_id" json:"spaceId"`
	TeacherID        string            `db:"teacher_id" json:"teacherId,omitempty"`
	Title            string            `db:"title" json:"title,omitempty"`
	TimeRange        `json:"range"`
	ParticipantCount int               `db:"participant_count" json:"participantCount"`
	Priority         Priority          `db:"priority" json:"priority"`
	Status           ReservationStatus `db:"status" json:"status"`
	Equipment        pq.StringArray    `db:"equipment" json:"equipment,omitempty"`
	SessionType      SessionType       `db:"session_type" json:"sessionType,omitempty"`
	Source           ReservationSource `db:"source" json:"source"`
	CreatedAt        time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updatedAt"`
}

// IsActive proxies the status check.
func (r Reservation) IsActive() bool {
	return r.Status.IsActive()
}

// ReservationFilter narrows ListActive queries. Zero values mean "any".
type ReservationFilter struct {
	SpaceID   string
	TeacherID string
	From      *time.Time
	To        *time.Time
}
