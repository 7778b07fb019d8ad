package models

// ConflictType enumerates the dimensions a booking may clash on.
type ConflictType string

const (
	ConflictTimeOverlap      ConflictType = "time_overlap"
	ConflictCapacityExceeded ConflictType = "capacity_exceeded"
	ConflictEquipment        ConflictType = "equipment"
	ConflictMaintenance      ConflictType = "maintenance"
)

// ConflictSeverity ranks how disruptive a conflict is.
type ConflictSeverity string

const (
	SeverityHigh   ConflictSeverity = "high"
	SeverityMedium ConflictSeverity = "medium"
	SeverityLow    ConflictSeverity = "low"
)

// ConflictDimension identifies the shared resource.
type ConflictDimension string

const (
	DimensionRoom    ConflictDimension = "room"
	DimensionTeacher ConflictDimension = "teacher"
	DimensionSpace   ConflictDimension = "space"
)

// Conflict describes one detected problem with a candidate reservation.
// Computed on demand, never persisted.
type Conflict struct {
	Type           ConflictType      `json:"type"`
	Severity       ConflictSeverity  `json:"severity"`
	Dimension      ConflictDimension `json:"dimension"`
	ReservationIDs []string          `json:"reservationIds"`
	Message        string            `json:"message"`
	Suggestions    []string          `json:"suggestions,omitempty"`
}

// Blocking reports whether the conflict should stop a booking by default.
func (c Conflict) Blocking() bool {
	return c.Severity != SeverityLow
}
