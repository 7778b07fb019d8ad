package models

import (
	"time"

	"github.com/lib/pq"
)

// SpaceStatus captures the lifecycle state of a bookable space.
type SpaceStatus string

const (
	SpaceStatusAvailable    SpaceStatus = "available"
	SpaceStatusOccupied     SpaceStatus = "occupied"
	SpaceStatusMaintenance  SpaceStatus = "maintenance"
	SpaceStatusOutOfService SpaceStatus = "out_of_service"
	SpaceStatusReservedFree SpaceStatus = "reserved_free"
	SpaceStatusCleaning     SpaceStatus = "cleaning"
)

// Bookable is false for spaces taken out of rotation.
func (s SpaceStatus) Bookable() bool {
	return s != SpaceStatusMaintenance && s != SpaceStatusOutOfService
}

// SpaceType classifies spaces for recommendation matching.
type SpaceType string

const (
	SpaceTypeClassroom    SpaceType = "classroom"
	SpaceTypeAmphitheater SpaceType = "amphitheater"
	SpaceTypeLaboratory   SpaceType = "laboratory"
	SpaceTypeMeetingRoom  SpaceType = "meeting_room"
	SpaceTypeComputerRoom SpaceType = "computer_room"
	SpaceTypeLibrary      SpaceType = "library"
	SpaceTypeOther        SpaceType = "other"
)

// OpeningHours is the daily bookable window of a space.
type OpeningHours struct {
	Open  TimeOfDay `db:"open_time" json:"open"`
	Close TimeOfDay `db:"close_time" json:"close"`
}

// Valid reports whether the window is non-empty and within a day.
func (h OpeningHours) Valid() bool {
	return h.Open.Valid() && h.Close.Valid() && h.Open < h.Close
}

// Minutes is the window length.
func (h OpeningHours) Minutes() int {
	return int(h.Close - h.Open)
}

// On returns the window anchored to date.
func (h OpeningHours) On(date time.Time) TimeRange {
	return TimeRange{Start: h.Open.On(date), End: h.Close.On(date)}
}

// SpaceFeatures carries the amenity flags used by scoring.
type SpaceFeatures struct {
	Multimedia      bool `db:"has_multimedia" json:"multimedia"`
	Computer        bool `db:"has_computer" json:"computer"`
	Specialized     bool `db:"has_specialized" json:"specialized"`
	Accessibility   bool `db:"has_accessibility" json:"accessibility"`
	AirConditioning bool `db:"has_air_conditioning" json:"airConditioning"`
	NaturalLight    bool `db:"has_natural_light" json:"naturalLight"`
}

// Space is a bookable room or hall.
type Space struct {
	ID                    string         `db:"id" json:"id"`
	Name                  string         `db:"name" json:"name"`
	Building              string         `db:"building" json:"building"`
	Capacity              int            `db:"capacity" json:"capacity"`
	Type                  SpaceType      `db:"type" json:"type"`
	Equipment             pq.StringArray `db:"equipment" json:"equipment"`
	CleaningBufferMinutes int            `db:"cleaning_buffer_minutes" json:"cleaningBufferMinutes"`
	Status                SpaceStatus    `db:"status" json:"status"`
	SpaceFeatures         `json:"features"`
	OpeningHours          `json:"openingHours"`
	CreatedAt             time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time `db:"updated_at" json:"updatedAt"`
}

// CleaningBuffer returns the post-reservation buffer as a duration.
func (s Space) CleaningBuffer() time.Duration {
	if s.CleaningBufferMinutes <= 0 {
		return 0
	}
	return time.Duration(s.CleaningBufferMinutes) * time.Minute
}

// HasEquipment reports whether the space lists item (case sensitive).
func (s Space) HasEquipment(item string) bool {
	for _, e := range s.Equipment {
		if e == item {
			return true
		}
	}
	return false
}
