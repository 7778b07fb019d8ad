package models

import "time"

// TimeSlot is one enumerated candidate window for a space.
type TimeSlot struct {
	TimeRange
	Available bool `json:"available"`
}

// FreeDay lists the spaces without any active reservation on Date.
type FreeDay struct {
	Date   time.Time `json:"date"`
	Spaces []Space   `json:"spaces"`
}

// RecommendationCriteria describes a space search.
type RecommendationCriteria struct {
	Date               time.Time
	Start              TimeOfDay
	DurationMinutes    int
	ParticipantCount   int
	Type               SpaceType
	Equipment          []string
	Building           string
	GranularityMinutes int
}

// RequestedRange anchors the requested slot to the search date.
func (c RecommendationCriteria) RequestedRange() TimeRange {
	start := c.Start.On(c.Date)
	return TimeRange{Start: start, End: start.Add(time.Duration(c.DurationMinutes) * time.Minute)}
}

// Recommendation is a scored candidate space for a search.
type Recommendation struct {
	SpaceID        string      `json:"spaceId"`
	Score          float64     `json:"score"`
	Reasons        []string    `json:"reasons"`
	AvailableSlots []TimeRange `json:"availableSlots"`
	IsOptimal      bool        `json:"isOptimal"`
}
