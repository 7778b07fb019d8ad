package scheduler

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/noah-isme/sma-space-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-space-scheduler/pkg/errors"
)

// Weights are the additive scoring factors used by Recommend.
type Weights struct {
	ExactSlot          float64
	AlternativePenalty float64
	CapacityIdeal      float64
	CapacityTight      float64
	TypeMatch          float64
	Equipment          float64
	Building           float64
	Accessibility      float64
	AirConditioning    float64
	NaturalLight       float64
	OptimalThreshold   float64
}

// DefaultWeights returns the stock scoring table.
func DefaultWeights() Weights {
	return Weights{
		ExactSlot:          50,
		AlternativePenalty: 20,
		CapacityIdeal:      30,
		CapacityTight:      20,
		TypeMatch:          25,
		Equipment:          20,
		Building:           15,
		Accessibility:      5,
		AirConditioning:    3,
		NaturalLight:       3,
		OptimalThreshold:   80,
	}
}

const (
	idealRatioLow  = 0.6
	idealRatioHigh = 0.8
)

// Recommend scores every bookable space able to host the search and returns
// them best first. Ties keep the input order.
//
// A space is left out when it is under maintenance or out of service, when
// the requested start falls outside its opening hours, when it is too small,
// or when the requested slot is taken and no other slot that day fits.
func Recommend(criteria models.RecommendationCriteria, spaces []models.Space, reservations []models.Reservation, weights Weights) ([]models.Recommendation, error) {
	if err := validateCriteria(criteria); err != nil {
		return nil, err
	}
	requested := criteria.RequestedRange()
	wanted := dedupe(criteria.Equipment)

	results := make([]models.Recommendation, 0, len(spaces))
	for _, space := range spaces {
		if !space.Status.Bookable() || !space.OpeningHours.Valid() {
			continue
		}
		if criteria.Start < space.Open || criteria.Start >= space.Close {
			continue
		}
		if criteria.ParticipantCount > space.Capacity {
			continue
		}

		slots, err := ComputeFreeSlots(space, criteria.Date, reservations, criteria.DurationMinutes, criteria.GranularityMinutes)
		if err != nil {
			return nil, err
		}
		exactFree, err := IsRangeFree(space, requested, reservations)
		if err != nil {
			return nil, err
		}

		alternatives := make([]models.TimeRange, 0)
		for _, slot := range slots {
			if slot.Available && !slot.TimeRange.Equal(requested) {
				alternatives = append(alternatives, slot.TimeRange)
			}
		}

		rec := models.Recommendation{SpaceID: space.ID, Reasons: []string{}, AvailableSlots: []models.TimeRange{}}
		var score float64
		if exactFree {
			score += weights.ExactSlot
			rec.Reasons = append(rec.Reasons, "available at requested time")
			rec.AvailableSlots = append(rec.AvailableSlots, requested)
		} else {
			if len(alternatives) == 0 {
				continue
			}
			score -= weights.AlternativePenalty
			rec.Reasons = append(rec.Reasons, fmt.Sprintf("%d alternative slots", len(alternatives)))
		}
		rec.AvailableSlots = append(rec.AvailableSlots, alternatives...)

		if points, reason := capacityScore(criteria.ParticipantCount, space.Capacity, weights); reason != "" {
			score += points
			rec.Reasons = append(rec.Reasons, reason)
		}
		if criteria.Type != "" && space.Type == criteria.Type {
			score += weights.TypeMatch
			rec.Reasons = append(rec.Reasons, "matching space type")
		}
		if len(wanted) > 0 {
			matched := 0
			for _, item := range wanted {
				if spaceProvides(space, item) {
					matched++
				}
			}
			if matched > 0 {
				score += weights.Equipment * float64(matched) / float64(len(wanted))
				rec.Reasons = append(rec.Reasons, fmt.Sprintf("%d/%d requested equipment available", matched, len(wanted)))
			}
		}
		if criteria.Building != "" && strings.EqualFold(space.Building, criteria.Building) {
			score += weights.Building
			rec.Reasons = append(rec.Reasons, "in requested building")
		}
		if space.Accessibility {
			score += weights.Accessibility
			rec.Reasons = append(rec.Reasons, "accessible")
		}
		if space.AirConditioning {
			score += weights.AirConditioning
			rec.Reasons = append(rec.Reasons, "air conditioned")
		}
		if space.NaturalLight {
			score += weights.NaturalLight
			rec.Reasons = append(rec.Reasons, "natural light")
		}

		rec.Score = math.Round(score*100) / 100
		rec.IsOptimal = rec.Score >= weights.OptimalThreshold && exactFree
		results = append(results, rec)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

func capacityScore(participants, capacity int, w Weights) (float64, string) {
	if capacity <= 0 || participants <= 0 {
		return 0, ""
	}
	ratio := float64(participants) / float64(capacity)
	switch {
	case ratio > 1:
		return 0, ""
	case ratio > idealRatioHigh:
		return w.CapacityTight, "tight capacity fit"
	case ratio >= idealRatioLow:
		return w.CapacityIdeal, "optimal capacity fit"
	default:
		return w.CapacityIdeal * ratio / idealRatioLow, "capacity larger than needed"
	}
}

func validateCriteria(c models.RecommendationCriteria) error {
	if c.Date.IsZero() {
		return appErrors.Inputf("search date is required")
	}
	if !c.Start.Valid() {
		return appErrors.Inputf("search start %s is not a valid time of day", c.Start)
	}
	if c.DurationMinutes <= 0 {
		return appErrors.Inputf("duration of %d minutes must be positive", c.DurationMinutes)
	}
	if c.ParticipantCount < 0 {
		return appErrors.Inputf("participant count cannot be negative")
	}
	if c.GranularityMinutes < 0 {
		return appErrors.Inputf("granularity of %d minutes must be positive", c.GranularityMinutes)
	}
	return nil
}
