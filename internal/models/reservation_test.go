package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReservationStatusTransitions(t *testing.T) {
	allowed := map[ReservationStatus][]ReservationStatus{
		ReservationStatusPending:   {ReservationStatusConfirmed, ReservationStatusApproved, ReservationStatusCancelled, ReservationStatusRejected},
		ReservationStatusApproved:  {ReservationStatusConfirmed, ReservationStatusCancelled},
		ReservationStatusConfirmed: {ReservationStatusCancelled},
	}
	all := []ReservationStatus{
		ReservationStatusPending, ReservationStatusConfirmed, ReservationStatusApproved,
		ReservationStatusCancelled, ReservationStatusRejected,
	}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, next := range allowed[from] {
				if next == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestReservationStatusClassification(t *testing.T) {
	assert.True(t, ReservationStatusPending.IsActive())
	assert.True(t, ReservationStatusConfirmed.IsActive())
	assert.False(t, ReservationStatusApproved.IsActive())
	assert.False(t, ReservationStatusCancelled.IsActive())
	assert.True(t, ReservationStatusRejected.IsTerminal())
	assert.False(t, ReservationStatusApproved.IsTerminal())
	assert.False(t, ReservationStatus("archived").Known())
}

func TestPriorityValid(t *testing.T) {
	assert.False(t, Priority(0).Valid())
	assert.True(t, PriorityUrgent.Valid())
	assert.True(t, PriorityLow.Valid())
	assert.False(t, Priority(5).Valid())
}

func TestWeekdays(t *testing.T) {
	day, ok := ParseWeekday(" Monday ")
	assert.True(t, ok)
	assert.Equal(t, Monday, day)
	_, ok = ParseWeekday("funday")
	assert.False(t, ok)

	assert.False(t, Friday.IsAcademic())
	assert.True(t, Weekday("SATURDAY").IsAcademic())
	assert.Len(t, AcademicDays, 6)
	assert.Equal(t, Thursday, WeekdayOf(time.Thursday))
}

func TestSpaceHelpers(t *testing.T) {
	space := Space{Equipment: []string{"projector"}, CleaningBufferMinutes: 10, Status: SpaceStatusCleaning}
	assert.True(t, space.HasEquipment("projector"))
	assert.False(t, space.HasEquipment("Projector"))
	assert.Equal(t, 10*time.Minute, space.CleaningBuffer())
	assert.True(t, space.Status.Bookable())
	assert.False(t, SpaceStatusOutOfService.Bookable())
	assert.Equal(t, []string{"smartboard"}, SessionTutorial.DefaultEquipment())
}
