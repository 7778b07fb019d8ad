package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-space-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-space-scheduler/pkg/errors"
	"github.com/noah-isme/sma-space-scheduler/pkg/jobs"
)

func storedTimetable() *models.Timetable {
	return &models.Timetable{
		ID:        "tt-1",
		Name:      "Grade 10",
		Version:   1,
		YearStart: time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC),
		WeekCount: 2,
		Status:    models.TimetableStatusDraft,
		Entries: []models.TimetableEntry{
			weeklyEntry("e1", models.Monday, 9, 10, "A"),
			weeklyEntry("e2", models.Wednesday, 13, 15, "B"),
		},
	}
}

func waitForJob(t *testing.T, svc *PublicationService, id string, want jobs.State) jobs.Status {
	t.Helper()
	var status jobs.Status
	require.Eventually(t, func() bool {
		var err error
		status, err = svc.Status(id)
		return err == nil && status.State == want
	}, 2*time.Second, 5*time.Millisecond)
	return status
}

func TestPublicationServicePublishesIdempotently(t *testing.T) {
	timetables := newTimetableStoreStub(storedTimetable())
	reservations := &reservationStoreStub{}
	memory := newMemoryCache()
	metrics := NewMetricsService()
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	svc := NewPublicationService(timetables, reservations, tx, NewCacheService(memory, metrics, 0, nil, true), metrics, nil,
		SchedulingConfig{GenerationWorkers: 2}, PublicationConfig{Workers: 1})
	svc.Start(context.Background())
	defer svc.Stop()

	status, err := svc.Publish(context.Background(), "tt-1")
	require.NoError(t, err)
	assert.Equal(t, "publish:tt-1:v1", status.ID)
	waitForJob(t, svc, status.ID, jobs.StateSucceeded)

	assert.Equal(t, 4, reservations.count())
	require.Len(t, reservations.execs, 1)
	assert.NotNil(t, reservations.execs[0])
	first := reservations.appended[0]
	assert.Equal(t, models.ReservationSourceTimetable, first[0].Source)

	state, meta := timetables.lastStatus()
	assert.Equal(t, models.TimetableStatusPublished, state)
	var decoded publicationMeta
	require.NoError(t, json.Unmarshal(meta, &decoded))
	assert.Equal(t, 4, decoded.Sessions)
	assert.Contains(t, memory.deleted, "space-scheduler:free-days:*")

	_, err = svc.Publish(context.Background(), "tt-1")
	require.NoError(t, err)
	waitForJob(t, svc, status.ID, jobs.StateSucceeded)
	require.Eventually(t, func() bool { return mock.ExpectationsWereMet() == nil }, time.Second, 5*time.Millisecond)

	assert.Equal(t, 4, reservations.count())
	require.Len(t, reservations.appended, 2)
	for i := range first {
		assert.Equal(t, first[i].ID, reservations.appended[1][i].ID)
	}
	assert.EqualValues(t, 2, metrics.Snapshot().Publications)
}

func TestPublicationServiceRecordsFailure(t *testing.T) {
	timetables := newTimetableStoreStub(storedTimetable())
	metrics := NewMetricsService()
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	svc := NewPublicationService(timetables, &reservationStoreStub{}, tx, nil, metrics, nil, SchedulingConfig{}, PublicationConfig{})
	svc.Start(context.Background())
	defer svc.Stop()

	status, err := svc.Publish(context.Background(), "tt-1")
	require.NoError(t, err)
	failed := waitForJob(t, svc, status.ID, jobs.StateFailed)
	assert.Contains(t, failed.LastError, "connection refused")
	assert.EqualValues(t, 1, metrics.Snapshot().FailedPublications)

	state, _ := timetables.lastStatus()
	assert.Equal(t, models.TimetableStatus(""), state)
}

func TestPublicationServiceRejectsUnknownOrEmpty(t *testing.T) {
	empty := storedTimetable()
	empty.ID = "tt-empty"
	empty.Entries = nil
	svc := NewPublicationService(newTimetableStoreStub(empty), &reservationStoreStub{}, nil, nil, nil, nil, SchedulingConfig{}, PublicationConfig{})
	svc.Start(context.Background())
	defer svc.Stop()

	_, err := svc.Publish(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrResourceNotFound))

	_, err = svc.Publish(context.Background(), "tt-empty")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Status("publish:unknown:v1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
