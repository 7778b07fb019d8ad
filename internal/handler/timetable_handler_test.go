package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-space-scheduler/internal/dto"
	"github.com/noah-isme/sma-space-scheduler/internal/models"
	"github.com/noah-isme/sma-space-scheduler/internal/service"
	appErrors "github.com/noah-isme/sma-space-scheduler/pkg/errors"
	"github.com/noah-isme/sma-space-scheduler/pkg/jobs"
)

type timetableServiceMock struct {
	generateReq dto.GenerateSessionsRequest
	createErr   error
	validation  *models.ValidationResult
}

func (m *timetableServiceMock) GenerateSessions(ctx context.Context, req dto.GenerateSessionsRequest) (*models.GenerationResult, error) {
	m.generateReq = req
	return &models.GenerationResult{
		Sessions:  []models.GeneratedSession{{ID: "s-1", EntryID: "e-1"}},
		Skipped:   []models.SkippedEntry{{EntryID: "e-2", Reason: "Friday is not an academic day"}},
		WeekCount: req.WeekCount,
	}, nil
}

func (m *timetableServiceMock) Validate(ctx context.Context, req dto.ValidateTimetableRequest) (models.ValidationResult, error) {
	return models.ValidationResult{IsValid: true, Conflicts: []string{}, Warnings: []string{}}, nil
}

func (m *timetableServiceMock) Create(ctx context.Context, req dto.CreateTimetableRequest) (*models.Timetable, *models.ValidationResult, error) {
	if m.createErr != nil {
		return nil, m.validation, m.createErr
	}
	return &models.Timetable{ID: "tt-1", Name: req.Name, Version: 1, Status: models.TimetableStatusDraft}, m.validation, nil
}

func (m *timetableServiceMock) Get(ctx context.Context, id string) (*models.Timetable, error) {
	if id != "tt-1" {
		return nil, appErrors.Clone(appErrors.ErrResourceNotFound, "timetable not found")
	}
	return &models.Timetable{ID: id}, nil
}

type publicationServiceMock struct{}

func (publicationServiceMock) Publish(ctx context.Context, timetableID string) (jobs.Status, error) {
	return jobs.Status{ID: "publish:" + timetableID + ":v1", State: jobs.StateQueued}, nil
}

func (publicationServiceMock) Status(jobID string) (jobs.Status, error) {
	return jobs.Status{}, appErrors.Clone(appErrors.ErrNotFound, "publication job not found")
}

type sessionExporterMock struct {
	format string
}

func (m *sessionExporterMock) ExportSessions(ctx context.Context, timetableID, format string) (*service.ExportResult, error) {
	m.format = format
	return &service.ExportResult{
		Token:     "signed",
		URL:       "/api/v1/exports/signed",
		Format:    format,
		ExpiresAt: time.Date(2024, time.September, 2, 10, 0, 0, 0, time.UTC),
	}, nil
}

func newTimetableRouter(tt *timetableServiceMock, exporter *sessionExporterMock) http.Handler {
	h := NewTimetableHandler(tt, publicationServiceMock{}, exporter)
	router := newTestRouter()
	router.POST("/timetables/sessions/generate", h.GenerateSessions)
	router.POST("/timetables/validate", h.Validate)
	router.POST("/timetables", h.Create)
	router.GET("/timetables/:id", h.Get)
	router.POST("/timetables/:id/publish", h.Publish)
	router.GET("/timetables/publications/:jobId", h.PublicationStatus)
	router.POST("/timetables/:id/export", h.Export)
	return router
}

func TestTimetableGenerateSessionsReportsCounts(t *testing.T) {
	svc := &timetableServiceMock{}
	w, env := perform(t, newTimetableRouter(svc, &sessionExporterMock{}), http.MethodPost, "/timetables/sessions/generate",
		`{"yearStart":"2024-09-01","weekCount":2,"entries":[{"id":"e-1","dayOfWeek":"monday","start":"09:00","end":"10:00","roomId":"A","teacherId":"T"}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-09-01", svc.generateReq.YearStart)
	require.Len(t, svc.generateReq.Entries, 1)
	assert.Equal(t, models.Clock(9, 0), svc.generateReq.Entries[0].Start)
	assert.EqualValues(t, 1, env.Meta["sessions"])
	assert.EqualValues(t, 1, env.Meta["skipped"])
}

func TestTimetableCreateReturnsValidationResult(t *testing.T) {
	svc := &timetableServiceMock{
		createErr:  appErrors.Clone(appErrors.ErrValidation, "timetable has conflicts"),
		validation: &models.ValidationResult{Conflicts: []string{"room A double booked"}, Warnings: []string{}},
	}
	w, env := perform(t, newTimetableRouter(svc, &sessionExporterMock{}), http.MethodPost, "/timetables",
		`{"name":"Semester 1","yearStart":"2024-09-01","entries":[]}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, env.Error.Code)
	var result models.ValidationResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.False(t, result.IsValid)
	assert.Equal(t, []string{"room A double booked"}, result.Conflicts)
}

func TestTimetableCreateStored(t *testing.T) {
	w, _ := perform(t, newTimetableRouter(&timetableServiceMock{}, &sessionExporterMock{}), http.MethodPost, "/timetables",
		`{"name":"Semester 1","yearStart":"2024-09-01","entries":[]}`)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestTimetableGetNotFound(t *testing.T) {
	w, env := perform(t, newTimetableRouter(&timetableServiceMock{}, &sessionExporterMock{}), http.MethodGet, "/timetables/missing", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, appErrors.ErrResourceNotFound.Code, env.Error.Code)
}

func TestTimetablePublishAccepted(t *testing.T) {
	w, env := perform(t, newTimetableRouter(&timetableServiceMock{}, &sessionExporterMock{}), http.MethodPost, "/timetables/tt-1/publish", "")

	require.Equal(t, http.StatusAccepted, w.Code)
	var body dto.PublishResponse
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, dto.PublishResponse{TimetableID: "tt-1", JobID: "publish:tt-1:v1", State: "queued"}, body)
}

func TestTimetablePublicationStatusUnknown(t *testing.T) {
	w, _ := perform(t, newTimetableRouter(&timetableServiceMock{}, &sessionExporterMock{}), http.MethodGet, "/timetables/publications/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTimetableExport(t *testing.T) {
	exporter := &sessionExporterMock{}
	w, env := perform(t, newTimetableRouter(&timetableServiceMock{}, exporter), http.MethodPost, "/timetables/tt-1/export?format=pdf", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pdf", exporter.format)
	var body dto.ExportResponse
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "/api/v1/exports/signed", body.URL)
	assert.Equal(t, "signed", body.Token)
}
