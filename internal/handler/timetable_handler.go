package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-space-scheduler/internal/dto"
	"github.com/noah-isme/sma-space-scheduler/internal/models"
	"github.com/noah-isme/sma-space-scheduler/internal/service"
	appErrors "github.com/noah-isme/sma-space-scheduler/pkg/errors"
	"github.com/noah-isme/sma-space-scheduler/pkg/jobs"
	"github.com/noah-isme/sma-space-scheduler/pkg/response"
)

type timetableService interface {
	GenerateSessions(ctx context.Context, req dto.GenerateSessionsRequest) (*models.GenerationResult, error)
	Validate(ctx context.Context, req dto.ValidateTimetableRequest) (models.ValidationResult, error)
	Create(ctx context.Context, req dto.CreateTimetableRequest) (*models.Timetable, *models.ValidationResult, error)
	Get(ctx context.Context, id string) (*models.Timetable, error)
}

type publicationService interface {
	Publish(ctx context.Context, timetableID string) (jobs.Status, error)
	Status(jobID string) (jobs.Status, error)
}

type sessionExporter interface {
	ExportSessions(ctx context.Context, timetableID, format string) (*service.ExportResult, error)
}

// TimetableHandler exposes weekly templates, semester generation and publication.
type TimetableHandler struct {
	timetables   timetableService
	publications publicationService
	exports      sessionExporter
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(timetables timetableService, publications publicationService, exports sessionExporter) *TimetableHandler {
	return &TimetableHandler{timetables: timetables, publications: publications, exports: exports}
}

// GenerateSessions godoc
// @Summary Expand weekly entries into dated sessions
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateSessionsRequest true "Entries and semester window"
// @Success 200 {object} response.Envelope
// @Router /timetables/sessions/generate [post]
func (h *TimetableHandler) GenerateSessions(c *gin.Context) {
	var req dto.GenerateSessionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generation payload"))
		return
	}
	result, err := h.timetables.GenerateSessions(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result, map[string]interface{}{
		"sessions": len(result.Sessions),
		"skipped":  len(result.Skipped),
	})
}

// Validate godoc
// @Summary Check a weekly template for room and teacher clashes
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.ValidateTimetableRequest true "Entries"
// @Success 200 {object} response.Envelope
// @Router /timetables/validate [post]
func (h *TimetableHandler) Validate(c *gin.Context) {
	var req dto.ValidateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timetable payload"))
		return
	}
	result, err := h.timetables.Validate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Create godoc
// @Summary Store a new version of a weekly template
// @Description Templates that fail validation are refused with 400 and the validation result.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.CreateTimetableRequest true "Template"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /timetables [post]
func (h *TimetableHandler) Create(c *gin.Context) {
	var req dto.CreateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timetable payload"))
		return
	}
	timetable, result, err := h.timetables.Create(c.Request.Context(), req)
	if err != nil {
		if result != nil && errors.Is(err, appErrors.ErrValidation) {
			response.ErrorWithData(c, err, result)
			return
		}
		response.Error(c, err)
		return
	}
	response.Created(c, timetable)
}

// Get godoc
// @Summary Get a stored template with its entries
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	timetable, err := h.timetables.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, timetable)
}

// Publish godoc
// @Summary Queue publication of a template as reservations
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 202 {object} response.Envelope
// @Router /timetables/{id}/publish [post]
func (h *TimetableHandler) Publish(c *gin.Context) {
	id := c.Param("id")
	status, err := h.publications.Publish(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, dto.PublishResponse{TimetableID: id, JobID: status.ID, State: string(status.State)})
}

// PublicationStatus godoc
// @Summary Get the state of a publication job
// @Tags Timetables
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/publications/{jobId} [get]
func (h *TimetableHandler) PublicationStatus(c *gin.Context) {
	status, err := h.publications.Status(c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, status)
}

// Export godoc
// @Summary Render the generated sessions of a template
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Param format query string false "csv or pdf"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/export [post]
func (h *TimetableHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	result, err := h.exports.ExportSessions(c.Request.Context(), c.Param("id"), query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ExportResponse{
		Token:     result.Token,
		URL:       result.URL,
		Format:    result.Format,
		ExpiresAt: result.ExpiresAt,
	})
}
