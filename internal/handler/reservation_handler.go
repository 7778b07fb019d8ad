package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-space-scheduler/internal/dto"
	"github.com/noah-isme/sma-space-scheduler/internal/middleware"
	"github.com/noah-isme/sma-space-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-space-scheduler/pkg/errors"
	"github.com/noah-isme/sma-space-scheduler/pkg/response"
)

type reservationService interface {
	CheckConflicts(ctx context.Context, req dto.ReservationRequest) (*dto.ConflictCheckResponse, error)
	Create(ctx context.Context, req dto.CreateReservationRequest) (*models.Reservation, []models.Conflict, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateReservationStatusRequest) (*models.Reservation, error)
	FreeSlots(ctx context.Context, spaceID string, query dto.FreeSlotsQuery) ([]models.TimeSlot, bool, error)
	FreeDays(ctx context.Context, query dto.FreeDaysQuery) ([]models.FreeDay, bool, error)
}

type reservationCreatedResponse struct {
	Reservation *models.Reservation `json:"reservation"`
	Conflicts   []models.Conflict   `json:"conflicts"`
}

// ReservationHandler exposes booking and availability endpoints.
type ReservationHandler struct {
	service reservationService
}

// NewReservationHandler constructs the handler.
func NewReservationHandler(service reservationService) *ReservationHandler {
	return &ReservationHandler{service: service}
}

// CheckConflicts godoc
// @Summary Detect conflicts for a candidate reservation
// @Description Returns every room, teacher, capacity, equipment and availability conflict. Found conflicts are data, never errors.
// @Tags Reservations
// @Accept json
// @Produce json
// @Param payload body dto.ReservationRequest true "Candidate reservation"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reservations/conflicts [post]
func (h *ReservationHandler) CheckConflicts(c *gin.Context) {
	var req dto.ReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reservation payload"))
		return
	}
	result, err := h.service.CheckConflicts(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Create godoc
// @Summary Book a space
// @Description Refused with 409 and the blocking conflicts unless force is set.
// @Tags Reservations
// @Accept json
// @Produce json
// @Param payload body dto.CreateReservationRequest true "Reservation payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reservations [post]
func (h *ReservationHandler) Create(c *gin.Context) {
	var req dto.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reservation payload"))
		return
	}
	reservation, conflicts, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, appErrors.ErrConflict) && len(conflicts) > 0 {
			response.ErrorWithData(c, err, dto.ConflictCheckResponse{Conflicts: conflicts, HasBlocking: true})
			return
		}
		response.Error(c, err)
		return
	}
	if conflicts == nil {
		conflicts = []models.Conflict{}
	}
	response.Created(c, reservationCreatedResponse{Reservation: reservation, Conflicts: conflicts})
}

// UpdateStatus godoc
// @Summary Move a reservation through its lifecycle
// @Tags Reservations
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param payload body dto.UpdateReservationStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reservations/{id}/status [patch]
func (h *ReservationHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateReservationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	reservation, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, reservation)
}

// FreeSlots godoc
// @Summary List free slots of a space on one day
// @Tags Availability
// @Produce json
// @Param id path string true "Space ID"
// @Param date query string true "Day (YYYY-MM-DD)"
// @Param duration query int true "Slot length in minutes"
// @Param granularity query int false "Step in minutes"
// @Success 200 {object} response.Envelope
// @Router /spaces/{id}/free-slots [get]
func (h *ReservationHandler) FreeSlots(c *gin.Context) {
	var query dto.FreeSlotsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid free slot query"))
		return
	}
	slots, cacheHit, err := h.service.FreeSlots(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	middleware.SetMeta(c, "count", len(slots))
	response.OK(c, slots, middleware.ExtractMeta(c))
}

// FreeDays godoc
// @Summary List spaces with fully free days in the horizon
// @Tags Availability
// @Produce json
// @Param from query string false "First day (YYYY-MM-DD), defaults to today"
// @Param horizon query int false "Number of days"
// @Success 200 {object} response.Envelope
// @Router /spaces/free-days [get]
func (h *ReservationHandler) FreeDays(c *gin.Context) {
	var query dto.FreeDaysQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid free day query"))
		return
	}
	days, cacheHit, err := h.service.FreeDays(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.OK(c, days, middleware.ExtractMeta(c))
}
