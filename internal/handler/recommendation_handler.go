package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-space-scheduler/internal/dto"
	"github.com/noah-isme/sma-space-scheduler/internal/middleware"
	"github.com/noah-isme/sma-space-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-space-scheduler/pkg/errors"
	"github.com/noah-isme/sma-space-scheduler/pkg/response"
)

type recommendationService interface {
	Recommend(ctx context.Context, req dto.RecommendationRequest) ([]models.Recommendation, bool, error)
}

// RecommendationHandler serves ranked space suggestions.
type RecommendationHandler struct {
	service recommendationService
}

// NewRecommendationHandler constructs the handler.
func NewRecommendationHandler(service recommendationService) *RecommendationHandler {
	return &RecommendationHandler{service: service}
}

// Recommend godoc
// @Summary Recommend spaces for a session
// @Description Scores every bookable space, including alternative start times on the same day.
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body dto.RecommendationRequest true "Search criteria"
// @Success 200 {object} response.Envelope
// @Router /spaces/recommendations [post]
func (h *RecommendationHandler) Recommend(c *gin.Context) {
	var req dto.RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid recommendation payload"))
		return
	}
	recommendations, cacheHit, err := h.service.Recommend(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	middleware.SetMeta(c, "count", len(recommendations))
	response.OK(c, recommendations, middleware.ExtractMeta(c))
}
