package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tripmate/internal/services"
	"github.com/charlesng35/tripmate/pkg/errors"
	"github.com/charlesng35/tripmate/pkg/response"
)

// PlanHandler generates AI itineraries.
type PlanHandler struct {
	planner *services.PlanService
}

// NewPlanHandler constructs a plan handler. A nil planner answers 503.
func NewPlanHandler(planner *services.PlanService) *PlanHandler {
	return &PlanHandler{planner: planner}
}

// POST /api/plan
func (h *PlanHandler) Generate(c *gin.Context) {
	if h.planner == nil {
		response.Error(c, errors.ErrServiceUnavailable.WithMessage("Itinerary planning is not configured"))
		return
	}

	var req services.PlanRequest
	if !bindAndValidate(c, &req) {
		return
	}

	itinerary, err := h.planner.Generate(requestContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, itinerary)
}
