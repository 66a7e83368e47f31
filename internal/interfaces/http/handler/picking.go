package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/stockops/backend/internal/application/pickingplan"
)

// PickingHandler serves picking plan allocation suggestions
type PickingHandler struct {
	BaseHandler
	plans *pickingplan.PlanService
}

// NewPickingHandler creates a new PickingHandler
func NewPickingHandler(plans *pickingplan.PlanService) *PickingHandler {
	return &PickingHandler{plans: plans}
}

// RegisterRoutes registers picking routes
func (h *PickingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/picking")
	group.POST("/suggest", h.Suggest)
}

// SuggestRequest carries the rows of one in-flight picking plan
type SuggestRequest struct {
	Rows []pickingplan.PlanRow `json:"rows" binding:"required,min=1"`
}

// Suggest proposes stock picks for every row of one document
func (h *PickingHandler) Suggest(c *gin.Context) {
	var req SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid picking request: "+err.Error())
		return
	}

	suggestions, err := h.plans.SuggestAllocations(c.Request.Context(), req.Rows)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, suggestions)
}
