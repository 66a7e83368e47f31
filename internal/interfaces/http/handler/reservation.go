package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stockops/backend/internal/domain/reservation"
)

// ReservationHandler serves reservation record queries
type ReservationHandler struct {
	BaseHandler
	reservations reservation.Repository
}

// NewReservationHandler creates a new ReservationHandler
func NewReservationHandler(reservations reservation.Repository) *ReservationHandler {
	return &ReservationHandler{reservations: reservations}
}

// RegisterRoutes registers reservation routes
func (h *ReservationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/reservations")
	group.GET("/:id", h.Get)
	group.GET("", h.ListByParentLine)
}

// Get returns one reservation record
func (h *ReservationHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid reservation ID")
		return
	}

	record, err := h.reservations.FindByID(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, record)
}

// ListByParentLine returns every record serving a demand document line
func (h *ReservationHandler) ListByParentLine(c *gin.Context) {
	parentLineID, err := uuid.Parse(c.Query("parent_line_id"))
	if err != nil {
		h.BadRequest(c, "parent_line_id query parameter is required")
		return
	}

	records, err := h.reservations.FindByParentLine(c.Request.Context(), parentLineID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, records)
}
