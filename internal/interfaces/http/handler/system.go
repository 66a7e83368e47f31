package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/stockops/backend/internal/infrastructure/persistence"
)

// SystemHandler serves health and readiness probes
type SystemHandler struct {
	BaseHandler
	db *persistence.Database
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db *persistence.Database) *SystemHandler {
	return &SystemHandler{db: db}
}

// RegisterRoutes registers system routes
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
	rg.GET("/ready", h.Ready)
}

// Health reports process liveness
func (h *SystemHandler) Health(c *gin.Context) {
	h.Success(c, gin.H{"status": "ok"})
}

// Ready reports whether the service can reach its database
func (h *SystemHandler) Ready(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		h.Error(c, 503, "ERR_NOT_READY", "Database unreachable")
		return
	}
	h.Success(c, gin.H{"status": "ready"})
}
