package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stockops/backend/internal/domain/inventory"
	"github.com/stockops/backend/internal/domain/shared"
	"github.com/stockops/backend/internal/interfaces/http/dto"
)

// BalanceHandler serves inventory balance and movement queries
type BalanceHandler struct {
	BaseHandler
	balances  inventory.BalanceRepository
	movements inventory.MovementRepository
}

// NewBalanceHandler creates a new BalanceHandler
func NewBalanceHandler(balances inventory.BalanceRepository, movements inventory.MovementRepository) *BalanceHandler {
	return &BalanceHandler{balances: balances, movements: movements}
}

// RegisterRoutes registers balance routes
func (h *BalanceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/inventory")
	group.GET("/materials/:material_id/balances", h.ListBalances)
	group.GET("/materials/:material_id/movements", h.ListMovements)
	group.GET("/movements", h.MovementsByDocument)
}

// BalanceResponse is one balance row in API responses
type BalanceResponse struct {
	ID              string  `json:"id"`
	MaterialID      string  `json:"material_id"`
	LocationID      string  `json:"location_id"`
	BatchID         *string `json:"batch_id,omitempty"`
	SerialNumber    string  `json:"serial_number,omitempty"`
	UnrestrictedQty string  `json:"unrestricted_qty"`
	ReservedQty     string  `json:"reserved_qty"`
	BlockedQty      string  `json:"blocked_qty"`
	QualityInspQty  string  `json:"quality_insp_qty"`
	InTransitQty    string  `json:"in_transit_qty"`
	BalanceQty      string  `json:"balance_qty"`
	Version         int     `json:"version"`
}

func toBalanceResponse(b inventory.InventoryBalance) BalanceResponse {
	var batchID *string
	if b.BatchID != nil {
		s := b.BatchID.String()
		batchID = &s
	}
	return BalanceResponse{
		ID:              b.ID.String(),
		MaterialID:      b.MaterialID.String(),
		LocationID:      b.LocationID.String(),
		BatchID:         batchID,
		SerialNumber:    b.SerialNumber,
		UnrestrictedQty: b.UnrestrictedQty.String(),
		ReservedQty:     b.ReservedQty.String(),
		BlockedQty:      b.BlockedQty.String(),
		QualityInspQty:  b.QualityInspQty.String(),
		InTransitQty:    b.InTransitQty.String(),
		BalanceQty:      b.BalanceQty.String(),
		Version:         b.Version,
	}
}

// ListBalances returns the balances of one material, optionally filtered by location
func (h *BalanceHandler) ListBalances(c *gin.Context) {
	materialID, err := uuid.Parse(c.Param("material_id"))
	if err != nil {
		h.BadRequest(c, "Invalid material ID")
		return
	}

	var balances []inventory.InventoryBalance
	if locationParam := c.Query("location_id"); locationParam != "" {
		locationID, err := uuid.Parse(locationParam)
		if err != nil {
			h.BadRequest(c, "Invalid location ID")
			return
		}
		balances, err = h.balances.FindByMaterialAndLocation(c.Request.Context(), materialID, locationID)
		if err != nil {
			h.HandleDomainError(c, err)
			return
		}
	} else {
		filter := listFilter(c)
		balances, err = h.balances.FindByMaterial(c.Request.Context(), materialID, filter)
		if err != nil {
			h.HandleDomainError(c, err)
			return
		}
	}

	responses := make([]BalanceResponse, 0, len(balances))
	for _, b := range balances {
		responses = append(responses, toBalanceResponse(b))
	}
	h.Success(c, responses)
}

// ListMovements returns the movement log of one material
func (h *BalanceHandler) ListMovements(c *gin.Context) {
	materialID, err := uuid.Parse(c.Param("material_id"))
	if err != nil {
		h.BadRequest(c, "Invalid material ID")
		return
	}

	movements, err := h.movements.FindByMaterial(c.Request.Context(), materialID, listFilter(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, movements)
}

// MovementsByDocument returns all movements posted by one document number
func (h *BalanceHandler) MovementsByDocument(c *gin.Context) {
	trxNo := c.Query("trx_no")
	if trxNo == "" {
		h.BadRequest(c, "trx_no query parameter is required")
		return
	}

	movements, err := h.movements.FindByTrxNo(c.Request.Context(), trxNo)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, movements)
}

// listFilter builds a shared.Filter from the request's list parameters
func listFilter(c *gin.Context) shared.Filter {
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		req = dto.DefaultListRequest()
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}
	return shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
	}
}
