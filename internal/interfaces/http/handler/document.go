package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stockops/backend/internal/application/documents"
	"github.com/stockops/backend/internal/domain/reservation"
	"github.com/stockops/backend/internal/interfaces/http/dto"
)

// DocumentHandler serves goods receiving, goods delivery and purchase return
// commits
type DocumentHandler struct {
	BaseHandler
	receiving *documents.GoodsReceivingService
	delivery  *documents.GoodsDeliveryService
	returns   *documents.PurchaseReturnService
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(receiving *documents.GoodsReceivingService,
	delivery *documents.GoodsDeliveryService, returns *documents.PurchaseReturnService) *DocumentHandler {
	return &DocumentHandler{receiving: receiving, delivery: delivery, returns: returns}
}

// RegisterRoutes registers document routes
func (h *DocumentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/documents")
	group.POST("/goods-receipts/commit", h.CommitReceipt)
	group.POST("/goods-deliveries/allocate", h.AllocateDelivery)
	group.POST("/goods-deliveries/deliver", h.DeliverDelivery)
	group.POST("/goods-deliveries/cancel", h.CancelDelivery)
	group.POST("/purchase-returns/commit", h.CommitReturn)
}

// CommitReceipt posts a saved goods receiving document into stock
func (h *DocumentHandler) CommitReceipt(c *gin.Context) {
	var doc documents.ReceiptDocument
	if err := c.ShouldBindJSON(&doc); err != nil {
		h.BadRequest(c, "Invalid receipt document: "+err.Error())
		return
	}

	result, err := h.receiving.Commit(c.Request.Context(), doc)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// CommitReturn posts a purchase return document, issuing stock back to the
// vendor at current ledger cost
func (h *DocumentHandler) CommitReturn(c *gin.Context) {
	var doc documents.ReturnDocument
	if err := c.ShouldBindJSON(&doc); err != nil {
		h.BadRequest(c, "Invalid return document: "+err.Error())
		return
	}

	result, err := h.returns.Commit(c.Request.Context(), doc)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// AllocateDelivery reserves stock for a delivery document in Created state
func (h *DocumentHandler) AllocateDelivery(c *gin.Context) {
	h.commitDelivery(c, h.delivery.CommitCreated)
}

// DeliverDelivery posts a delivery document, consuming reserved stock and cost
func (h *DocumentHandler) DeliverDelivery(c *gin.Context) {
	h.commitDelivery(c, h.delivery.CommitDelivered)
}

// CancelDelivery releases the reservations of a cancelled delivery document
func (h *DocumentHandler) CancelDelivery(c *gin.Context) {
	h.commitDelivery(c, h.delivery.CommitCancelCreated)
}

func (h *DocumentHandler) commitDelivery(c *gin.Context,
	commit func(ctx context.Context, doc documents.DeliveryDocument) (*documents.CommitResult, error)) {
	var doc documents.DeliveryDocument
	if err := c.ShouldBindJSON(&doc); err != nil {
		h.BadRequest(c, "Invalid delivery document: "+err.Error())
		return
	}

	result, err := commit(c.Request.Context(), doc)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	// a line reporting an integrity violation means the whole commit was
	// rolled back; surface the detail with a conflict status
	for _, line := range result.Lines {
		if line.Code == reservation.CodeIntegrityViolation {
			c.JSON(http.StatusConflict, dto.NewSuccessResponse(result))
			return
		}
	}
	h.Success(c, result)
}
