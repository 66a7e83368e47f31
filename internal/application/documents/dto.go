package documents

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiptLine is one line of a goods receiving document
type ReceiptLine struct {
	LineID       uuid.UUID       `json:"line_id"`
	MaterialID   uuid.UUID       `json:"material_id"`
	LocationID   uuid.UUID       `json:"location_id"`
	BatchID      *uuid.UUID      `json:"batch_id,omitempty"`
	SerialNumber string          `json:"serial_number,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	UOM          string          `json:"uom,omitempty"`
}

// ReceiptDocument is a goods receiving document ready to commit
type ReceiptDocument struct {
	DocID    uuid.UUID     `json:"doc_id"`
	DocNo    string        `json:"doc_no"`
	ParentNo string        `json:"parent_no,omitempty"` // purchase order number
	Lines    []ReceiptLine `json:"lines"`
}

// DeliveryLine is one line of a goods delivery document
type DeliveryLine struct {
	LineID       uuid.UUID       `json:"line_id"`
	MaterialID   uuid.UUID       `json:"material_id"`
	LocationID   uuid.UUID       `json:"location_id"`
	BatchID      *uuid.UUID      `json:"batch_id,omitempty"`
	OrderedQty   decimal.Decimal `json:"ordered_qty"`
	PreviousQty  decimal.Decimal `json:"previous_qty"`
	RequestedQty decimal.Decimal `json:"requested_qty"`
	UOM          string          `json:"uom,omitempty"`
}

// DeliveryDocument is a goods delivery document ready to commit
type DeliveryDocument struct {
	DocID    uuid.UUID      `json:"doc_id"`
	DocNo    string         `json:"doc_no"`
	ParentNo string         `json:"parent_no,omitempty"` // sales order number
	Lines    []DeliveryLine `json:"lines"`
}

// ReturnLine is one line of a purchase return document
type ReturnLine struct {
	LineID       uuid.UUID       `json:"line_id"`
	MaterialID   uuid.UUID       `json:"material_id"`
	LocationID   uuid.UUID       `json:"location_id"`
	BatchID      *uuid.UUID      `json:"batch_id,omitempty"`
	SerialNumber string          `json:"serial_number,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	UOM          string          `json:"uom,omitempty"`
}

// ReturnDocument is a purchase return document ready to commit
type ReturnDocument struct {
	DocID    uuid.UUID    `json:"doc_id"`
	DocNo    string       `json:"doc_no"`
	ParentNo string       `json:"parent_no,omitempty"` // goods receipt number
	Lines    []ReturnLine `json:"lines"`
}

// LineOutcome reports what happened to one document line
type LineOutcome struct {
	LineID  uuid.UUID `json:"line_id"`
	Code    string    `json:"code"`
	Skipped bool      `json:"skipped"`
	Message string    `json:"message,omitempty"`
}

// CommitResult is the outcome of committing one document
type CommitResult struct {
	DocNo            string        `json:"doc_no"`
	AlreadyProcessed bool          `json:"already_processed"`
	Lines            []LineOutcome `json:"lines"`
}

// processed counts lines that were neither skipped nor failed
func (r *CommitResult) processed() int {
	n := 0
	for _, l := range r.Lines {
		if !l.Skipped {
			n++
		}
	}
	return n
}
