package reservation

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockops/backend/internal/domain/shared"
)

// DocType identifies the demand document a reservation originates from
type DocType string

const (
	DocTypeSalesOrder    DocType = "SALES_ORDER"
	DocTypeProduction    DocType = "PRODUCTION"
	DocTypeGoodsDelivery DocType = "GOODS_DELIVERY"
	DocTypePickingPlan   DocType = "PICKING_PLAN"
)

// IsValid checks if the doc type is valid
func (d DocType) IsValid() bool {
	switch d {
	case DocTypeSalesOrder, DocTypeProduction, DocTypeGoodsDelivery, DocTypePickingPlan:
		return true
	}
	return false
}

// String returns the string representation
func (d DocType) String() string {
	return string(d)
}

// ReleasePriority orders doc types for releasing allocated stock: lower values
// are released first. Sales Order demand is the most willing to wait, a Goods
// Delivery reservation holds stock only for its own document.
func (d DocType) ReleasePriority() int {
	switch d {
	case DocTypeSalesOrder:
		return 1
	case DocTypeProduction:
		return 2
	case DocTypeGoodsDelivery, DocTypePickingPlan:
		return 3
	default:
		return 99
	}
}

// ReturnsToUnrestricted reports whether released stock from this doc type goes
// back to the unrestricted pool instead of being held Pending for the demand
// document.
func (d DocType) ReturnsToUnrestricted() bool {
	return d == DocTypeGoodsDelivery || d == DocTypePickingPlan
}

// Status is the reservation lifecycle state
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAllocated Status = "ALLOCATED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// String returns the string representation
func (s Status) String() string {
	return string(s)
}

// statusTransitions is the allowed transition table. Forward skips are legal
// (Pending can go straight to Delivered); moving backwards never is.
var statusTransitions = map[Status][]Status{
	StatusPending:   {StatusAllocated, StatusDelivered, StatusCancelled},
	StatusAllocated: {StatusDelivered, StatusCancelled},
	StatusDelivered: {},
	StatusCancelled: {},
}

// CanTransitionTo checks if a transition to the target status is allowed
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// ReservationRecord tracks one slice of reserved stock for a demand document
// line. Records are never physically deleted; a record leaves play by moving
// to Delivered or Cancelled.
type ReservationRecord struct {
	shared.BaseAggregateRoot
	DocType      DocType         `gorm:"type:varchar(30);not null;index:idx_reservation_key,priority:1"`
	Status       Status          `gorm:"type:varchar(20);not null;index"`
	MaterialID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_reservation_key,priority:2"`
	BatchID      *uuid.UUID      `gorm:"type:uuid;index:idx_reservation_key,priority:3"`
	LocationID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_reservation_key,priority:4"`
	ReservedQty  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DeliveredQty decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	OpenQty      decimal.Decimal `gorm:"type:decimal(18,4);not null"`

	// ParentID/ParentLineID point at the demand document line this reservation
	// serves; TargetDocID at the consuming document (goods delivery) while
	// allocated; SourceRecordID at the record this one was split from.
	ParentID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	ParentLineID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	TargetDocID    *uuid.UUID `gorm:"type:uuid;index"`
	SourceRecordID *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (ReservationRecord) TableName() string {
	return "reservation_records"
}

// NewReservationRecord creates a new reservation record in the given status
func NewReservationRecord(docType DocType, status Status, materialID uuid.UUID, batchID *uuid.UUID,
	locationID uuid.UUID, qty decimal.Decimal, parentID, parentLineID uuid.UUID) (*ReservationRecord, error) {

	if !docType.IsValid() {
		return nil, shared.NewDomainError("INVALID_DOC_TYPE", "Invalid reservation doc type: "+docType.String())
	}
	if materialID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MATERIAL", "Material ID cannot be empty")
	}
	if locationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location ID cannot be empty")
	}
	if qty.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Reserved quantity must be positive")
	}

	return &ReservationRecord{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		DocType:           docType,
		Status:            status,
		MaterialID:        materialID,
		BatchID:           batchID,
		LocationID:        locationID,
		ReservedQty:       qty,
		DeliveredQty:      decimal.Zero,
		OpenQty:           qty,
		ParentID:          parentID,
		ParentLineID:      parentLineID,
	}, nil
}

// TransitionTo moves the record to a new status, rejecting illegal transitions
func (r *ReservationRecord) TransitionTo(target Status) error {
	if !r.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot transition reservation from %s to %s", r.Status, target))
	}
	r.Status = target
	r.Touch()
	return nil
}

// Allocate flips a Pending record to Allocated against a consuming document
func (r *ReservationRecord) Allocate(targetDocID uuid.UUID) error {
	if err := r.TransitionTo(StatusAllocated); err != nil {
		return err
	}
	r.TargetDocID = &targetDocID
	return nil
}

// Deliver marks the record fully delivered
func (r *ReservationRecord) Deliver() error {
	if err := r.TransitionTo(StatusDelivered); err != nil {
		return err
	}
	r.DeliveredQty = r.ReservedQty
	r.OpenQty = decimal.Zero
	return nil
}

// Cancel marks the record cancelled. Quantities are left in place for the
// audit trail; a cancelled record holds no stock.
func (r *ReservationRecord) Cancel() error {
	return r.TransitionTo(StatusCancelled)
}

// Reduce shrinks the record by qty, keeping OpenQty consistent. Used when a
// release or delivery takes only part of the record and the remainder stays
// in its current status.
func (r *ReservationRecord) Reduce(qty decimal.Decimal) error {
	if qty.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Reduction quantity must be positive")
	}
	if qty.GreaterThanOrEqual(r.OpenQty) {
		return shared.NewDomainError("INVALID_QUANTITY",
			"Reduction must leave a positive open quantity; use Cancel or Deliver for the full amount")
	}
	r.ReservedQty = r.ReservedQty.Sub(qty)
	r.OpenQty = r.ReservedQty.Sub(r.DeliveredQty)
	r.Touch()
	return nil
}

// Enlarge grows the record by qty. Used when a released slice is folded into
// an existing Pending record for the same demand line.
func (r *ReservationRecord) Enlarge(qty decimal.Decimal) error {
	if qty.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Enlargement quantity must be positive")
	}
	if r.Status != StatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only pending reservations can be enlarged")
	}
	r.ReservedQty = r.ReservedQty.Add(qty)
	r.OpenQty = r.ReservedQty.Sub(r.DeliveredQty)
	r.Touch()
	return nil
}

// split creates a new record carrying qty of this record's reservation, in the
// given status, with lineage back to this record.
func (r *ReservationRecord) split(qty decimal.Decimal, status Status) *ReservationRecord {
	id := r.GetID()
	out := &ReservationRecord{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		DocType:           r.DocType,
		Status:            status,
		MaterialID:        r.MaterialID,
		BatchID:           r.BatchID,
		LocationID:        r.LocationID,
		ReservedQty:       qty,
		DeliveredQty:      decimal.Zero,
		OpenQty:           qty,
		ParentID:          r.ParentID,
		ParentLineID:      r.ParentLineID,
		TargetDocID:       r.TargetDocID,
		SourceRecordID:    &id,
	}
	switch status {
	case StatusDelivered:
		out.DeliveredQty = qty
		out.OpenQty = decimal.Zero
	case StatusPending:
		out.TargetDocID = nil
	}
	return out
}
