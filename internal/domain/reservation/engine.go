package reservation

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockops/backend/internal/domain/inventory"
	"github.com/stockops/backend/internal/domain/shared"
)

// Result codes. The engine never returns an error for business outcomes;
// callers branch on Code.
const (
	CodeOK                 = "200"
	CodeIntegrityViolation = "400"
)

// MovementIntent is an inventory movement the caller must post if it commits
// the engine result. The engine itself never touches balances.
type MovementIntent struct {
	Kind     inventory.MovementKind `json:"kind"`
	Quantity decimal.Decimal        `json:"quantity"`
}

// EngineInput describes one consuming-document line whose quantity changed,
// together with the reservation records matched for its
// (material, batch, location) key.
type EngineInput struct {
	TargetDocID  uuid.UUID
	TargetLineID uuid.UUID
	MaterialID   uuid.UUID
	BatchID      *uuid.UUID
	LocationID   uuid.UUID

	PreviousQty  decimal.Decimal
	RequestedQty decimal.Decimal

	// Allocated records already held by this document line
	Allocated []*ReservationRecord
	// Pending records for the same stock key, regardless of target
	Pending []*ReservationRecord
}

// EngineResult is the complete outcome of one engine run. RecordsToUpdate and
// RecordsToCreate are intents: nothing is persisted until the caller commits
// them, and a non-OK code guarantees both lists are empty.
type EngineResult struct {
	Code            string               `json:"code"`
	RecordsToUpdate []*ReservationRecord `json:"records_to_update"`
	RecordsToCreate []*ReservationRecord `json:"records_to_create"`
	Movements       []MovementIntent     `json:"movements"`
	Message         string               `json:"message,omitempty"`
}

func okResult() *EngineResult {
	return &EngineResult{
		Code:            CodeOK,
		RecordsToUpdate: make([]*ReservationRecord, 0),
		RecordsToCreate: make([]*ReservationRecord, 0),
		Movements:       make([]MovementIntent, 0),
	}
}

func integrityResult(message string) *EngineResult {
	return &EngineResult{
		Code:            CodeIntegrityViolation,
		RecordsToUpdate: make([]*ReservationRecord, 0),
		RecordsToCreate: make([]*ReservationRecord, 0),
		Movements:       make([]MovementIntent, 0),
		Message:         message,
	}
}

func (r *EngineResult) addMovement(kind inventory.MovementKind, qty decimal.Decimal) {
	if qty.LessThanOrEqual(decimal.Zero) {
		return
	}
	for i := range r.Movements {
		if r.Movements[i].Kind == kind {
			r.Movements[i].Quantity = r.Movements[i].Quantity.Add(qty)
			return
		}
	}
	r.Movements = append(r.Movements, MovementIntent{Kind: kind, Quantity: qty})
}

// checkPendingIntegrity enforces at most one Pending record per doc type and
// demand line for the stock key. A release folds each demand line into its own
// Pending record, so distinct lines may each hold one; two for the same line
// are a hard stop, never silently resolved.
func checkPendingIntegrity(pending []*ReservationRecord) string {
	seen := make(map[string]bool)
	for _, p := range pending {
		if p.Status != StatusPending {
			continue
		}
		key := p.DocType.String() + "|" + p.ParentLineID.String()
		if seen[key] {
			return fmt.Sprintf("Multiple pending reservation records found for doc type %s and demand line %s",
				p.DocType, p.ParentLineID)
		}
		seen[key] = true
	}
	return ""
}

func sortByReleasePriority(records []*ReservationRecord) []*ReservationRecord {
	out := make([]*ReservationRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DocType.ReleasePriority() < out[j].DocType.ReleasePriority()
	})
	return out
}

// pendingsOfType returns the Pending records of a doc type, one per demand
// line, in input order
func pendingsOfType(pending []*ReservationRecord, docType DocType) []*ReservationRecord {
	var out []*ReservationRecord
	for _, p := range pending {
		if p.Status == StatusPending && p.DocType == docType {
			out = append(out, p)
		}
	}
	return out
}

// Reallocate recomputes the reservation records for a consuming-document line
// after its requested quantity changed. An unchanged quantity is a no-op with
// zero mutations.
func Reallocate(input EngineInput) (*EngineResult, error) {
	if input.RequestedQty.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Requested quantity cannot be negative")
	}

	if msg := checkPendingIntegrity(input.Pending); msg != "" {
		return integrityResult(msg), nil
	}

	netChange := input.RequestedQty.Sub(input.PreviousQty)
	if netChange.IsZero() {
		return okResult(), nil
	}

	if netChange.IsNegative() {
		return release(input, netChange.Neg())
	}
	return allocate(input, netChange)
}

// release frees amount from the line's Allocated records in ascending release
// priority. Slices sourced from a goods delivery or picking plan go back to
// unrestricted stock; slices sourced from a demand document fold into a
// Pending record so the demand can be re-satisfied later.
func release(input EngineInput, amount decimal.Decimal) (*EngineResult, error) {
	result := okResult()
	remaining := amount

	// Pending merge targets created during this run, keyed by doc type and
	// demand line
	created := make(map[string]*ReservationRecord)

	for _, record := range sortByReleasePriority(input.Allocated) {
		if remaining.IsZero() {
			break
		}
		if record.Status != StatusAllocated || record.OpenQty.LessThanOrEqual(decimal.Zero) {
			continue
		}

		releaseQty := decimal.Min(remaining, record.OpenQty)
		fullRelease := releaseQty.Equal(record.OpenQty)

		if record.DocType.ReturnsToUnrestricted() {
			if fullRelease {
				if err := record.Cancel(); err != nil {
					return nil, err
				}
				result.RecordsToUpdate = append(result.RecordsToUpdate, record)
			} else {
				if err := record.Reduce(releaseQty); err != nil {
					return nil, err
				}
				result.RecordsToUpdate = append(result.RecordsToUpdate, record)
				cancelled := record.split(releaseQty, StatusCancelled)
				result.RecordsToCreate = append(result.RecordsToCreate, cancelled)
			}
			result.addMovement(inventory.MovementKindReservedToUnrestricted, releaseQty)
		} else {
			if fullRelease {
				// Allocated never moves back to Pending: the original is
				// cancelled and a fresh Pending record carries the demand.
				if err := record.Cancel(); err != nil {
					return nil, err
				}
				result.RecordsToUpdate = append(result.RecordsToUpdate, record)
			} else {
				if err := record.Reduce(releaseQty); err != nil {
					return nil, err
				}
				result.RecordsToUpdate = append(result.RecordsToUpdate, record)
			}

			if err := foldIntoPending(input, result, created, record, releaseQty); err != nil {
				return nil, err
			}
		}

		remaining = remaining.Sub(releaseQty)
	}

	if remaining.GreaterThan(decimal.Zero) {
		result.Message = fmt.Sprintf("Release short by %s: allocated records exhausted", remaining.String())
	}
	return result, nil
}

// foldIntoPending merges a released slice into the demand line's Pending
// record, creating one when none exists. At most one Pending per doc type and
// demand line can result because merge targets include records created earlier
// in this run.
func foldIntoPending(input EngineInput, result *EngineResult, created map[string]*ReservationRecord,
	source *ReservationRecord, qty decimal.Decimal) error {

	key := source.DocType.String() + "|" + source.ParentLineID.String()
	if target, ok := created[key]; ok {
		return target.Enlarge(qty)
	}
	for _, target := range pendingsOfType(input.Pending, source.DocType) {
		if target.ParentLineID != source.ParentLineID {
			continue
		}
		if err := target.Enlarge(qty); err != nil {
			return err
		}
		result.RecordsToUpdate = append(result.RecordsToUpdate, target)
		created[key] = target
		return nil
	}

	pending := source.split(qty, StatusPending)
	result.RecordsToCreate = append(result.RecordsToCreate, pending)
	created[key] = pending
	return nil
}

// allocate satisfies an increased quantity from Pending Production first, then
// Pending Sales Order, then directly from unrestricted stock.
func allocate(input EngineInput, amount decimal.Decimal) (*EngineResult, error) {
	result := okResult()
	remaining := amount

	for _, docType := range []DocType{DocTypeProduction, DocTypeSalesOrder} {
		if remaining.IsZero() {
			break
		}
		for _, pending := range pendingsOfType(input.Pending, docType) {
			if remaining.IsZero() {
				break
			}
			if pending.OpenQty.LessThanOrEqual(decimal.Zero) {
				continue
			}

			take := decimal.Min(remaining, pending.OpenQty)
			if take.Equal(pending.OpenQty) {
				if err := pending.Allocate(input.TargetDocID); err != nil {
					return nil, err
				}
				result.RecordsToUpdate = append(result.RecordsToUpdate, pending)
			} else {
				if err := pending.Reduce(take); err != nil {
					return nil, err
				}
				result.RecordsToUpdate = append(result.RecordsToUpdate, pending)

				slice := pending.split(take, StatusAllocated)
				slice.TargetDocID = &input.TargetDocID
				result.RecordsToCreate = append(result.RecordsToCreate, slice)
			}
			remaining = remaining.Sub(take)
		}
	}

	if remaining.GreaterThan(decimal.Zero) {
		record, err := NewReservationRecord(DocTypeGoodsDelivery, StatusAllocated,
			input.MaterialID, input.BatchID, input.LocationID, remaining,
			input.TargetDocID, input.TargetLineID)
		if err != nil {
			return nil, err
		}
		record.TargetDocID = &input.TargetDocID
		result.RecordsToCreate = append(result.RecordsToCreate, record)
		result.addMovement(inventory.MovementKindUnrestrictedToReserved, remaining)
	}

	return result, nil
}

// Deliver commits a delivery of RequestedQty against the line's reservations.
// Allocated records go first in release-priority order, then Pending
// Production, then Pending Sales Order, then unrestricted stock. Every
// consumed slice ends Delivered.
func Deliver(input EngineInput) (*EngineResult, error) {
	if input.RequestedQty.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Delivery quantity cannot be negative")
	}

	if msg := checkPendingIntegrity(input.Pending); msg != "" {
		return integrityResult(msg), nil
	}

	result := okResult()
	remaining := input.RequestedQty
	if remaining.IsZero() {
		return result, nil
	}

	deliverFrom := func(record *ReservationRecord) error {
		take := decimal.Min(remaining, record.OpenQty)
		if take.LessThanOrEqual(decimal.Zero) {
			return nil
		}
		if take.Equal(record.OpenQty) {
			if err := record.Deliver(); err != nil {
				return err
			}
			result.RecordsToUpdate = append(result.RecordsToUpdate, record)
		} else {
			if err := record.Reduce(take); err != nil {
				return err
			}
			result.RecordsToUpdate = append(result.RecordsToUpdate, record)

			delivered := record.split(take, StatusDelivered)
			delivered.TargetDocID = &input.TargetDocID
			result.RecordsToCreate = append(result.RecordsToCreate, delivered)
		}
		result.addMovement(inventory.MovementKindDelivery, take)
		remaining = remaining.Sub(take)
		return nil
	}

	for _, record := range sortByReleasePriority(input.Allocated) {
		if remaining.IsZero() {
			break
		}
		if record.Status != StatusAllocated {
			continue
		}
		if err := deliverFrom(record); err != nil {
			return nil, err
		}
	}

	for _, docType := range []DocType{DocTypeProduction, DocTypeSalesOrder} {
		if remaining.IsZero() {
			break
		}
		for _, pending := range pendingsOfType(input.Pending, docType) {
			if remaining.IsZero() {
				break
			}
			if err := deliverFrom(pending); err != nil {
				return nil, err
			}
		}
	}

	if remaining.GreaterThan(decimal.Zero) {
		record, err := NewReservationRecord(DocTypeGoodsDelivery, StatusPending,
			input.MaterialID, input.BatchID, input.LocationID, remaining,
			input.TargetDocID, input.TargetLineID)
		if err != nil {
			return nil, err
		}
		record.TargetDocID = &input.TargetDocID
		if err := record.Deliver(); err != nil {
			return nil, err
		}
		result.RecordsToCreate = append(result.RecordsToCreate, record)
		result.addMovement(inventory.MovementKindDeliveryUnrestricted, remaining)
	}

	return result, nil
}
