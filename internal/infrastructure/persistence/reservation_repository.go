package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockops/backend/internal/domain/reservation"
	"github.com/stockops/backend/internal/domain/shared"
)

// GormReservationRepository implements reservation.Repository using GORM
type GormReservationRepository struct {
	db *gorm.DB
}

// NewGormReservationRepository creates a new GormReservationRepository
func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// FindByID finds a record by its ID
func (r *GormReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*reservation.ReservationRecord, error) {
	var record reservation.ReservationRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindAllocatedByTarget finds Allocated records held by a consuming document
// line for one stock key
func (r *GormReservationRepository) FindAllocatedByTarget(ctx context.Context, targetDocID uuid.UUID, materialID uuid.UUID,
	batchID *uuid.UUID, locationID uuid.UUID) ([]*reservation.ReservationRecord, error) {
	var records []*reservation.ReservationRecord
	query := whereBatch(
		r.db.WithContext(ctx).
			Where("target_doc_id = ? AND material_id = ? AND location_id = ? AND status = ?",
				targetDocID, materialID, locationID, reservation.StatusAllocated),
		batchID,
	)

	if err := query.Order("created_at ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindPendingByKey finds Pending records for one stock key, any doc type
func (r *GormReservationRepository) FindPendingByKey(ctx context.Context, materialID uuid.UUID, batchID *uuid.UUID,
	locationID uuid.UUID) ([]*reservation.ReservationRecord, error) {
	var records []*reservation.ReservationRecord
	query := whereBatch(
		r.db.WithContext(ctx).
			Where("material_id = ? AND location_id = ? AND status = ?",
				materialID, locationID, reservation.StatusPending),
		batchID,
	)

	if err := query.Order("created_at ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindByParentLine finds every record serving a demand document line
func (r *GormReservationRepository) FindByParentLine(ctx context.Context, parentLineID uuid.UUID) ([]*reservation.ReservationRecord, error) {
	var records []*reservation.ReservationRecord
	if err := r.db.WithContext(ctx).
		Where("parent_line_id = ?", parentLineID).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Create inserts a new record
func (r *GormReservationRepository) Create(ctx context.Context, record *reservation.ReservationRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// Save persists changes with optimistic locking on Version. The record's
// in-memory version is the one it was loaded with; the row is only updated
// when the stored version still matches, and both sides move forward on
// success.
func (r *GormReservationRepository) Save(ctx context.Context, record *reservation.ReservationRecord) error {
	result := r.db.WithContext(ctx).
		Model(&reservation.ReservationRecord{}).
		Where("id = ? AND version = ?", record.ID, record.Version).
		Updates(map[string]interface{}{
			"status":        record.Status,
			"reserved_qty":  record.ReservedQty,
			"delivered_qty": record.DeliveredQty,
			"open_qty":      record.OpenQty,
			"target_doc_id": record.TargetDocID,
			"version":       record.Version + 1,
			"updated_at":    record.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	record.IncrementVersion()
	return nil
}

// Delete removes a record; only used by compensating rollback
func (r *GormReservationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&reservation.ReservationRecord{}, "id = ?", id).Error
}
