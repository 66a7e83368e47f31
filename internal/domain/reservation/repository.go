package reservation

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for reservation records
type Repository interface {
	// FindByID finds a record by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*ReservationRecord, error)

	// FindAllocatedByTarget finds Allocated records held by a consuming
	// document line for one stock key
	FindAllocatedByTarget(ctx context.Context, targetDocID uuid.UUID, materialID uuid.UUID,
		batchID *uuid.UUID, locationID uuid.UUID) ([]*ReservationRecord, error)

	// FindPendingByKey finds Pending records for one stock key, any doc type
	FindPendingByKey(ctx context.Context, materialID uuid.UUID, batchID *uuid.UUID,
		locationID uuid.UUID) ([]*ReservationRecord, error)

	// FindByParentLine finds every record serving a demand document line
	FindByParentLine(ctx context.Context, parentLineID uuid.UUID) ([]*ReservationRecord, error)

	// Create inserts a new record
	Create(ctx context.Context, record *ReservationRecord) error

	// Save persists changes with optimistic locking on Version
	Save(ctx context.Context, record *ReservationRecord) error

	// Delete removes a record; only used by compensating rollback
	Delete(ctx context.Context, id uuid.UUID) error
}
