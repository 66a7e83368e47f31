package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/stockops/backend/internal/domain/shared"
)

// BalanceRepository defines persistence for inventory balances
type BalanceRepository interface {
	// FindByID finds a balance by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryBalance, error)

	// FindByKey finds the balance for an exact (material, location, batch, serial) key
	FindByKey(ctx context.Context, materialID, locationID uuid.UUID, batchID *uuid.UUID, serialNumber string) (*InventoryBalance, error)

	// FindByMaterial finds all balances for a material across locations
	FindByMaterial(ctx context.Context, materialID uuid.UUID, filter shared.Filter) ([]InventoryBalance, error)

	// FindByMaterialAndLocation finds balances for a material at one location
	FindByMaterialAndLocation(ctx context.Context, materialID, locationID uuid.UUID) ([]InventoryBalance, error)

	// FindWithUnrestrictedStock finds balances with unrestricted quantity, in
	// stable creation order (the order the picking strategies iterate)
	FindWithUnrestrictedStock(ctx context.Context, materialID uuid.UUID) ([]InventoryBalance, error)

	// GetOrCreate gets the balance row for a key or creates an empty one
	GetOrCreate(ctx context.Context, materialID, locationID uuid.UUID, batchID *uuid.UUID, serialNumber string) (*InventoryBalance, error)

	// Save creates or updates a balance
	Save(ctx context.Context, balance *InventoryBalance) error

	// SaveWithLock saves with optimistic locking (checks version)
	SaveWithLock(ctx context.Context, balance *InventoryBalance) error
}

// MovementRepository defines persistence for the append-only movement log
type MovementRepository interface {
	// Create appends a movement record; updates are not allowed
	Create(ctx context.Context, movement *InventoryMovement) error

	// CreateBatch appends multiple movement records
	CreateBatch(ctx context.Context, movements []*InventoryMovement) error

	// FindByTrxNo finds movements for a document number
	FindByTrxNo(ctx context.Context, trxNo string) ([]InventoryMovement, error)

	// FindByMaterial finds movements for a material
	FindByMaterial(ctx context.Context, materialID uuid.UUID, filter shared.Filter) ([]InventoryMovement, error)

	// Delete removes a movement; only used by compensating rollback
	Delete(ctx context.Context, id uuid.UUID) error
}
