package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockops/backend/internal/domain/inventory"
	"github.com/stockops/backend/internal/domain/shared"
)

// GormMovementRepository implements inventory.MovementRepository using GORM.
// Movements are append-only; the only delete path is compensating rollback.
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// Create appends a movement record
func (r *GormMovementRepository) Create(ctx context.Context, movement *inventory.InventoryMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// CreateBatch appends multiple movement records
func (r *GormMovementRepository) CreateBatch(ctx context.Context, movements []*inventory.InventoryMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(movements).Error
}

// FindByTrxNo finds movements for a document number
func (r *GormMovementRepository) FindByTrxNo(ctx context.Context, trxNo string) ([]inventory.InventoryMovement, error) {
	var movements []inventory.InventoryMovement
	if err := r.db.WithContext(ctx).
		Where("trx_no = ?", trxNo).
		Order("movement_date ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindByMaterial finds movements for a material
func (r *GormMovementRepository) FindByMaterial(ctx context.Context, materialID uuid.UUID, filter shared.Filter) ([]inventory.InventoryMovement, error) {
	var movements []inventory.InventoryMovement
	query := applyFilter(
		r.db.WithContext(ctx).Model(&inventory.InventoryMovement{}).
			Where("material_id = ?", materialID),
		filter,
	)

	if err := query.Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// Delete removes a movement; only used by compensating rollback
func (r *GormMovementRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&inventory.InventoryMovement{}, "id = ?", id).Error
}
