package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockops/backend/internal/domain/inventory"
	"github.com/stockops/backend/internal/domain/shared"
)

// GormBalanceRepository implements inventory.BalanceRepository using GORM
type GormBalanceRepository struct {
	db *gorm.DB
}

// NewGormBalanceRepository creates a new GormBalanceRepository
func NewGormBalanceRepository(db *gorm.DB) *GormBalanceRepository {
	return &GormBalanceRepository{db: db}
}

// FindByID finds a balance by its ID
func (r *GormBalanceRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryBalance, error) {
	var balance inventory.InventoryBalance
	if err := r.db.WithContext(ctx).First(&balance, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &balance, nil
}

// FindByKey finds the balance for an exact (material, location, batch, serial) key
func (r *GormBalanceRepository) FindByKey(ctx context.Context, materialID, locationID uuid.UUID, batchID *uuid.UUID, serialNumber string) (*inventory.InventoryBalance, error) {
	var balance inventory.InventoryBalance
	query := r.db.WithContext(ctx).
		Where("material_id = ? AND location_id = ? AND serial_number = ?", materialID, locationID, serialNumber)
	query = whereBatch(query, batchID)

	if err := query.First(&balance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &balance, nil
}

// FindByMaterial finds all balances for a material across locations
func (r *GormBalanceRepository) FindByMaterial(ctx context.Context, materialID uuid.UUID, filter shared.Filter) ([]inventory.InventoryBalance, error) {
	var balances []inventory.InventoryBalance
	query := applyFilter(
		r.db.WithContext(ctx).Model(&inventory.InventoryBalance{}).
			Where("material_id = ?", materialID),
		filter,
	)

	if err := query.Find(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}

// FindByMaterialAndLocation finds balances for a material at one location
func (r *GormBalanceRepository) FindByMaterialAndLocation(ctx context.Context, materialID, locationID uuid.UUID) ([]inventory.InventoryBalance, error) {
	var balances []inventory.InventoryBalance
	if err := r.db.WithContext(ctx).
		Where("material_id = ? AND location_id = ?", materialID, locationID).
		Order("created_at ASC").
		Find(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}

// FindWithUnrestrictedStock finds balances with unrestricted quantity in
// stable creation order
func (r *GormBalanceRepository) FindWithUnrestrictedStock(ctx context.Context, materialID uuid.UUID) ([]inventory.InventoryBalance, error) {
	var balances []inventory.InventoryBalance
	if err := r.db.WithContext(ctx).
		Where("material_id = ? AND unrestricted_qty > 0", materialID).
		Order("created_at ASC").
		Find(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}

// GetOrCreate gets the balance row for a key or creates an empty one
func (r *GormBalanceRepository) GetOrCreate(ctx context.Context, materialID, locationID uuid.UUID, batchID *uuid.UUID, serialNumber string) (*inventory.InventoryBalance, error) {
	balance, err := r.FindByKey(ctx, materialID, locationID, batchID, serialNumber)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	balance, err = inventory.NewInventoryBalance(materialID, locationID, batchID, serialNumber)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(balance).Error; err != nil {
		// another writer may have created the row first
		if isUniqueViolation(err) {
			return r.FindByKey(ctx, materialID, locationID, batchID, serialNumber)
		}
		return nil, err
	}
	return balance, nil
}

// Save creates or updates a balance
func (r *GormBalanceRepository) Save(ctx context.Context, balance *inventory.InventoryBalance) error {
	return r.db.WithContext(ctx).Save(balance).Error
}

// SaveWithLock saves with optimistic locking: the update only applies if the
// stored version is one behind the aggregate's current version
func (r *GormBalanceRepository) SaveWithLock(ctx context.Context, balance *inventory.InventoryBalance) error {
	result := r.db.WithContext(ctx).
		Model(&inventory.InventoryBalance{}).
		Where("id = ? AND version = ?", balance.ID, balance.Version-1).
		Updates(map[string]interface{}{
			"unrestricted_qty": balance.UnrestrictedQty,
			"reserved_qty":     balance.ReservedQty,
			"blocked_qty":      balance.BlockedQty,
			"quality_insp_qty": balance.QualityInspQty,
			"in_transit_qty":   balance.InTransitQty,
			"balance_qty":      balance.BalanceQty,
			"version":          balance.Version,
			"updated_at":       balance.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// whereBatch adds the batch predicate; a nil batch matches the NULL column
func whereBatch(query *gorm.DB, batchID *uuid.UUID) *gorm.DB {
	if batchID == nil {
		return query.Where("batch_id IS NULL")
	}
	return query.Where("batch_id = ?", *batchID)
}

// isUniqueViolation detects unique-constraint errors across drivers
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
