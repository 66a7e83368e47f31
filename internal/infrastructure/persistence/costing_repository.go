package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockops/backend/internal/domain/costing"
	"github.com/stockops/backend/internal/domain/shared"
)

// GormFIFOLayerRepository implements costing.FIFOLayerRepository using GORM
type GormFIFOLayerRepository struct {
	db *gorm.DB
}

// NewGormFIFOLayerRepository creates a new GormFIFOLayerRepository
func NewGormFIFOLayerRepository(db *gorm.DB) *GormFIFOLayerRepository {
	return &GormFIFOLayerRepository{db: db}
}

// FindByMaterial finds all layers for a material(+batch) in ascending sequence order
func (r *GormFIFOLayerRepository) FindByMaterial(ctx context.Context, materialID uuid.UUID, batchID *uuid.UUID) ([]costing.FIFOCostLayer, error) {
	var layers []costing.FIFOCostLayer
	query := whereBatch(
		r.db.WithContext(ctx).Where("material_id = ?", materialID),
		batchID,
	)

	if err := query.Order("sequence ASC").Find(&layers).Error; err != nil {
		return nil, err
	}
	return layers, nil
}

// FindAvailable finds layers with remaining quantity in ascending sequence order
func (r *GormFIFOLayerRepository) FindAvailable(ctx context.Context, materialID uuid.UUID, batchID *uuid.UUID) ([]costing.FIFOCostLayer, error) {
	var layers []costing.FIFOCostLayer
	query := whereBatch(
		r.db.WithContext(ctx).Where("material_id = ? AND available_qty > 0", materialID),
		batchID,
	)

	if err := query.Order("sequence ASC").Find(&layers).Error; err != nil {
		return nil, err
	}
	return layers, nil
}

// Create appends a new layer. A duplicate sequence for the same material and
// batch hits the unique index and surfaces as an integrity violation.
func (r *GormFIFOLayerRepository) Create(ctx context.Context, layer *costing.FIFOCostLayer) error {
	if err := r.db.WithContext(ctx).Create(layer).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrIntegrityViolation
		}
		return err
	}
	return nil
}

// Save persists consumption on an existing layer
func (r *GormFIFOLayerRepository) Save(ctx context.Context, layer *costing.FIFOCostLayer) error {
	return r.db.WithContext(ctx).Save(layer).Error
}

// Delete removes a layer; only used by compensating rollback
func (r *GormFIFOLayerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&costing.FIFOCostLayer{}, "id = ?", id).Error
}

// GormWeightedAverageRepository implements costing.WeightedAverageRepository using GORM
type GormWeightedAverageRepository struct {
	db *gorm.DB
}

// NewGormWeightedAverageRepository creates a new GormWeightedAverageRepository
func NewGormWeightedAverageRepository(db *gorm.DB) *GormWeightedAverageRepository {
	return &GormWeightedAverageRepository{db: db}
}

// FindByMaterial finds every record for a material(+batch). Callers treat more
// than one result as an integrity error, so no LIMIT is applied here.
func (r *GormWeightedAverageRepository) FindByMaterial(ctx context.Context, materialID uuid.UUID, batchID *uuid.UUID) ([]costing.WeightedAverageRecord, error) {
	var records []costing.WeightedAverageRecord
	query := whereBatch(
		r.db.WithContext(ctx).Where("material_id = ?", materialID),
		batchID,
	)

	if err := query.Order("created_at ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Create inserts a record; the unique (material,batch) index enforces at most
// one per key
func (r *GormWeightedAverageRepository) Create(ctx context.Context, record *costing.WeightedAverageRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrIntegrityViolation
		}
		return err
	}
	return nil
}

// Save persists changes on an existing record
func (r *GormWeightedAverageRepository) Save(ctx context.Context, record *costing.WeightedAverageRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}
