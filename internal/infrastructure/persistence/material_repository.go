package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockops/backend/internal/domain/catalog"
	"github.com/stockops/backend/internal/domain/shared"
)

// GormMaterialRepository implements catalog.MaterialRepository using GORM
type GormMaterialRepository struct {
	db *gorm.DB
}

// NewGormMaterialRepository creates a new GormMaterialRepository
func NewGormMaterialRepository(db *gorm.DB) *GormMaterialRepository {
	return &GormMaterialRepository{db: db}
}

// FindByID finds a material by its ID
func (r *GormMaterialRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Material, error) {
	var material catalog.Material
	if err := r.db.WithContext(ctx).First(&material, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &material, nil
}

// FindByCode finds a material by its code
func (r *GormMaterialRepository) FindByCode(ctx context.Context, code string) (*catalog.Material, error) {
	var material catalog.Material
	if err := r.db.WithContext(ctx).First(&material, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &material, nil
}

// Create inserts a material master record
func (r *GormMaterialRepository) Create(ctx context.Context, material *catalog.Material) error {
	if err := r.db.WithContext(ctx).Create(material).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}
