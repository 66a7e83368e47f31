package costing

import (
	"context"

	"github.com/google/uuid"
)

// FIFOLayerRepository defines persistence for FIFO cost layers
type FIFOLayerRepository interface {
	// FindByMaterial finds all layers for a material(+batch) in ascending
	// sequence order
	FindByMaterial(ctx context.Context, materialID uuid.UUID, batchID *uuid.UUID) ([]FIFOCostLayer, error)

	// FindAvailable finds layers with remaining quantity in ascending
	// sequence order
	FindAvailable(ctx context.Context, materialID uuid.UUID, batchID *uuid.UUID) ([]FIFOCostLayer, error)

	// Create appends a new layer; the unique (material,batch,sequence) index
	// rejects duplicate sequence assignment
	Create(ctx context.Context, layer *FIFOCostLayer) error

	// Save persists consumption on an existing layer
	Save(ctx context.Context, layer *FIFOCostLayer) error

	// Delete removes a layer; only used by compensating rollback
	Delete(ctx context.Context, id uuid.UUID) error
}

// WeightedAverageRepository defines persistence for weighted-average records
type WeightedAverageRepository interface {
	// FindByMaterial finds every record for a material(+batch). Callers treat
	// more than one result as an integrity error.
	FindByMaterial(ctx context.Context, materialID uuid.UUID, batchID *uuid.UUID) ([]WeightedAverageRecord, error)

	// Create inserts a record; the unique (material,batch) index enforces at
	// most one per key
	Create(ctx context.Context, record *WeightedAverageRecord) error

	// Save persists changes on an existing record
	Save(ctx context.Context, record *WeightedAverageRecord) error
}
