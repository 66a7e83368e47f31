package catalog

import (
	"context"

	"github.com/google/uuid"
)

// MaterialRepository is read-only from the inventory core's perspective
type MaterialRepository interface {
	// FindByID finds a material by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Material, error)

	// FindByCode finds a material by its code
	FindByCode(ctx context.Context, code string) (*Material, error)
}
