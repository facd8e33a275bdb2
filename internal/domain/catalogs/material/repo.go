package material

import (
	"context"

	"stocktake/internal/domain"
)

// Repository defines the interface for Material persistence.
type Repository interface {
	domain.CatalogRepository[*Material]

	// ListActive returns all non-deleted, active materials ordered by name.
	ListActive(ctx context.Context) ([]*Material, error)
}
