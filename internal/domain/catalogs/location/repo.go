package location

import (
	"context"

	"stocktake/internal/domain"
)

// Repository defines the interface for Location persistence.
type Repository interface {
	domain.CatalogRepository[*Location]

	// ListActive returns all non-deleted, active locations ordered by name.
	ListActive(ctx context.Context) ([]*Location, error)
}
