// Package location provides the Location catalog: warehouses and storage
// areas whose stock is tracked and counted.
package location

import (
	"context"

	"stocktake/internal/core/entity"
)

// Location represents a storage location (warehouse, rack, counter).
type Location struct {
	entity.Catalog

	// Description is optional free text
	Description *string `db:"description" json:"description,omitempty"`

	// IsActive indicates the location accepts new transactions
	IsActive bool `db:"is_active" json:"isActive"`
}

// NewLocation creates a new Location with required fields.
func NewLocation(code, name string) *Location {
	return &Location{
		Catalog:  entity.NewCatalog(code, name),
		IsActive: true,
	}
}

// Validate implements entity.Validatable.
func (l *Location) Validate(ctx context.Context) error {
	return l.Catalog.Validate(ctx)
}
