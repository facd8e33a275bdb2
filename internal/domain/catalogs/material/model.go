// Package material provides the Material catalog: the items that are
// stocked, counted and adjusted.
package material

import (
	"context"

	"stocktake/internal/core/apperror"
	"stocktake/internal/core/entity"
)

// Material represents a stocked item.
type Material struct {
	entity.Catalog

	// Unit is the unit of measure shown next to quantities (pcs, kg, m)
	Unit string `db:"unit" json:"unit"`

	// Description is optional free text
	Description *string `db:"description" json:"description,omitempty"`

	// IsActive indicates the material can appear on new transactions
	IsActive bool `db:"is_active" json:"isActive"`
}

// NewMaterial creates a new Material with required fields.
func NewMaterial(code, name, unit string) *Material {
	return &Material{
		Catalog:  entity.NewCatalog(code, name),
		Unit:     unit,
		IsActive: true,
	}
}

// Validate implements entity.Validatable.
func (m *Material) Validate(ctx context.Context) error {
	if err := m.Catalog.Validate(ctx); err != nil {
		return err
	}

	if m.Unit == "" {
		return apperror.NewValidation("unit of measure is required").
			WithDetail("field", "unit")
	}

	return nil
}
