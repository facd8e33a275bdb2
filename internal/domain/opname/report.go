package opname

import (
	"time"

	"stocktake/internal/core/id"
	"stocktake/internal/core/types"
)

// ReconciliationRow is one counted material in the finalize report.
// Rows are emitted for every drafted item, including zero-diff ones.
type ReconciliationRow struct {
	LocationID   id.ID          `json:"locationId"`
	LocationName string         `json:"locationName"`
	MaterialID   id.ID          `json:"materialId"`
	MaterialCode string         `json:"materialCode"`
	MaterialName string         `json:"materialName"`
	Unit         string         `json:"unit"`
	SystemQty    types.Quantity `json:"systemQty"`
	PhysicalQty  types.Quantity `json:"physicalQty"`
	Diff         types.Quantity `json:"diff"`
	Adjusted     bool           `json:"adjusted"`
}

// Report is the outcome of one finalize run.
type Report struct {
	RunNumber       string              `json:"runNumber"`
	Date            time.Time           `json:"date"`
	Rows            []ReconciliationRow `json:"rows"`
	AdjustmentCount int                 `json:"adjustmentCount"`
	LocationCount   int                 `json:"locationCount"`
	GeneratedBy     id.ID               `json:"generatedBy"`
	GeneratedAt     time.Time           `json:"generatedAt"`
}
