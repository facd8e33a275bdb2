package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stocktake/internal/core/entity"
	"stocktake/internal/core/id"
)

type mockCatalog struct {
	entity.Catalog
	Unit     string  `db:"unit" json:"unit"`
	Note     *string `db:"note" json:"note,omitempty"`
	Internal string  `db:"-"`
	NoTag    string
}

func TestExtractDBColumns_EmbeddedCatalog(t *testing.T) {
	cols := ExtractDBColumns[mockCatalog]()

	expected := []string{"id", "code", "name", "deletion_mark", "version", "unit", "note"}
	for _, col := range expected {
		assert.Contains(t, cols, col)
	}
	assert.NotContains(t, cols, "-")
	assert.Len(t, cols, len(expected))
}

func TestStructToMap_EmbeddedCatalog(t *testing.T) {
	note := "rack 3"
	cat := mockCatalog{
		Catalog: entity.Catalog{
			ID:           id.New(),
			Code:         "MAT-001",
			Name:         "Widget",
			DeletionMark: true,
			Version:      5,
		},
		Unit: "pcs",
		Note: &note,
	}

	m := StructToMap(cat)

	assert.Equal(t, cat.ID, m["id"])
	assert.Equal(t, "MAT-001", m["code"])
	assert.Equal(t, "Widget", m["name"])
	assert.Equal(t, true, m["deletion_mark"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, "pcs", m["unit"])
	assert.Equal(t, &note, m["note"])
	_, hasInternal := m["Internal"]
	assert.False(t, hasInternal)
}
