package opname

import (
	"context"
	"time"

	"stocktake/internal/core/id"
	"stocktake/internal/core/types"
)

// DraftItem is one counted material inside a draft. Name and unit are
// copied from the catalog at save time so a draft stays readable even
// for materials later absent from the snapshot.
type DraftItem struct {
	MaterialID   id.ID          `json:"materialId"`
	MaterialCode string         `json:"materialCode,omitempty"`
	MaterialName string         `json:"materialName,omitempty"`
	Unit         string         `json:"unit,omitempty"`
	Qty          types.Quantity `json:"qty"`
	Breakdown    []BreakdownRow `json:"breakdown,omitempty"`
	HasBreakdown bool           `json:"hasBreakdown,omitempty"`
}

// Draft is one saved counting state for a location and date. Drafts are
// append-only events; the latest event per (location, date) is
// authoritative and earlier ones are history.
type Draft struct {
	ID         id.ID       `json:"id"`
	LocationID id.ID       `json:"locationId"`
	Date       time.Time   `json:"date"`
	Items      []DraftItem `json:"items"`
	ItemCount  int         `json:"itemCount"`
	AuthoredBy id.ID       `json:"authoredBy"`
	SavedAt    time.Time   `json:"savedAt"`
}

// ItemMap indexes the draft's items by material.
func (d *Draft) ItemMap() map[id.ID]DraftItem {
	m := make(map[id.ID]DraftItem, len(d.Items))
	for _, it := range d.Items {
		m[it.MaterialID] = it
	}
	return m
}

// DraftStore persists drafts as an append-only event stream.
type DraftStore interface {
	// Append stores a new draft event.
	Append(ctx context.Context, d *Draft) error

	// GetLatest returns the latest draft for a location and date, or
	// nil when the location has not been counted that day.
	GetLatest(ctx context.Context, locationID id.ID, date time.Time) (*Draft, error)

	// ListLatestByDate returns the latest draft per location for a date.
	ListLatestByDate(ctx context.Context, date time.Time) ([]*Draft, error)

	// ListEvents returns the full event history for a location and
	// date, oldest first.
	ListEvents(ctx context.Context, locationID id.ID, date time.Time) ([]*Draft, error)
}

// Day truncates a timestamp to its calendar day in UTC. Drafts are
// keyed by day; two saves within one day target the same key.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
