// Package draft_repo persists counting drafts as an append-only event
// stream. Item payloads are stored as JSON and compressed with zstd
// once they cross a size threshold, so large location counts stay cheap
// to keep forever.
package draft_repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/klauspost/compress/zstd"

	"stocktake/internal/core/id"
	"stocktake/internal/domain/opname"
	"stocktake/internal/infrastructure/storage/postgres"
)

// CompressionAlgo specifies how the items payload is stored.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

const defaultCompressThreshold = 10 * 1024

// Repo implements opname.DraftStore.
type Repo struct {
	txManager         *postgres.TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewRepo creates a new draft store.
func NewRepo(txManager *postgres.TxManager) (*Repo, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &Repo{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: defaultCompressThreshold,
	}, nil
}

// Append stores a new draft event. Events are never updated or deleted.
func (r *Repo) Append(ctx context.Context, d *opname.Draft) error {
	if id.IsNil(d.ID) {
		d.ID = id.New()
	}
	if d.SavedAt.IsZero() {
		d.SavedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(d.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	algo := CompressionNone
	var compressed []byte
	if len(payload) > r.compressThreshold {
		compressed = r.encoder.EncodeAll(payload, nil)
		payload = nil
		algo = CompressionZstd
	}

	sql := `
		INSERT INTO opname_draft_events (
			id, location_id, count_date, items, items_compressed,
			compression_algo, item_count, authored_by, saved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.txManager.GetQuerier(ctx).Exec(ctx, sql,
		d.ID, d.LocationID, opname.Day(d.Date),
		payload, compressed, algo,
		len(d.Items), d.AuthoredBy, d.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("insert draft event: %w", err)
	}

	return nil
}

// GetLatest returns the latest draft for a location and date, or nil
// when nothing has been saved.
func (r *Repo) GetLatest(ctx context.Context, locationID id.ID, date time.Time) (*opname.Draft, error) {
	sql := `
		SELECT id, location_id, count_date, items, items_compressed,
			   compression_algo, item_count, authored_by, saved_at
		FROM opname_draft_events
		WHERE location_id = $1 AND count_date = $2
		ORDER BY saved_at DESC, id DESC
		LIMIT 1
	`

	row := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, locationID, opname.Day(date))
	d, err := r.scanDraft(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest draft: %w", err)
	}

	return d, nil
}

// ListLatestByDate returns the latest draft per location for a date.
func (r *Repo) ListLatestByDate(ctx context.Context, date time.Time) ([]*opname.Draft, error) {
	sql := `
		SELECT DISTINCT ON (location_id)
			   id, location_id, count_date, items, items_compressed,
			   compression_algo, item_count, authored_by, saved_at
		FROM opname_draft_events
		WHERE count_date = $1
		ORDER BY location_id, saved_at DESC, id DESC
	`

	return r.queryDrafts(ctx, sql, opname.Day(date))
}

// ListEvents returns the full event history for a location and date,
// oldest first.
func (r *Repo) ListEvents(ctx context.Context, locationID id.ID, date time.Time) ([]*opname.Draft, error) {
	sql := `
		SELECT id, location_id, count_date, items, items_compressed,
			   compression_algo, item_count, authored_by, saved_at
		FROM opname_draft_events
		WHERE location_id = $1 AND count_date = $2
		ORDER BY saved_at ASC, id ASC
	`

	return r.queryDrafts(ctx, sql, locationID, opname.Day(date))
}

func (r *Repo) queryDrafts(ctx context.Context, sql string, args ...any) ([]*opname.Draft, error) {
	rows, err := r.txManager.GetQuerier(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query draft events: %w", err)
	}
	defer rows.Close()

	var drafts []*opname.Draft
	for rows.Next() {
		d, err := r.scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scan draft event: %w", err)
		}
		drafts = append(drafts, d)
	}

	return drafts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repo) scanDraft(row rowScanner) (*opname.Draft, error) {
	var (
		d          opname.Draft
		payload    []byte
		compressed []byte
		algo       CompressionAlgo
	)

	err := row.Scan(
		&d.ID, &d.LocationID, &d.Date, &payload, &compressed,
		&algo, &d.ItemCount, &d.AuthoredBy, &d.SavedAt,
	)
	if err != nil {
		return nil, err
	}

	if algo == CompressionZstd && len(compressed) > 0 {
		payload, err = r.decoder.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress items: %w", err)
		}
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &d.Items); err != nil {
			return nil, fmt.Errorf("unmarshal items: %w", err)
		}
	}

	return &d, nil
}
