package cachestore

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/flatradar/internal/listing"
	"github.com/yanizio/flatradar/internal/metrics"
)

// Store wraps the shared cache DB handle (internal/database.Open's pool).
type Store struct {
	db *sqlx.DB
}

// New wraps an already-open DB handle.
func New(db *sqlx.DB) *Store { return &Store{db: db} }

// Upsert writes l through to the cache. On first insert, first_seen_at is
// set to NOW(); on every subsequent sighting it is preserved and
// last_seen_at/updated_at are bumped instead (spec.md §4.5).
func (s *Store) Upsert(ctx context.Context, l listing.Listing, citySlug string) error {
	const q = `
		INSERT INTO listing_cache
			(listing_id, source, native_id, title, price, rooms, area, address,
			 url, city_slug, content_hash, status, first_seen_at, last_seen_at, updated_at)
		VALUES
			(:listing_id, :source, :native_id, :title, :price, :rooms, :area, :address,
			 :url, :city_slug, :content_hash, :status, NOW(), NOW(), NOW())
		ON DUPLICATE KEY UPDATE
			title        = VALUES(title),
			price        = VALUES(price),
			rooms        = VALUES(rooms),
			area         = VALUES(area),
			address      = VALUES(address),
			url          = VALUES(url),
			content_hash = VALUES(content_hash),
			status       = 'active',
			last_seen_at = NOW(),
			updated_at   = NOW()`

	rec := Record{
		ListingID:   l.ListingID,
		Source:      string(l.Source),
		NativeID:    l.NativeID,
		Title:       l.Title,
		Price:       l.Price,
		Rooms:       l.Rooms,
		Area:        l.Area,
		Address:     l.Address,
		URL:         l.URL,
		CitySlug:    citySlug,
		ContentHash: l.ContentHash,
		Status:      StatusActive,
	}

	if _, err := s.db.NamedExecContext(ctx, q, rec); err != nil {
		metrics.CacheWriteErrorsTotal.Inc()
		return err
	}
	return nil
}

// Query implements the read-through path: active listings for citySlug
// within the given rooms/price ranges, newest-updated first, capped at
// QueryLimit. Callers apply the <10-rows fallback themselves (the store
// only answers the query; the fall-through policy lives in the
// dispatcher, which also knows whether a live fetch is worth the cost).
func (s *Store) Query(ctx context.Context, citySlug string, minRooms, maxRooms, minPrice, maxPrice int) ([]Record, error) {
	const q = `
		SELECT listing_id, source, native_id, title, price, rooms, area, address,
		       url, city_slug, content_hash, status, first_seen_at, last_seen_at, updated_at
		FROM   listing_cache
		WHERE  city_slug = ?
		  AND  status = 'active'
		  AND  rooms BETWEEN ? AND ?
		  AND  price BETWEEN ? AND ?
		ORDER BY updated_at DESC
		LIMIT ?`

	var rows []Record
	err := s.db.SelectContext(ctx, &rows, q, citySlug, minRooms, maxRooms, minPrice, maxPrice, QueryLimit)
	if err != nil {
		return nil, err
	}
	// The hit/fallthrough/unavailable outcome in metrics.CacheReadTotal
	// depends on the <10-row threshold, which is the dispatcher's call
	// (spec.md §4.5) -- it records the outcome once it has made that
	// decision.
	return rows, nil
}

// MarkDeleted flags a listing as no longer active, e.g. when an adapter's
// latest fetch no longer reports it.
func (s *Store) MarkDeleted(ctx context.Context, listingID string) error {
	const q = `UPDATE listing_cache SET status = 'deleted', updated_at = NOW() WHERE listing_id = ?`
	_, err := s.db.ExecContext(ctx, q, listingID)
	return err
}

// Sweep hard-deletes listings that have been 'deleted' for longer than
// DeletedIdleDays (spec.md §4.5's daily sweep). Returns the row count
// removed.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	const q = `
		DELETE FROM listing_cache
		WHERE status = 'deleted'
		  AND last_seen_at < NOW() - INTERVAL ? DAY`

	res, err := s.db.ExecContext(ctx, q, DeletedIdleDays)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
