package filterstore

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// Store wraps the shared cache DB handle.
type Store struct {
	db *sqlx.DB
}

// New wraps an already-open DB handle.
func New(db *sqlx.DB) *Store { return &Store{db: db} }

// Get returns subscriberID's filter, or (nil, nil) if none is set yet.
func (s *Store) Get(ctx context.Context, subscriberID int64) (*Record, error) {
	const q = `
		SELECT subscriber_id, city_slug, min_rooms, max_rooms, min_price, max_price,
		       seller_type, delivery_mode, active
		FROM   filter_record
		WHERE  subscriber_id = ?`
	var rec Record
	err := s.db.GetContext(ctx, &rec, q, subscriberID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Set upserts subscriberID's filter. Callers must call Validate first;
// Set does not re-validate.
func (s *Store) Set(ctx context.Context, r Record) error {
	const q = `
		INSERT INTO filter_record
			(subscriber_id, city_slug, min_rooms, max_rooms, min_price, max_price,
			 seller_type, delivery_mode, active)
		VALUES
			(:subscriber_id, :city_slug, :min_rooms, :max_rooms, :min_price, :max_price,
			 :seller_type, :delivery_mode, :active)
		ON DUPLICATE KEY UPDATE
			city_slug     = VALUES(city_slug),
			min_rooms     = VALUES(min_rooms),
			max_rooms     = VALUES(max_rooms),
			min_price     = VALUES(min_price),
			max_price     = VALUES(max_price),
			seller_type   = VALUES(seller_type),
			delivery_mode = VALUES(delivery_mode),
			active        = VALUES(active)`
	_, err := s.db.NamedExecContext(ctx, q, Normalize(r))
	return err
}

// AllActive returns every filter with active = TRUE, for the scheduler's
// per-tick subscriber sweep.
func (s *Store) AllActive(ctx context.Context) ([]Record, error) {
	const q = `
		SELECT subscriber_id, city_slug, min_rooms, max_rooms, min_price, max_price,
		       seller_type, delivery_mode, active
		FROM   filter_record
		WHERE  active = TRUE`
	var rows []Record
	if err := s.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

// Deactivate flips active to FALSE (stop_monitoring).
func (s *Store) Deactivate(ctx context.Context, subscriberID int64) error {
	const q = `UPDATE filter_record SET active = FALSE WHERE subscriber_id = ?`
	_, err := s.db.ExecContext(ctx, q, subscriberID)
	return err
}
