package seenset

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// SeenSet answers dedup layer 1 (spec.md §4.6): has this subscriber
// already been sent this exact listing_id?
type SeenSet struct {
	db *sqlx.DB
}

// NewSeenSet wraps an already-open DB handle.
func NewSeenSet(db *sqlx.DB) *SeenSet { return &SeenSet{db: db} }

// Contains reports whether listingID is in subscriberID's seen set. It
// takes a subscriber id, so it does not satisfy internal/adapter.OldChecker;
// the adapter-level old-streak check uses DeliveredSet, which is global.
func (s *SeenSet) Contains(ctx context.Context, subscriberID int64, listingID string) (bool, error) {
	const q = `SELECT 1 FROM seen_set WHERE subscriber_id = ? AND listing_id = ? LIMIT 1`
	var dummy int
	err := s.db.GetContext(ctx, &dummy, q, subscriberID, listingID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ContainsBatch reports which of the given listingIDs are already in
// subscriberID's seen set, using a single IN (...) query built with
// sqlx.In rather than hand-rolled placeholders.
func (s *SeenSet) ContainsBatch(ctx context.Context, subscriberID int64, listingIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(listingIDs))
	if len(listingIDs) == 0 {
		return out, nil
	}

	q, args, err := sqlx.In(
		`SELECT listing_id FROM seen_set WHERE subscriber_id = ? AND listing_id IN (?)`,
		subscriberID, listingIDs)
	if err != nil {
		return nil, err
	}
	q = s.db.Rebind(q)

	var found []string
	if err := s.db.SelectContext(ctx, &found, q, args...); err != nil {
		return nil, err
	}
	for _, id := range found {
		out[id] = true
	}
	return out, nil
}

// Mark records listingID as delivered to subscriberID.
func (s *SeenSet) Mark(ctx context.Context, subscriberID int64, listingID string) error {
	const q = `
		INSERT INTO seen_set (subscriber_id, listing_id, seen_at)
		VALUES (?, ?, NOW())
		ON DUPLICATE KEY UPDATE seen_at = NOW()`
	_, err := s.db.ExecContext(ctx, q, subscriberID, listingID)
	return err
}

// WipeSubscriber deletes every seen_set row for subscriberID, backing
// the /admin_clear_sent command (spec.md §6): an operator can force a
// subscriber's next tick to redeliver everything currently cached.
func (s *SeenSet) WipeSubscriber(ctx context.Context, subscriberID int64) (int64, error) {
	const q = `DELETE FROM seen_set WHERE subscriber_id = ?`
	res, err := s.db.ExecContext(ctx, q, subscriberID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
