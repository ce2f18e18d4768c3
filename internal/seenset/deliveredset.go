package seenset

import (
	"context"
	"database/sql"
	"log"

	"github.com/jmoiron/sqlx"
)

// DeliveredSet answers dedup layer 2 (spec.md §4.6): has any listing with
// this content_hash already been delivered to anyone, under some other
// listing_id? It also implements internal/adapter.OldChecker's Contains
// method against listing_id directly, which is what adapters use for the
// §4.3 old-streak pagination stop (a different, coarser question: "have
// we ever delivered this exact listing_id before").
type DeliveredSet struct {
	db  *sqlx.DB
	log *log.Logger
}

// NewDeliveredSet wraps an already-open DB handle.
func NewDeliveredSet(db *sqlx.DB, lg *log.Logger) *DeliveredSet {
	return &DeliveredSet{db: db, log: lg}
}

// Contains reports whether listingID has already been recorded in the
// delivered set, regardless of content_hash. Adapters use this to decide
// when to stop paginating (spec.md §4.3); it satisfies
// internal/adapter.OldChecker.
func (d *DeliveredSet) Contains(ctx context.Context, listingID string) (bool, error) {
	const q = `SELECT 1 FROM delivered_set WHERE listing_id = ? LIMIT 1`
	var dummy int
	err := d.db.GetContext(ctx, &dummy, q, listingID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// MatchByHash reports whether contentHash is already in the delivered
// set and, if so, which listing_id it previously matched -- logged per
// spec.md §4.6 ("logs which prior listing_id it matched").
func (d *DeliveredSet) MatchByHash(ctx context.Context, contentHash string) (matchedID string, found bool, err error) {
	const q = `SELECT listing_id FROM delivered_set WHERE content_hash = ? ORDER BY delivered_at ASC LIMIT 1`
	err = d.db.GetContext(ctx, &matchedID, q, contentHash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if d.log != nil {
		d.log.Printf("seenset: content_hash %s already delivered as %s", contentHash, matchedID)
	}
	return matchedID, true, nil
}

// Record adds listingID/contentHash to the delivered set.
func (d *DeliveredSet) Record(ctx context.Context, listingID, contentHash string) error {
	const q = `
		INSERT INTO delivered_set (content_hash, listing_id, delivered_at)
		VALUES (?, ?, NOW())
		ON DUPLICATE KEY UPDATE delivered_at = NOW()`
	_, err := d.db.ExecContext(ctx, q, contentHash, listingID)
	return err
}
