// Package cachestore is the Listing Cache (spec.md §4.5): a write-through
// upsert on every adapter fetch and a read-through query the dispatcher
// consults before deciding whether to hit the adapters live.
//
// Repository shape grounded on the teacher's internal/site/repository.go
// (typed Record, one query per function, context.Context first param) and
// internal/tenant/meta/repository.go's upsert idiom.
package cachestore

import (
	"time"

	"github.com/yanizio/flatradar/internal/listing"
)

// Record mirrors one row of the `listing_cache` table.
type Record struct {
	ListingID     string    `db:"listing_id"`
	Source        string    `db:"source"`
	NativeID      string    `db:"native_id"`
	Title         string    `db:"title"`
	Price         int       `db:"price"`
	Rooms         int       `db:"rooms"`
	Area          float64   `db:"area"`
	Address       string    `db:"address"`
	URL           string    `db:"url"`
	CitySlug      string    `db:"city_slug"`
	ContentHash   string    `db:"content_hash"`
	Status        string    `db:"status"`
	FirstSeenAt   time.Time `db:"first_seen_at"`
	LastSeenAt    time.Time `db:"last_seen_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

const (
	StatusActive  = "active"
	StatusDeleted = "deleted"
)

// ToListing recovers the subset of listing.Listing the cache persists.
// Fields the cache doesn't store (photos, floor, seller type, and the
// other optional structural attributes) come back zero-valued -- the
// filter evaluator and brief-mode grouping only need price/area/rooms/
// address/content_hash, which this covers; dispatcher callers needing a
// full re-render fetch the adapter-fresh listing instead.
func (r Record) ToListing() listing.Listing {
	return listing.Listing{
		ListingID:   r.ListingID,
		Source:      listing.SourceTag(r.Source),
		NativeID:    r.NativeID,
		Title:       r.Title,
		Price:       r.Price,
		Rooms:       r.Rooms,
		Area:        r.Area,
		Address:     r.Address,
		URL:         r.URL,
		ContentHash: r.ContentHash,
	}
}

// MinRowsThreshold is spec.md §4.5's "fewer than 10 rows ⇒ fall through to
// live fetch" rule.
const MinRowsThreshold = 10

// QueryLimit bounds the read-through query's result size.
const QueryLimit = 200

// DeletedIdleDays is how long a 'deleted' listing survives before the
// daily sweep hard-deletes it.
const DeletedIdleDays = 7
