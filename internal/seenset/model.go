// Package seenset implements the two dedup layers that live outside the
// aggregator (spec.md §4.6): SeenSet is the per-subscriber set of
// listing_ids already delivered; DeliveredSet is the global multimap from
// content_hash to the listing_ids it has matched, used to recognize the
// same apartment re-listed under a different native id.
//
// Repository shape grounded on internal/site/repository.go; the batched
// "IN (...)" lookup is grounded on internal/acl/store.go's RoleAllowed,
// built here with sqlx.In instead of hand-rolled placeholders since sqlx
// is already the teacher's query layer.
package seenset

import "time"

// SeenRecord mirrors one row of `seen_set`: (subscriber_id, listing_id).
type SeenRecord struct {
	SubscriberID int64     `db:"subscriber_id"`
	ListingID    string    `db:"listing_id"`
	SeenAt       time.Time `db:"seen_at"`
}

// DeliveredRecord mirrors one row of `delivered_set`: a content_hash and
// one of the listing_ids it has been seen under.
type DeliveredRecord struct {
	ContentHash string    `db:"content_hash"`
	ListingID   string    `db:"listing_id"`
	DeliveredAt time.Time `db:"delivered_at"`
}
