package dispatcher

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/flatradar/internal/filterstore"
	"github.com/yanizio/flatradar/internal/listing"
	"github.com/yanizio/flatradar/internal/seenset"
)

func newMockDispatcher(t *testing.T) (*Dispatcher, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	d := &Dispatcher{
		seen:      seenset.NewSeenSet(sqlxDB),
		delivered: seenset.NewDeliveredSet(sqlxDB, nil),
	}
	return d, mock
}

func TestApplyDedup_SameBatchContentHashCollapsesToFirst(t *testing.T) {
	d, mock := newMockDispatcher(t)
	f := filterstore.Record{SubscriberID: 7, DeliveryMode: filterstore.ModeFull}

	in := []listing.Listing{
		{ListingID: "kufar_111", ContentHash: "sameaddr"},
		{ListingID: "etagi_222", ContentHash: "sameaddr"},
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM seen_set WHERE subscriber_id = ? AND listing_id = ? LIMIT 1")).
		WithArgs(int64(7), "kufar_111").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT listing_id FROM delivered_set WHERE content_hash = ? ORDER BY delivered_at ASC LIMIT 1")).
		WithArgs("sameaddr").
		WillReturnError(sql.ErrNoRows)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM seen_set WHERE subscriber_id = ? AND listing_id = ? LIMIT 1")).
		WithArgs(int64(7), "etagi_222").
		WillReturnError(sql.ErrNoRows)
	// No delivered_set query expected for the second listing: the
	// in-batch hash set must short-circuit before the DB round trip.

	out := d.applyDedup(context.Background(), f, in)
	if len(out) != 1 || out[0].ListingID != "kufar_111" {
		t.Fatalf("expected only kufar_111 to survive, got %#v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApplyDedup_DistinctHashesBothSurvive(t *testing.T) {
	d, mock := newMockDispatcher(t)
	f := filterstore.Record{SubscriberID: 7, DeliveryMode: filterstore.ModeFull}

	in := []listing.Listing{
		{ListingID: "kufar_111", ContentHash: "a"},
		{ListingID: "etagi_222", ContentHash: "b"},
	}

	for _, l := range in {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM seen_set WHERE subscriber_id = ? AND listing_id = ? LIMIT 1")).
			WithArgs(int64(7), l.ListingID).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT listing_id FROM delivered_set WHERE content_hash = ? ORDER BY delivered_at ASC LIMIT 1")).
			WithArgs(l.ContentHash).
			WillReturnError(sql.ErrNoRows)
	}

	out := d.applyDedup(context.Background(), f, in)
	if len(out) != 2 {
		t.Fatalf("expected both listings to survive, got %#v", out)
	}
}

func TestApplyDedup_BriefModeSkipsContentHashCheck(t *testing.T) {
	d, mock := newMockDispatcher(t)
	f := filterstore.Record{SubscriberID: 7, DeliveryMode: filterstore.ModeBrief}

	in := []listing.Listing{
		{ListingID: "kufar_111", ContentHash: "sameaddr"},
		{ListingID: "etagi_222", ContentHash: "sameaddr"},
	}

	for _, l := range in {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM seen_set WHERE subscriber_id = ? AND listing_id = ? LIMIT 1")).
			WithArgs(int64(7), l.ListingID).
			WillReturnError(sql.ErrNoRows)
	}

	out := d.applyDedup(context.Background(), f, in)
	if len(out) != 2 {
		t.Fatalf("brief mode must not dedup on content hash, got %#v", out)
	}
}
