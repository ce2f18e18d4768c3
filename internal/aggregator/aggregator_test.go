package aggregator

import (
	"testing"

	"github.com/yanizio/flatradar/internal/listing"
)

func TestDedupExactID_KeepsFirstOccurrence(t *testing.T) {
	in := []listing.Listing{
		{ListingID: "kufar_1", Price: 10},
		{ListingID: "kufar_1", Price: 99},
		{ListingID: "kufar_2", Price: 20},
	}
	out := dedupExactID(in)
	if len(out) != 2 {
		t.Fatalf("expected 2 unique listings, got %d", len(out))
	}
	if out[0].Price != 10 {
		t.Fatalf("expected first occurrence to win, got price %d", out[0].Price)
	}
}

func TestDedupNearDuplicate_CollapsesCrossPortalClone(t *testing.T) {
	photos := []string{"https://a/1.jpg", "https://a/2.jpg", "https://a/3.jpg"}
	in := []listing.Listing{
		{ListingID: "kufar_1", Source: listing.SourceKufar, Address: "Ленина, 1", Floor: "3/9", Area: 54.2, Price: 50000, Photos: photos},
		{ListingID: "onliner_9", Source: listing.SourceOnliner, Address: "Ленина, 1", Floor: "3/9", Area: 54.0, Price: 50200, Photos: photos},
	}
	out := dedupNearDuplicate(in)
	if len(out) != 1 {
		t.Fatalf("expected near-duplicate to collapse to 1 listing, got %d", len(out))
	}
}

// TestDedupNearDuplicate_KeepsDistinctPhotolessListings guards against
// two unrelated, photo-less listings (common for the HTML-adapter
// portals, which often can't extract images) being collapsed into one
// just because they land in the same address/floor/price bucket: an
// empty photo slice must not be treated as a matching photo signature.
func TestDedupNearDuplicate_KeepsDistinctPhotolessListings(t *testing.T) {
	in := []listing.Listing{
		{ListingID: "realt_1", Address: "Ленина, 1", Floor: "3/9", Area: 54, Price: 50000},
		{ListingID: "etagi_1", Address: "Ленина, 1", Floor: "3/9", Area: 54, Price: 50100},
	}
	out := dedupNearDuplicate(in)
	if len(out) != 2 {
		t.Fatalf("expected both photo-less listings to survive, got %d", len(out))
	}
}

func TestDedupNearDuplicate_KeepsDistinctListings(t *testing.T) {
	in := []listing.Listing{
		{ListingID: "kufar_1", Address: "Ленина, 1", Floor: "3/9", Area: 54, Price: 50000, Photos: []string{"a"}},
		{ListingID: "kufar_2", Address: "Совесткая, 2", Floor: "1/5", Area: 30, Price: 20000, Photos: []string{"b"}},
	}
	out := dedupNearDuplicate(in)
	if len(out) != 2 {
		t.Fatalf("expected distinct listings to survive, got %d", len(out))
	}
}

func TestSortByPrice_ZeroPriceLast(t *testing.T) {
	in := []listing.Listing{
		{ListingID: "a", Price: 0},
		{ListingID: "b", Price: 30000},
		{ListingID: "c", Price: 10000},
	}
	sortByPrice(in)
	if in[0].ListingID != "c" || in[1].ListingID != "b" || in[2].ListingID != "a" {
		t.Fatalf("unexpected sort order: %+v", in)
	}
}
