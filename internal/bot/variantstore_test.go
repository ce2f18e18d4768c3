package bot

import (
	"testing"

	"github.com/yanizio/flatradar/internal/listing"
)

func TestVariantStore_PutThenGet(t *testing.T) {
	vs := NewVariantStore(8)
	listings := []listing.Listing{{ListingID: "kufar_1"}, {ListingID: "kufar_2"}}

	token := vs.Put(listings)
	if token == "" {
		t.Fatalf("expected non-empty token")
	}

	got, ok := vs.Get(token)
	if !ok {
		t.Fatalf("expected token to resolve")
	}
	if len(got) != 2 || got[0].ListingID != "kufar_1" {
		t.Fatalf("unexpected listings: %#v", got)
	}
}

func TestVariantStore_UnknownTokenMisses(t *testing.T) {
	vs := NewVariantStore(8)
	if _, ok := vs.Get("nope"); ok {
		t.Fatalf("expected unknown token to miss")
	}
}

func TestVariantStore_PutReturnsDistinctTokens(t *testing.T) {
	vs := NewVariantStore(8)
	a := vs.Put([]listing.Listing{{ListingID: "a"}})
	b := vs.Put([]listing.Listing{{ListingID: "b"}})
	if a == b {
		t.Fatalf("expected distinct tokens, got %q twice", a)
	}
}
