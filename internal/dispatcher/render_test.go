package dispatcher

import (
	"strings"
	"testing"

	"github.com/yanizio/flatradar/internal/filterstore"
	"github.com/yanizio/flatradar/internal/listing"
	"github.com/yanizio/flatradar/internal/scoring"
)

type fakeVariantStore struct{ n int }

func (f *fakeVariantStore) Put(listings []listing.Listing) string {
	f.n++
	return "tok"
}

func TestValidateStep_RejectsEmptyCity(t *testing.T) {
	f := filterstore.Record{MinRooms: 1, MaxRooms: 3, MinPrice: 0, MaxPrice: 10000}
	if err := validateStep(f); err == nil {
		t.Fatalf("expected error for empty city_slug")
	}
}

func TestValidateStep_RejectsInvertedRanges(t *testing.T) {
	f := filterstore.Record{CitySlug: "minsk", MinRooms: 3, MaxRooms: 1, MinPrice: 0, MaxPrice: 1000}
	if err := validateStep(f); err == nil {
		t.Fatalf("expected error for inverted room range")
	}
}

func TestRenderListing_EscapesHTMLAndHandlesUnknowns(t *testing.T) {
	l := listing.Listing{Title: "2-room <script>", Address: "Minsk", URL: "https://x", Source: listing.SourceKufar}
	out := RenderListing(l)
	if strings.Contains(out, "<script>") {
		t.Fatalf("expected HTML escaping, got %q", out)
	}
	if !strings.Contains(out, "price negotiable") {
		t.Fatalf("expected negotiable fallback for zero price, got %q", out)
	}
}

func TestRenderBrief_EmptyGroupsReturnsPlaceholder(t *testing.T) {
	text, buttons := RenderBrief(nil, nil)
	if buttons != nil {
		t.Fatalf("expected nil buttons for empty groups")
	}
	if !strings.Contains(text, "No matching") {
		t.Fatalf("unexpected placeholder text: %q", text)
	}
}

func TestRenderBrief_AttachesShowVariantsForMultiListingGroups(t *testing.T) {
	groups := []*scoring.Group{
		{NormalizedAddress: "addr a", Listings: []listing.Listing{{Price: 50000, Area: 45}, {Price: 51000, Area: 46}}},
		{NormalizedAddress: "addr b", Listings: []listing.Listing{{Price: 40000, Area: 40}}},
	}
	vs := &fakeVariantStore{}
	text, buttons := RenderBrief(groups, vs)
	if !strings.Contains(text, "2 building groups") {
		t.Fatalf("expected group count header, got %q", text)
	}
	if buttons == nil || len(buttons.InlineKeyboard) != 1 {
		t.Fatalf("expected exactly one show-variants row (singleton group excluded), got %v", buttons)
	}
	if vs.n != 1 {
		t.Fatalf("expected variants.Put called once, got %d", vs.n)
	}
}
