package filterstore

import (
	"context"
	"testing"

	"github.com/yanizio/flatradar/internal/cityresolver"
	"github.com/yanizio/flatradar/internal/listing"
)

func validRecord() Record {
	return Record{
		SubscriberID: 1,
		CitySlug:     "Minsk",
		MinRooms:     1,
		MaxRooms:     3,
		MinPrice:     30000,
		MaxPrice:     50000,
		SellerType:   "Owner",
		DeliveryMode: ModeBrief,
		Active:       true,
	}
}

func TestNormalize_LowercasesCityAndCanonicalizesSeller(t *testing.T) {
	r := Normalize(validRecord())
	if r.CitySlug != "minsk" {
		t.Fatalf("expected lower-cased city slug, got %q", r.CitySlug)
	}
	if r.SellerType != SellerOwner {
		t.Fatalf("expected canonicalized seller_type, got %q", r.SellerType)
	}
}

func TestValidate_RejectsOversizedPriceSpan(t *testing.T) {
	r := validRecord()
	r.MaxPrice = r.MinPrice + MaxPriceSpanUSD + 1
	resolver := cityresolver.Static{"minsk": "minsk"}
	if err := Validate(context.Background(), r, resolver); err == nil {
		t.Fatalf("expected error for oversized price span")
	}
}

func TestValidate_RejectsUnresolvableCity(t *testing.T) {
	r := validRecord()
	resolver := cityresolver.Static{}
	if err := Validate(context.Background(), r, resolver); err == nil {
		t.Fatalf("expected error for unresolvable city")
	}
}

func TestValidate_AcceptsWellFormedRecord(t *testing.T) {
	r := validRecord()
	resolver := cityresolver.Static{"minsk": "minsk"}
	if err := Validate(context.Background(), r, resolver); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestMatches_PriceBoundary(t *testing.T) {
	f := Record{MinRooms: 1, MaxRooms: 3, MinPrice: 50000, MaxPrice: 50000, SellerType: SellerAll}
	usd := 50000
	accepted := listing.Listing{Rooms: 2, PriceUSD: &usd}
	if !Matches(accepted, f) {
		t.Fatalf("expected price exactly at boundary to be accepted")
	}

	tooLow := 49999
	rejectedLow := listing.Listing{Rooms: 2, PriceUSD: &tooLow}
	if Matches(rejectedLow, f) {
		t.Fatalf("expected price below boundary to be rejected")
	}

	zero := 0
	negotiable := listing.Listing{Rooms: 2, PriceUSD: &zero}
	if !Matches(negotiable, f) {
		t.Fatalf("expected zero price (negotiable) to be accepted")
	}
}

func TestMatches_OwnerFilterDropsCompanyListings(t *testing.T) {
	f := Record{MinRooms: 1, MaxRooms: 5, MinPrice: 0, MaxPrice: 100000, SellerType: SellerOwner}
	l := listing.Listing{Rooms: 2, SellerType: listing.SellerCompany}
	if Matches(l, f) {
		t.Fatalf("expected owner-only filter to drop company listing")
	}
	l.SellerType = listing.SellerUnknown
	if !Matches(l, f) {
		t.Fatalf("expected unknown seller type to pass owner-only filter")
	}
}
