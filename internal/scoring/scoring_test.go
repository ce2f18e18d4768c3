package scoring

import (
	"testing"

	"github.com/yanizio/flatradar/internal/listing"
)

func withUSD(price int, area float64, addr string) listing.Listing {
	return listing.Listing{Price: price, Area: area, Address: addr}
}

func TestGroupByBuilding_BucketsByNormalizedAddress(t *testing.T) {
	listings := []listing.Listing{
		withUSD(50000, 45, "Ленина, 1"),
		withUSD(52000, 46, "ленина, 1"),
		withUSD(60000, 50, "Победителей, 10"),
	}
	groups := GroupByBuilding(listings, nil)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	for _, g := range groups {
		if g.NormalizedAddress == "" {
			t.Fatalf("expected non-empty normalized address")
		}
	}
}

func TestScore_FallsBackToHousePPMSortWhenMarketThin(t *testing.T) {
	groups := []*Group{
		{NormalizedAddress: "a", Listings: []listing.Listing{withUSD(100000, 50, "a")}},
		{NormalizedAddress: "b", Listings: []listing.Listing{withUSD(50000, 50, "b")}},
	}
	out := Score(groups)
	if out[0].NormalizedAddress != "b" {
		t.Fatalf("expected cheaper house_ppm group first in fallback mode, got %q", out[0].NormalizedAddress)
	}
}

// TestScore_DispersionIgnoresUnusableFirstListing reproduces a group
// whose first listing has no usable price (area 0, as the HTML adapters
// often produce). If the dispersion loop seeded min/max from loop index
// 0 instead of the first usable price, min would stay at its zero value
// and dispersion would blow up, zeroing dispScore even for a group with
// perfectly uniform pricing.
func TestScore_DispersionIgnoresUnusableFirstListing(t *testing.T) {
	uniform := []listing.Listing{
		withUSD(50000, 0, "a"),  // unusable: area 0
		withUSD(100000, 50, "a"), // ppm 2000
		withUSD(100000, 50, "a"), // ppm 2000, identical: zero dispersion
	}
	// Pad the batch so it clears MinUsablePricesForMarket and exercises
	// the weighted-score branch rather than the thin-market fallback.
	filler := []*Group{
		{NormalizedAddress: "b", Listings: []listing.Listing{withUSD(90000, 45, "b")}},
		{NormalizedAddress: "c", Listings: []listing.Listing{withUSD(95000, 45, "c")}},
	}
	groups := append([]*Group{{NormalizedAddress: "a", Listings: uniform}}, filler...)

	out := Score(groups)

	var scored *Group
	for _, g := range out {
		if g.NormalizedAddress == "a" {
			scored = g
		}
	}
	if scored == nil {
		t.Fatalf("group a missing from scored output")
	}
	// market_ppm = 2000, house_ppm = 2000, so price_score = 1 and
	// delta_market = 0. Both usable listings price at exactly 2000/sqm,
	// so dispersion must be 0 and disp_score must be 1 -- a zero-seeded
	// min would instead force dispersion to 1 and disp_score to 0,
	// pulling the total score down from 0.675 to 0.525.
	const want = 0.45*1 + 0.25*0 + 0.15*1 + 0.15*0.5
	if diff := scored.Score - want; diff < -1e-9 || diff > 1e-9 {
		t.Fatalf("expected score %.6f, got %.6f", want, scored.Score)
	}
}
