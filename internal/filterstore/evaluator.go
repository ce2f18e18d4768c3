package filterstore

import "github.com/yanizio/flatradar/internal/listing"

// fxRateDefault is the BYN->USD fallback rate when a listing carries only
// a BYN price and no caller-supplied rate (spec.md §9 open question,
// decided as a hard-coded constant overridable via config -- see
// internal/config.Bot.FXRateBYNUSD).
const fxRateDefault = 2.95

// Matches implements spec.md §4.7's pure predicate using the default fx
// rate. The aggregator already restricts candidates to one city, so there
// is no city re-check here.
func Matches(l listing.Listing, f Record) bool {
	return MatchesWithFX(l, f, fxRateDefault)
}

// MatchesWithFX is Matches parameterized by the live fx_rate_byn_usd
// config value, for callers that have it (the dispatcher).
func MatchesWithFX(l listing.Listing, f Record, fxRate float64) bool {
	if l.Rooms > 0 && (l.Rooms < f.MinRooms || l.Rooms > f.MaxRooms) {
		return false
	}
	if p, ok := effectiveUSD(l, fxRate); ok && p > 0 {
		if p < f.MinPrice || p > f.MaxPrice {
			return false
		}
	}
	if f.SellerType == SellerOwner && l.SellerType == listing.SellerCompany {
		return false
	}
	return true
}

// effectiveUSD computes the listing's price in USD per spec.md §4.7:
// price_usd if set, else price_byn / fx, else price when the source
// reports USD outright.
func effectiveUSD(l listing.Listing, fxRate float64) (int, bool) {
	if l.PriceUSD != nil {
		return *l.PriceUSD, true
	}
	if l.PriceBYN != nil && fxRate > 0 {
		return int(float64(*l.PriceBYN) / fxRate), true
	}
	if l.Price > 0 {
		return l.Price, true
	}
	return 0, false
}
