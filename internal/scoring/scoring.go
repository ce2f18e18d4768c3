// Package scoring implements spec.md §4.8: grouping candidate listings by
// building, scoring each group against the batch's market price per
// square meter, and rendering the top groups for a brief-mode summary.
//
// New package, pure functions; the formula itself is authoritative per
// spec.md (the original's aggregator_utils.py has no equivalent grouping
// step -- it only sorted a flat list), so there is no direct teacher or
// original_source grounding for the scoring math itself, only for the
// surrounding pieces (normalized address from internal/listing, the LRU
// pagination-token cache from internal/cache).
package scoring

import (
	"sort"
	"strings"

	"github.com/yanizio/flatradar/internal/listing"
)

// MaxGroupsInSummary caps how many building groups a brief-mode summary
// may show (spec.md §4.8).
const MaxGroupsInSummary = 5

// MinUsablePricesForMarket is the batch-wide usable-price floor below
// which scoring falls back to a plain house_ppm sort (spec.md §4.8).
const MinUsablePricesForMarket = 3

// CountScoreCap bounds the count_score numerator (spec.md §4.8's
// min(|group|, 6)).
const CountScoreCap = 6

// VariantsPerExpand is how many listings a "show variants" expansion
// reveals (spec.md §4.8).
const VariantsPerExpand = 5

// Group is one building-level bucket of listings sharing a normalized
// address.
type Group struct {
	NormalizedAddress string
	Listings          []listing.Listing
	HousePPM          float64 // median price-per-sqm within the group
	Score             float64
	usablePrices      int
}

// Count reports the group's listing count (including listings without a
// usable price, per spec.md §4.8: "still counted for |group| up to the
// 6-cap").
func (g Group) Count() int { return len(g.Listings) }

// GroupByBuilding buckets listings by normalized address. cityNames feeds
// the same address normalization internal/listing.ComputeContentHash
// uses, so grouping and content-hash dedup agree on what counts as "the
// same building".
func GroupByBuilding(listings []listing.Listing, cityNames []string) []*Group {
	idx := make(map[string]*Group)
	var order []string

	for _, l := range listings {
		key := listing.NormalizeAddress(l.Address, cityNames)
		g, ok := idx[key]
		if !ok {
			g = &Group{NormalizedAddress: key}
			idx[key] = g
			order = append(order, key)
		}
		g.Listings = append(g.Listings, l)
	}

	out := make([]*Group, 0, len(order))
	for _, key := range order {
		out = append(out, idx[key])
	}
	return out
}

// pricePerSqM returns a listing's price per square meter and whether it
// is usable (both price and area must be known and positive).
func pricePerSqM(l listing.Listing) (float64, bool) {
	ppm, ok := l.PricePerSqM()
	if !ok {
		return 0, false
	}
	return float64(ppm), true
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Score computes each group's score against the batch-wide market_ppm and
// sorts groups by spec.md §4.8's tie-break order, applying the
// fewer-than-3-usable-prices fallback when the whole batch lacks a market
// reference. It mutates and returns groups in their final render order.
func Score(groups []*Group) []*Group {
	var batchPrices []float64
	for _, g := range groups {
		for _, l := range g.Listings {
			if ppm, ok := pricePerSqM(l); ok {
				batchPrices = append(batchPrices, ppm)
			}
		}
	}

	for _, g := range groups {
		var groupPrices []float64
		for _, l := range g.Listings {
			if ppm, ok := pricePerSqM(l); ok {
				groupPrices = append(groupPrices, ppm)
			}
		}
		g.usablePrices = len(groupPrices)
		g.HousePPM = median(groupPrices)
	}

	if len(batchPrices) < MinUsablePricesForMarket {
		sort.SliceStable(groups, func(i, j int) bool {
			return groups[i].HousePPM < groups[j].HousePPM
		})
		return groups
	}

	marketPPM := median(batchPrices)
	for _, g := range groups {
		if g.HousePPM <= 0 {
			g.Score = 0
			continue
		}

		priceScore := marketPPM / g.HousePPM
		deltaMarket := (marketPPM - g.HousePPM) / marketPPM

		var min, max float64
		var seeded bool
		for _, l := range g.Listings {
			ppm, ok := pricePerSqM(l)
			if !ok {
				continue
			}
			if !seeded || ppm < min {
				min = ppm
			}
			if !seeded || ppm > max {
				max = ppm
			}
			seeded = true
		}
		dispersion := (max - min) / g.HousePPM
		dispScore := 1 - dispersion
		if dispScore < 0 {
			dispScore = 0
		}

		count := g.Count()
		if count > CountScoreCap {
			count = CountScoreCap
		}
		countScore := float64(count) / CountScoreCap

		g.Score = 0.45*priceScore + 0.25*deltaMarket + 0.15*dispScore + 0.15*countScore
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Score != groups[j].Score {
			return groups[i].Score > groups[j].Score
		}
		if groups[i].Count() != groups[j].Count() {
			return groups[i].Count() > groups[j].Count()
		}
		if groups[i].HousePPM != groups[j].HousePPM {
			return groups[i].HousePPM < groups[j].HousePPM
		}
		return strings.Compare(groups[i].NormalizedAddress, groups[j].NormalizedAddress) < 0
	})
	return groups
}

// TopN returns the top min(MaxGroupsInSummary, len(groups)) groups,
// dropping singleton buildings first if that is what it takes to respect
// the cap (spec.md §4.8: "Drop singleton buildings iff the brief view
// must not exceed MAX_GROUPS_IN_SUMMARY").
func TopN(groups []*Group) []*Group {
	if len(groups) <= MaxGroupsInSummary {
		return groups
	}

	var multi, singles []*Group
	for _, g := range groups {
		if g.Count() > 1 {
			multi = append(multi, g)
		} else {
			singles = append(singles, g)
		}
	}

	out := multi
	if len(out) > MaxGroupsInSummary {
		return out[:MaxGroupsInSummary]
	}
	for _, g := range singles {
		if len(out) >= MaxGroupsInSummary {
			break
		}
		out = append(out, g)
	}
	return out
}

// MedianPrice reports the group's median raw price (not per-sqm), for
// summary rendering.
func (g Group) MedianPrice() int {
	var prices []float64
	for _, l := range g.Listings {
		if l.Price > 0 {
			prices = append(prices, float64(l.Price))
		}
	}
	return int(median(prices))
}

// Variants returns up to VariantsPerExpand listings starting at offset,
// for the "show variants" expansion.
func (g Group) Variants(offset int) []listing.Listing {
	if offset < 0 || offset >= len(g.Listings) {
		return nil
	}
	end := offset + VariantsPerExpand
	if end > len(g.Listings) {
		end = len(g.Listings)
	}
	return g.Listings[offset:end]
}
