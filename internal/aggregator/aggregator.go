// Package aggregator implements spec.md §4.4: fetch_all fans out to every
// registered source adapter concurrently, merges the results, and applies
// the exact-id and near-duplicate dedup passes before a stable price sort.
//
// Grounded on original_source/scrapers/aggregator.py's
// fetch_all_listings: gather every scraper concurrently, treat a
// scraper's exception as an empty result, then dedup by id and sort by
// price. The fan-out primitive itself is golang.org/x/sync/errgroup
// instead of asyncio.gather, since errgroup gives each adapter its own
// bounded context and the group a single first error/cancel signal.
package aggregator

import (
	"context"
	"crypto/md5"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yanizio/flatradar/internal/adapter"
	"github.com/yanizio/flatradar/internal/listing"
	"github.com/yanizio/flatradar/internal/metrics"
)

const perAdapterTimeout = 30 * time.Second

// NearDupWindowUSD is the price bucket width used by the near-duplicate
// pass (spec.md §9 open question: resolved as "same ±500 USD bucket").
const NearDupWindowUSD = 500

// Aggregator runs every registered adapter and merges their results.
type Aggregator struct {
	log       *log.Logger
	cityNames []string
}

// New builds an Aggregator. cityNames feeds listing.ComputeContentHash's
// address normalization.
func New(lg *log.Logger, cityNames []string) *Aggregator {
	return &Aggregator{log: lg, cityNames: cityNames}
}

// FetchAll runs every registered source adapter concurrently with a
// per-adapter timeout, merges and dedups the results, and returns them
// ascending by price (zero-price listings last).
func (a *Aggregator) FetchAll(ctx context.Context, p adapter.Params) []listing.Listing {
	sources := adapter.All()
	results := make([][]listing.Listing, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gctx, perAdapterTimeout)
			defer cancel()

			listings, err := src.FetchListings(fetchCtx, p)
			if err != nil {
				if a.log != nil {
					a.log.Printf("aggregator: %s: %v", src.Name(), err)
				}
				return nil // an adapter failure contributes an empty slice, never aborts the group
			}
			results[i] = listings
			return nil
		})
	}
	_ = g.Wait() // no Go() above returns a non-nil error; this just waits out the fan-out

	var merged []listing.Listing
	for _, r := range results {
		merged = append(merged, r...)
	}

	for i := range merged {
		merged[i] = listing.WithContentHash(merged[i], a.cityNames)
	}

	before := len(merged)
	merged = dedupExactID(merged)
	merged = dedupNearDuplicate(merged)
	metrics.AggregatorDedupTotal.WithLabelValues("exact_and_near").Add(float64(before - len(merged)))

	sortByPrice(merged)
	return merged
}

// dedupExactID keeps only the first occurrence of each listing_id,
// mirroring aggregator.py's _remove_duplicates.
func dedupExactID(in []listing.Listing) []listing.Listing {
	seen := make(map[string]bool, len(in))
	out := make([]listing.Listing, 0, len(in))
	for _, l := range in {
		if seen[l.ListingID] {
			continue
		}
		seen[l.ListingID] = true
		out = append(out, l)
	}
	return out
}

// dedupNearDuplicate collapses cross-portal clones of the same apartment:
// same normalized address, same floor, same total area, same ±500 USD
// price bucket, and a matching first-3-photo hash (spec.md §9's resolved
// open question on near-dup signature). The first occurrence in input
// order wins.
func dedupNearDuplicate(in []listing.Listing) []listing.Listing {
	type bucket struct {
		addr, floor, photoSig string
		area                  float64
		priceBucket           int
	}
	seen := make(map[bucket]bool, len(in))
	out := make([]listing.Listing, 0, len(in))

	for _, l := range in {
		// A listing with no photos has no photo signature to match on;
		// treating an empty signature as a match would collapse every
		// photo-less listing in the same address/floor/price bucket
		// (common across the HTML-adapter portals) into one. Fall back
		// to the listing_id so it only ever "matches" itself.
		photoSig := photoSignature(l.Photos)
		if len(l.Photos) == 0 {
			photoSig = "id:" + l.ListingID
		}
		b := bucket{
			addr:        listing.NormalizeAddress(l.Address, nil),
			floor:       l.Floor,
			photoSig:    photoSig,
			area:        math.Round(l.Area),
			priceBucket: priceBucket(l.Price, NearDupWindowUSD),
		}
		if seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, l)
	}
	return out
}

func priceBucket(price, window int) int {
	if window <= 0 {
		return price
	}
	return price / window
}

// photoSignature hashes the first 3 photo URLs, verbatim, in listing
// order (spec.md §9's resolved open question on the near-dup photo
// signature).
func photoSignature(photos []string) string {
	n := 3
	if len(photos) < n {
		n = len(photos)
	}
	var buf []byte
	for _, p := range photos[:n] {
		buf = append(buf, []byte(p)...)
	}
	sum := md5.Sum(buf)
	return fmt.Sprintf("%x", sum)
}

// sortByPrice sorts ascending by price; zero-price listings ("negotiable")
// sort last, stably within each group.
func sortByPrice(in []listing.Listing) {
	sort.SliceStable(in, func(i, j int) bool {
		pi, pj := in[i].Price, in[j].Price
		if pi == 0 && pj == 0 {
			return false
		}
		if pi == 0 {
			return false
		}
		if pj == 0 {
			return true
		}
		return pi < pj
	})
}
