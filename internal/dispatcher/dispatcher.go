// Package dispatcher implements spec.md §4.9: per tick, for each active
// subscriber, pull candidates through the cache, apply the filter
// evaluator and dedup layers, and hand the survivors to Delivery --
// sequentially across subscribers (spec.md §5(b): "not in parallel, to
// keep Delivery's per-chat ordering trivially correct and bounded
// memory"), so this package has no internal fan-out of its own.
package dispatcher

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/yanizio/flatradar/internal/adapter"
	"github.com/yanizio/flatradar/internal/aggregator"
	"github.com/yanizio/flatradar/internal/cachestore"
	"github.com/yanizio/flatradar/internal/delivery"
	"github.com/yanizio/flatradar/internal/filterstore"
	"github.com/yanizio/flatradar/internal/listing"
	"github.com/yanizio/flatradar/internal/metrics"
	"github.com/yanizio/flatradar/internal/scoring"
	"github.com/yanizio/flatradar/internal/seenset"
	"github.com/yanizio/flatradar/internal/subscriber"
)

// IntraBatchSpacing is the 1s spacing spec.md §4.9 step 6 requires
// between full-mode sends within one subscriber's batch (on top of
// Delivery's own per-chat cooldown, which already enforces ≥1s -- this
// makes the intent explicit at the call site the spec describes it at).
const IntraBatchSpacing = 1 * time.Second

// VariantStore persists a building group's listings behind an opaque
// token so a later "show variants" callback can retrieve them, without
// the dispatcher needing to know how tokens are stored. internal/bot's
// LRU-backed implementation (internal/cache.LRU, the teacher-adapted
// generic cache) is the real collaborator; this interface exists so
// dispatcher doesn't import internal/bot (which imports dispatcher).
type VariantStore interface {
	Put(listings []listing.Listing) (token string)
}

// Dispatcher wires every collaborator spec.md §4.9 names.
type Dispatcher struct {
	log *log.Logger

	filters      *filterstore.Store
	cache        *cachestore.Store
	seen         *seenset.SeenSet
	delivered    *seenset.DeliveredSet
	subscribers  *subscriber.Store
	aggregator   *aggregator.Aggregator
	messenger    *delivery.Messenger
	variants     VariantStore

	fxRate    float64
	cityNames []string
}

// New builds a Dispatcher from its collaborators.
func New(
	lg *log.Logger,
	filters *filterstore.Store,
	cache *cachestore.Store,
	seen *seenset.SeenSet,
	delivered *seenset.DeliveredSet,
	subscribers *subscriber.Store,
	agg *aggregator.Aggregator,
	messenger *delivery.Messenger,
	variants VariantStore,
	fxRate float64,
	cityNames []string,
) *Dispatcher {
	return &Dispatcher{
		log: lg, filters: filters, cache: cache, seen: seen, delivered: delivered,
		subscribers: subscribers, aggregator: agg, messenger: messenger, variants: variants,
		fxRate: fxRate, cityNames: cityNames,
	}
}

// RunAll implements the scheduler's periodic tick: every active filter,
// processed one at a time.
func (d *Dispatcher) RunAll(ctx context.Context) {
	filters, err := d.filters.AllActive(ctx)
	if err != nil {
		if d.log != nil {
			d.log.Printf("dispatcher: list active filters: %v", err)
		}
		return
	}
	for _, f := range filters {
		if ctx.Err() != nil {
			return
		}
		d.RunOne(ctx, f)
	}
}

// RunOne implements spec.md §4.9's seven steps for a single subscriber.
// It never returns an error: every failure mode is either logged and
// counted, or resolved into a subscriber-state change (deactivation).
func (d *Dispatcher) RunOne(ctx context.Context, f filterstore.Record) {
	outcome := "delivered"
	defer func() { metrics.DispatchRunTotal.WithLabelValues(outcome).Inc() }()

	if err := validateStep(f); err != nil {
		if d.log != nil {
			d.log.Printf("dispatcher: subscriber %d: invalid filter: %v", f.SubscriberID, err)
		}
		outcome = "skipped_invalid"
		return
	}

	candidates, err := d.candidates(ctx, f)
	if err != nil {
		if d.log != nil {
			d.log.Printf("dispatcher: subscriber %d: candidate fetch: %v", f.SubscriberID, err)
		}
		outcome = "error"
		return
	}

	matched := make([]listing.Listing, 0, len(candidates))
	for _, l := range candidates {
		if filterstore.MatchesWithFX(l, f, d.fxRate) {
			matched = append(matched, l)
		}
	}

	survivors := d.applyDedup(ctx, f, matched)
	if len(survivors) == 0 {
		return
	}

	var deactivated bool
	if f.DeliveryMode == filterstore.ModeBrief {
		deactivated = d.deliverBrief(ctx, f, survivors)
	} else {
		deactivated = d.deliverFull(ctx, f, survivors)
	}
	if deactivated {
		outcome = "deactivated"
	}
}

func validateStep(f filterstore.Record) error {
	if f.CitySlug == "" {
		return fmt.Errorf("empty city_slug")
	}
	if f.MinRooms > f.MaxRooms || f.MinPrice > f.MaxPrice {
		return fmt.Errorf("inverted range")
	}
	return nil
}

// candidates implements spec.md §4.5's read-through with the <10-row
// fallback to a live aggregator fetch, recording the hit/fallthrough/
// unavailable outcome the cache layer deliberately left unrecorded.
func (d *Dispatcher) candidates(ctx context.Context, f filterstore.Record) ([]listing.Listing, error) {
	rows, err := d.cache.Query(ctx, f.CitySlug, f.MinRooms, f.MaxRooms, f.MinPrice, f.MaxPrice)
	if err != nil {
		metrics.CacheReadTotal.WithLabelValues("unavailable").Inc()
		return nil, err
	}

	if len(rows) >= cachestore.MinRowsThreshold {
		metrics.CacheReadTotal.WithLabelValues("hit").Inc()
		out := make([]listing.Listing, len(rows))
		for i, r := range rows {
			out[i] = r.ToListing()
		}
		return out, nil
	}

	metrics.CacheReadTotal.WithLabelValues("fallthrough").Inc()
	fresh := d.aggregator.FetchAll(ctx, adapter.Params{
		CitySlug: f.CitySlug,
		MinRooms: f.MinRooms,
		MaxRooms: f.MaxRooms,
		MinPrice: f.MinPrice,
		MaxPrice: f.MaxPrice,
	})
	for _, l := range fresh {
		if err := d.cache.Upsert(ctx, l, f.CitySlug); err != nil && d.log != nil {
			d.log.Printf("dispatcher: cache upsert %s: %v", l.ListingID, err)
		}
	}
	return fresh, nil
}

// applyDedup implements spec.md §4.6's layers 1 and 2, with brief mode
// intentionally bypassing layer 2 (content hash) per §4.6's note so the
// same apartment can resurface across different summaries.
func (d *Dispatcher) applyDedup(ctx context.Context, f filterstore.Record, in []listing.Listing) []listing.Listing {
	out := make([]listing.Listing, 0, len(in))
	// batchHashes tracks content hashes already cleared for delivery
	// earlier in this same batch. MatchByHash alone only catches hashes
	// recorded by a *previous* tick's markDelivered call; two listings
	// sharing a content_hash within one RunOne pass would otherwise both
	// pass MatchByHash, since neither is recorded yet until after it
	// sends (spec.md §4.6 layer 2 applies within a batch too).
	batchHashes := make(map[string]bool)
	for _, l := range in {
		seen, err := d.seen.Contains(ctx, f.SubscriberID, l.ListingID)
		if err != nil {
			if d.log != nil {
				d.log.Printf("dispatcher: seenset lookup %s: %v", l.ListingID, err)
			}
			continue
		}
		if seen {
			metrics.DedupSkipTotal.WithLabelValues("seen_id").Inc()
			continue
		}

		if f.DeliveryMode == filterstore.ModeFull && l.ContentHash != "" {
			if batchHashes[l.ContentHash] {
				metrics.DedupSkipTotal.WithLabelValues("content_hash").Inc()
				continue
			}
			_, found, err := d.delivered.MatchByHash(ctx, l.ContentHash)
			if err != nil {
				if d.log != nil {
					d.log.Printf("dispatcher: deliveredset lookup %s: %v", l.ContentHash, err)
				}
			} else if found {
				metrics.DedupSkipTotal.WithLabelValues("content_hash").Inc()
				continue
			}
			batchHashes[l.ContentHash] = true
		}

		out = append(out, l)
	}
	return out
}

// markDelivered atomically (best-effort sequential) records l as
// delivered. In full mode both SeenSet and DeliveredSet are updated; in
// brief mode only SeenSet, since DeliveredSet participation is what
// lets the same apartment resurface in a later summary (spec.md §4.6).
func (d *Dispatcher) markDelivered(ctx context.Context, f filterstore.Record, l listing.Listing) {
	if err := d.seen.Mark(ctx, f.SubscriberID, l.ListingID); err != nil && d.log != nil {
		d.log.Printf("dispatcher: seenset mark %s: %v", l.ListingID, err)
	}
	if f.DeliveryMode == filterstore.ModeFull {
		if err := d.delivered.Record(ctx, l.ListingID, l.ContentHash); err != nil && d.log != nil {
			d.log.Printf("dispatcher: deliveredset record %s: %v", l.ListingID, err)
		}
	}
}

// deliverFull implements spec.md §4.9 step 6. Returns true if the
// subscriber was deactivated mid-batch (chat closed).
func (d *Dispatcher) deliverFull(ctx context.Context, f filterstore.Record, listings []listing.Listing) bool {
	for i, l := range listings {
		if i > 0 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(IntraBatchSpacing):
			}
		}

		result := d.messenger.SendText(ctx, f.SubscriberID, RenderListing(l), nil)
		switch result {
		case delivery.ResultOK:
			d.markDelivered(ctx, f, l)
		case delivery.ResultChatClosed:
			d.deactivate(ctx, f.SubscriberID)
			return true
		case delivery.ResultTransientFailure:
			if d.log != nil {
				d.log.Printf("dispatcher: subscriber %d: transient failure on %s, retry next tick", f.SubscriberID, l.ListingID)
			}
		}
	}
	return false
}

// deliverBrief implements spec.md §4.9 step 5 / §4.8's rendering.
// Returns true if the subscriber was deactivated.
func (d *Dispatcher) deliverBrief(ctx context.Context, f filterstore.Record, listings []listing.Listing) bool {
	groups := scoring.GroupByBuilding(listings, d.cityNames)
	groups = scoring.Score(groups)
	top := scoring.TopN(groups)

	text, buttons := RenderBrief(top, d.variants)

	result := d.messenger.SendText(ctx, f.SubscriberID, text, buttons)
	switch result {
	case delivery.ResultOK:
		for _, g := range top {
			for _, l := range g.Listings {
				d.markDelivered(ctx, f, l)
			}
		}
	case delivery.ResultChatClosed:
		d.deactivate(ctx, f.SubscriberID)
		return true
	case delivery.ResultTransientFailure:
		if d.log != nil {
			d.log.Printf("dispatcher: subscriber %d: brief summary transient failure, retry next tick", f.SubscriberID)
		}
	}
	return false
}

func (d *Dispatcher) deactivate(ctx context.Context, subscriberID int64) {
	if err := d.subscribers.SetActive(ctx, subscriberID, false); err != nil && d.log != nil {
		d.log.Printf("dispatcher: deactivate subscriber %d: %v", subscriberID, err)
	}
	if err := d.filters.Deactivate(ctx, subscriberID); err != nil && d.log != nil {
		d.log.Printf("dispatcher: deactivate filter %d: %v", subscriberID, err)
	}
}
