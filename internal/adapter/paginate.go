package adapter

import "context"

const (
	// DefaultPageCap is the hard per-run page limit (spec.md §4.3).
	DefaultPageCap = 2
	// DefaultPageSize is the listings-per-page portals are asked for.
	DefaultPageSize = 30
	// DefaultOldStreakCap stops pagination after this many consecutive
	// listings already present in the global DeliveredSet.
	DefaultOldStreakCap = 5
)

// OldChecker reports whether a listing_id is already present in the global
// DeliveredSet (spec.md §4.3's old-streak early stop). Adapters depend on
// this narrow interface rather than internal/seenset directly, so the
// dependency runs adapter -> (small interface) instead of adapter ->
// seenset -> database.
type OldChecker interface {
	Contains(ctx context.Context, listingID string) (bool, error)
}

// PageFetcher fetches one page of raw listing IDs in portal order (newest
// first) and reports whether a further page exists.
type PageFetcher func(ctx context.Context, page int) (ids []string, hasNext bool, err error)

// Paginate drives PageFetcher across pages, applying both early-stop
// conditions from spec.md §4.3: a hard page cap, and an "old streak" cap
// checked against old (already-delivered) via OldChecker. It returns the
// ids that should actually be parsed into listings -- callers still parse
// and validate each id's full record themselves; Paginate only decides
// which pages to visit.
func Paginate(ctx context.Context, pageCap, streakCap int, old OldChecker, fetch PageFetcher) ([]string, error) {
	if pageCap <= 0 {
		pageCap = DefaultPageCap
	}
	if streakCap <= 0 {
		streakCap = DefaultOldStreakCap
	}

	var out []string
	streak := 0

	for page := 1; page <= pageCap; page++ {
		ids, hasNext, err := fetch(ctx, page)
		if err != nil {
			return out, err
		}

		for _, id := range ids {
			isOld := false
			if old != nil {
				isOld, err = old.Contains(ctx, id)
				if err != nil {
					return out, err
				}
			}
			if isOld {
				streak++
				if streak >= streakCap {
					return out, nil
				}
				continue
			}
			streak = 0
			out = append(out, id)
		}

		if !hasNext {
			break
		}
	}
	return out, nil
}
