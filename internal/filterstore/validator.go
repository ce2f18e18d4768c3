package filterstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yanizio/flatradar/internal/cityresolver"
)

var v = validator.New()

// Normalize lower-cases the city slug and canonicalizes seller_type,
// mirroring spec.md §8's filter-store round-trip property
// ("set_filter(f); get_filter() == f modulo normalization").
func Normalize(r Record) Record {
	r.CitySlug = strings.ToLower(strings.TrimSpace(r.CitySlug))
	switch strings.ToLower(string(r.SellerType)) {
	case string(SellerOwner):
		r.SellerType = SellerOwner
	default:
		r.SellerType = SellerAll
	}
	return r
}

// Validate checks the struct-tag invariants, the max-price-span rule (not
// expressible as a single validator tag against two fields), and resolves
// city_slug through the external cityresolver.Resolver collaborator.
func Validate(ctx context.Context, r Record, resolver cityresolver.Resolver) error {
	r = Normalize(r)

	if err := v.Struct(r); err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	if r.PriceSpan() > MaxPriceSpanUSD {
		return fmt.Errorf("filter: price span %d exceeds max %d", r.PriceSpan(), MaxPriceSpanUSD)
	}
	if resolver != nil {
		if _, ok, err := resolver.Resolve(ctx, r.CitySlug); err != nil {
			return fmt.Errorf("filter: resolve city: %w", err)
		} else if !ok {
			return fmt.Errorf("filter: city slug %q does not resolve", r.CitySlug)
		}
	}
	return nil
}
