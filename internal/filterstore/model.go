// Package filterstore is the FilterRecord store (spec.md §4.7's
// collaborator): CRUD plus the struct invariants every filter must
// satisfy before it is persisted.
//
// Struct validation grounded on internal/config/validator.go
// (go-playground/validator/v10); repository access grounded on
// internal/site/repository.go.
package filterstore

// SellerType restricts who a subscriber wants to hear from.
type SellerType string

const (
	SellerAll   SellerType = "all"
	SellerOwner SellerType = "owner"
)

// DeliveryMode picks between a terse grouped summary and the full list.
type DeliveryMode string

const (
	ModeBrief DeliveryMode = "brief"
	ModeFull  DeliveryMode = "full"
)

// MaxPriceSpanUSD bounds max_price - min_price at accept time (spec.md
// §4 FilterRecord invariants).
const MaxPriceSpanUSD = 20000

// MaxRoomsUnbounded is the sentinel "no upper bound" value for max_rooms.
const MaxRoomsUnbounded = 99

// Record is one subscriber's standing search filter.
type Record struct {
	SubscriberID int64        `db:"subscriber_id" validate:"required"`
	CitySlug     string       `db:"city_slug" validate:"required"`
	MinRooms     int          `db:"min_rooms" validate:"gte=1,lte=99"`
	MaxRooms     int          `db:"max_rooms" validate:"gte=1,lte=99,gtefield=MinRooms"`
	MinPrice     int          `db:"min_price" validate:"gte=0"`
	MaxPrice     int          `db:"max_price" validate:"gtefield=MinPrice"`
	SellerType   SellerType   `db:"seller_type" validate:"oneof=all owner"`
	DeliveryMode DeliveryMode `db:"delivery_mode" validate:"oneof=brief full"`
	Active       bool         `db:"active"`
}

// PriceSpan reports the filter's price span in USD.
func (r Record) PriceSpan() int { return r.MaxPrice - r.MinPrice }
