package bot

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/yanizio/flatradar/internal/cache"
	"github.com/yanizio/flatradar/internal/listing"
)

// DefaultVariantCacheSize bounds how many open "show variants" summaries
// the bot holds at once; old tokens simply evict (the button just stops
// working, which is indistinguishable from a stale message to the user).
const DefaultVariantCacheSize = 2048

// tokenBytes is the random token width in bytes (16 hex chars), well
// under the callback_data byte cap once combined with a verb prefix and
// an offset (spec.md §6).
const tokenBytes = 8

// VariantStore is internal/dispatcher.VariantStore's real implementation:
// an LRU from opaque token to the building group's listings, so a later
// show_house callback can page through them. Satisfies
// dispatcher.VariantStore's Put method structurally; cmd/bot/main.go is
// the only place that needs both package names in scope.
type VariantStore struct {
	mu    sync.Mutex
	cache *cache.LRU
}

// NewVariantStore builds a VariantStore with the given capacity.
func NewVariantStore(capacity int) *VariantStore {
	return &VariantStore{cache: cache.New(capacity)}
}

// Put stores listings behind a fresh token and returns it.
func (v *VariantStore) Put(listings []listing.Listing) string {
	token := newToken()
	v.mu.Lock()
	v.cache.Add(token, listings)
	v.mu.Unlock()
	return token
}

// Get retrieves the listings behind token, if still cached.
func (v *VariantStore) Get(token string) ([]listing.Listing, bool) {
	v.mu.Lock()
	val, ok := v.cache.Get(token)
	v.mu.Unlock()
	if !ok {
		return nil, false
	}
	return val.([]listing.Listing), true
}

func newToken() string {
	buf := make([]byte, tokenBytes)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
