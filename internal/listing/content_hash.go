package listing

import (
	"crypto/md5"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// defaultCityNames is the built-in set of recognized city names stripped
// from addresses before hashing. Real deployments should pass the live set
// from the (external, non-core) city resolver as the cityNames argument of
// NormalizeAddress, ComputeContentHash or WithContentHash; this list
// only covers the portals' most common cities so tests and small
// deployments work out of the box.
var defaultCityNames = []string{
	"минск", "барановичи", "брест", "гомель", "гродно", "витебск", "могилев",
}

var punctuationRE = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
var whitespaceRE = regexp.MustCompile(`\s+`)

// NormalizeAddress lower-cases, strips punctuation and any recognized city
// name, and collapses whitespace, per spec.md §3's ContentHash definition.
func NormalizeAddress(address string, cityNames []string) string {
	if cityNames == nil {
		cityNames = defaultCityNames
	}
	s := strings.ToLower(address)
	s = punctuationRE.ReplaceAllString(s, " ")
	for _, city := range cityNames {
		s = strings.ReplaceAll(s, strings.ToLower(city), " ")
	}
	s = whitespaceRE.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// roundTo rounds v to the nearest multiple of step (step > 0).
func roundTo(v, step float64) float64 {
	return math.Round(v/step) * step
}

// ComputeContentHash derives the 16-hex cross-source identity digest over
// (rooms, round(area), normalized_address, round(price, 1000)), per
// spec.md §3. cityNames may be nil to use the built-in default set.
func ComputeContentHash(l Listing, cityNames []string) string {
	normAddr := NormalizeAddress(l.Address, cityNames)
	roundedArea := roundTo(l.Area, 1)
	roundedPrice := roundTo(float64(l.Price), 1000)

	payload := fmt.Sprintf("%d|%.0f|%s|%.0f", l.Rooms, roundedArea, normAddr, roundedPrice)
	sum := md5.Sum([]byte(payload))
	return fmt.Sprintf("%x", sum[:8]) // 8 bytes -> 16 hex chars
}

// WithContentHash returns a copy of l with ContentHash populated.
func WithContentHash(l Listing, cityNames []string) Listing {
	l.ContentHash = ComputeContentHash(l, cityNames)
	return l
}
