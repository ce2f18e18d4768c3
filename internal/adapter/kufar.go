package adapter

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"

	"github.com/yanizio/flatradar/internal/citycache"
	"github.com/yanizio/flatradar/internal/httpclient"
	"github.com/yanizio/flatradar/internal/listing"
	"github.com/yanizio/flatradar/internal/metrics"
)

func init() {
	Register(newKufar())
}

const kufarBaseURL = "https://re.kufar.by"
const kufarAPIURL = "https://api.kufar.by/search-api/v2/search/rendered-paginated"

// kufarCityGTSY maps the small set of cities the original scraper knew
// about. Anything else falls through to citycache's probe-and-cache path.
var kufarCityGTSY = map[string]string{
	"baranovichi": "country-belarus~province-brestskaja_oblast~locality-baranovichi",
	"brest":       "country-belarus~province-brestskaja_oblast~locality-brest",
	"minsk":       "country-belarus~province-minsk~locality-minsk",
	"gomel":       "country-belarus~province-gomelskaja_oblast~locality-gomel",
	"grodno":      "country-belarus~province-grodnenskaja_oblast~locality-grodno",
	"vitebsk":     "country-belarus~province-vitebskaja_oblast~locality-vitebsk",
	"mogilev":     "country-belarus~province-mogilevskaja_oblast~locality-mogilev",
	"orsha":       "country-belarus~province-vitebskaja_oblast~locality-orsha",
}

type kufarAdapter struct {
	http  *httpclient.Client
	cache *citycache.Cache
	log   *log.Logger
	old   OldChecker
}

// NewKufar builds the kufar.by adapter. Call before Register (or let init
// do it with package defaults) once the shared client and caches exist.
func NewKufar(h *httpclient.Client, c *citycache.Cache, lg *log.Logger, old OldChecker) Source {
	return &kufarAdapter{http: h, cache: c, log: lg, old: old}
}

func newKufar() Source { return &kufarAdapter{} }

// Configure rewires an adapter created by init() with real collaborators.
// Adapters self-register as zero-value stand-ins at package-init time
// (spec.md §4.2's registry pattern); cmd/bot calls Configure once the
// shared httpclient.Client and citycache.Cache exist.
func (a *kufarAdapter) Configure(h *httpclient.Client, c *citycache.Cache, lg *log.Logger, old OldChecker) {
	a.http, a.cache, a.log, a.old = h, c, lg, old
}

func (a *kufarAdapter) Name() listing.SourceTag { return listing.SourceKufar }

func (a *kufarAdapter) gtsy(ctx context.Context, citySlug string) (string, error) {
	if code, ok := kufarCityGTSY[citySlug]; ok {
		return code, nil
	}
	if a.cache == nil {
		return "", fmt.Errorf("kufar: unknown city %q", citySlug)
	}
	return a.cache.Get(ctx, string(listing.SourceKufar), citySlug, func(ctx context.Context, source, city string) (string, error) {
		// The portal has no public city-discovery endpoint worth
		// probing live; unknown cities are a config gap, not a
		// runtime lookup, so surface a clear error instead of
		// guessing a neighboring locality like the original did.
		return "", fmt.Errorf("kufar: no city code for %q", city)
	})
}

func (a *kufarAdapter) FetchListings(ctx context.Context, p Params) ([]listing.Listing, error) {
	gtsy, err := a.gtsy(ctx, p.CitySlug)
	if err != nil {
		metrics.AdapterFetchTotal.WithLabelValues(string(listing.SourceKufar), "error").Inc()
		return nil, err
	}

	var out []listing.Listing
	cursor := ""
	streak := 0

	for page := 1; page <= DefaultPageCap; page++ {
		params := url.Values{
			"cat":  {"1010"},
			"cur":  {"USD"},
			"gtsy": {gtsy},
			"lang": {"ru"},
			"typ":  {"sell"},
			"sort": {"lst.d"},
			"size": {strconv.Itoa(DefaultPageSize)},
		}
		if p.MinRooms > 0 && p.MaxRooms > 0 {
			rooms := make([]string, 0, p.MaxRooms-p.MinRooms+1)
			for r := p.MinRooms; r <= p.MaxRooms; r++ {
				rooms = append(rooms, strconv.Itoa(r))
			}
			params.Set("rms", "v.or:"+strings.Join(rooms, ","))
		}
		if p.MinPrice > 0 || p.MaxPrice < 1000000 {
			params.Set("prc", fmt.Sprintf("r:%d,%d", max0(p.MinPrice), min1M(p.MaxPrice)))
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp kufarResponse
		if err := a.http.FetchJSON(ctx, string(listing.SourceKufar), kufarAPIURL, params,
			httpclient.Options{Referer: kufarBaseURL + "/", Origin: kufarBaseURL}, &resp); err != nil {
			metrics.AdapterFetchTotal.WithLabelValues(string(listing.SourceKufar), "error").Inc()
			if page == 1 {
				return nil, err
			}
			break
		}

		stop := false
		for _, ad := range resp.Ads {
			lst, ok := parseKufarAd(ad, p.CitySlug)
			if !ok {
				continue
			}

			if a.old != nil {
				isOld, err := a.old.Contains(ctx, lst.ListingID)
				if err == nil && isOld {
					streak++
					if streak >= DefaultOldStreakCap {
						stop = true
						break
					}
					continue
				}
			}
			streak = 0

			if !matchesRoomsPrice(lst, p) {
				continue
			}
			out = append(out, lst)
		}
		if stop {
			break
		}

		cursor = resp.nextCursor()
		if cursor == "" {
			break
		}
	}

	metrics.AdapterFetchTotal.WithLabelValues(string(listing.SourceKufar), "ok").Inc()
	metrics.AdapterListingsTotal.WithLabelValues(string(listing.SourceKufar)).Add(float64(len(out)))
	return out, nil
}

func max0(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func min1M(v int) int {
	if v > 1000000 {
		return 1000000
	}
	return v
}

func matchesRoomsPrice(l listing.Listing, p Params) bool {
	if l.Rooms > 0 && (l.Rooms < p.MinRooms || l.Rooms > p.MaxRooms) {
		return false
	}
	if l.Price > 0 && (l.Price < p.MinPrice || l.Price > p.MaxPrice) {
		return false
	}
	return true
}

// --- API response shapes ---

type kufarResponse struct {
	Ads        []kufarAd `json:"ads"`
	Pagination struct {
		Pages []struct {
			Label string `json:"label"`
			Token string `json:"token"`
		} `json:"pages"`
	} `json:"pagination"`
}

func (r kufarResponse) nextCursor() string {
	for _, pg := range r.Pagination.Pages {
		if pg.Label == "next" {
			return pg.Token
		}
	}
	return ""
}

type kufarAd struct {
	AdID          int64  `json:"ad_id"`
	AdLink        string `json:"ad_link"`
	PriceUSD      string `json:"price_usd"`
	PriceBYN      string `json:"price_byn"`
	CompanyAd     bool   `json:"company_ad"`
	AdParameters  []kufarParam `json:"ad_parameters"`
	AccountParams []kufarParam `json:"account_parameters"`
}

type kufarParam struct {
	P  string `json:"p"`
	V  any    `json:"v"`
	VL string `json:"vl"`
}

func (ad kufarAd) param(name string) string {
	for _, p := range ad.AdParameters {
		if p.P == name {
			switch v := p.V.(type) {
			case string:
				return v
			case float64:
				return strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
	}
	return ""
}

func parseKufarAd(ad kufarAd, citySlug string) (listing.Listing, bool) {
	if ad.AdID == 0 {
		return listing.Listing{}, false
	}

	link := ad.AdLink
	if link != "" && !strings.HasPrefix(link, "http") {
		link = kufarBaseURL + link
	}

	priceCents, _ := strconv.Atoi(ad.PriceUSD)
	price := priceCents / 100

	rooms, _ := strconv.Atoi(ad.param("rooms"))
	area, _ := strconv.ParseFloat(ad.param("size"), 64)

	address := citySlug
	for _, p := range ad.AccountParams {
		if p.P == "address" {
			if s, ok := p.V.(string); ok && s != "" {
				address = s
			}
		}
	}

	sellerType := listing.SellerCompany
	if !ad.CompanyAd {
		sellerType = listing.SellerOwner
	}

	title := fmt.Sprintf("%d-room, %.0f m2", rooms, area)

	dto := DTO{Title: title, Price: price, URL: link, Location: address, Source: string(listing.SourceKufar)}
	if err := dto.Validate(); err != nil {
		return listing.Listing{}, false
	}

	return listing.Listing{
		ListingID:  listing.BuildID(listing.SourceKufar, strconv.FormatInt(ad.AdID, 10)),
		Source:     listing.SourceKufar,
		NativeID:   strconv.FormatInt(ad.AdID, 10),
		Title:      title,
		Price:      price,
		PriceUSD:   &price,
		Rooms:      rooms,
		Area:       area,
		Address:    address,
		URL:        link,
		SellerType: sellerType,
	}, true
}
