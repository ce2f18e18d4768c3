package adapter

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"

	"github.com/yanizio/flatradar/internal/citycache"
	"github.com/yanizio/flatradar/internal/httpclient"
	"github.com/yanizio/flatradar/internal/listing"
	"github.com/yanizio/flatradar/internal/metrics"
)

func init() {
	Register(newOnliner())
}

const onlinerAPIURL = "https://r.onliner.by/sdapi/ak.api/search/apartments"

// onlinerCityBounds holds the lat/long search box for each known city.
// The original scraper hard-coded a single box for Baranovichi; this keeps
// that shape but indexes it per city slug.
var onlinerCityBounds = map[string][4]string{
	"baranovichi": {"53.05", "25.90", "53.20", "26.15"},
	"minsk":       {"53.80", "27.40", "54.00", "27.75"},
}

type onlinerAdapter struct {
	http  *httpclient.Client
	cache *citycache.Cache
	log   *log.Logger
	old   OldChecker
}

func newOnliner() Source { return &onlinerAdapter{} }

// NewOnliner builds the onliner.by adapter with real collaborators.
func NewOnliner(h *httpclient.Client, c *citycache.Cache, lg *log.Logger, old OldChecker) Source {
	return &onlinerAdapter{http: h, cache: c, log: lg, old: old}
}

func (a *onlinerAdapter) Configure(h *httpclient.Client, c *citycache.Cache, lg *log.Logger, old OldChecker) {
	a.http, a.cache, a.log, a.old = h, c, lg, old
}

func (a *onlinerAdapter) Name() listing.SourceTag { return listing.SourceOnliner }

func (a *onlinerAdapter) bounds(ctx context.Context, citySlug string) ([4]string, error) {
	if b, ok := onlinerCityBounds[citySlug]; ok {
		return b, nil
	}
	if a.cache == nil {
		return [4]string{}, fmt.Errorf("onliner: unknown city %q", citySlug)
	}
	code, err := a.cache.Get(ctx, string(listing.SourceOnliner), citySlug, func(ctx context.Context, source, city string) (string, error) {
		return "", fmt.Errorf("onliner: no bounding box for %q", city)
	})
	if err != nil {
		return [4]string{}, err
	}
	return onlinerCityBounds[code], nil
}

func (a *onlinerAdapter) FetchListings(ctx context.Context, p Params) ([]listing.Listing, error) {
	box, err := a.bounds(ctx, p.CitySlug)
	if err != nil {
		metrics.AdapterFetchTotal.WithLabelValues(string(listing.SourceOnliner), "error").Inc()
		return nil, err
	}

	var out []listing.Listing
	for page := 1; page <= DefaultPageCap; page++ {
		params := url.Values{
			"bounds[lb][lat]":  {box[0]},
			"bounds[lb][long]": {box[1]},
			"bounds[rt][lat]":  {box[2]},
			"bounds[rt][long]": {box[3]},
			"currency":         {"usd"},
			"page":             {strconv.Itoa(page)},
			"limit":            {strconv.Itoa(DefaultPageSize)},
		}
		if p.MinPrice > 0 {
			params.Set("price[min]", strconv.Itoa(p.MinPrice))
		}
		if p.MaxPrice < 100000 {
			params.Set("price[max]", strconv.Itoa(p.MaxPrice))
		}
		for r := p.MinRooms; r <= p.MaxRooms && r < 5; r++ {
			params.Set(fmt.Sprintf("number_of_rooms[%d]", r), "true")
		}

		var resp onlinerResponse
		if err := a.http.FetchJSON(ctx, string(listing.SourceOnliner), onlinerAPIURL, params, httpclient.Options{}, &resp); err != nil {
			metrics.AdapterFetchTotal.WithLabelValues(string(listing.SourceOnliner), "error").Inc()
			if page == 1 {
				return nil, err
			}
			break
		}

		apts := resp.Apartments
		if len(apts) == 0 {
			break
		}

		streak := 0
		stop := false
		for _, apt := range apts {
			lst, ok := parseOnlinerApt(apt)
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
		if stop || len(apts) < DefaultPageSize {
			break
		}
	}

	metrics.AdapterFetchTotal.WithLabelValues(string(listing.SourceOnliner), "ok").Inc()
	metrics.AdapterListingsTotal.WithLabelValues(string(listing.SourceOnliner)).Add(float64(len(out)))
	return out, nil
}

type onlinerResponse struct {
	Apartments []onlinerApartment `json:"apartments"`
}

type onlinerApartment struct {
	ID    any `json:"id"`
	Price struct {
		Converted struct {
			USD struct {
				Amount string `json:"amount"`
			} `json:"USD"`
		} `json:"converted"`
	} `json:"price"`
	NumberOfRooms int `json:"number_of_rooms"`
	Area          struct {
		Total string `json:"total"`
	} `json:"area"`
	Location struct {
		Address     string `json:"address"`
		UserAddress string `json:"user_address"`
	} `json:"location"`
}

func parseOnlinerApt(apt onlinerApartment) (listing.Listing, bool) {
	id := fmt.Sprintf("%v", apt.ID)
	if id == "" || id == "0" {
		return listing.Listing{}, false
	}

	priceUSD, _ := strconv.Atoi(apt.Price.Converted.USD.Amount)
	area, _ := strconv.ParseFloat(apt.Area.Total, 64)

	address := apt.Location.Address
	if apt.Location.UserAddress != "" {
		if address != "" {
			address += ", " + apt.Location.UserAddress
		} else {
			address = apt.Location.UserAddress
		}
	}

	url := fmt.Sprintf("https://r.onliner.by/ak/apartments/%s", id)
	title := fmt.Sprintf("%d-room, %.0f m2", apt.NumberOfRooms, area)

	dto := DTO{Title: title, Price: priceUSD, URL: url, Location: address, Source: string(listing.SourceOnliner)}
	if err := dto.Validate(); err != nil {
		return listing.Listing{}, false
	}

	return listing.Listing{
		ListingID: listing.BuildID(listing.SourceOnliner, id),
		Source:    listing.SourceOnliner,
		NativeID:  id,
		Title:     title,
		Price:     priceUSD,
		PriceUSD:  &priceUSD,
		Rooms:     apt.NumberOfRooms,
		Area:      area,
		Address:   address,
		URL:       url,
	}, true
}
