package adapter

import (
	"context"
	"crypto/md5"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/yanizio/flatradar/internal/citycache"
	"github.com/yanizio/flatradar/internal/httpclient"
	"github.com/yanizio/flatradar/internal/listing"
	"github.com/yanizio/flatradar/internal/metrics"
)

// htmlSiteConfig describes one portal's card-layout conventions, grounded
// on original_source/scrapers/realt.py's BeautifulSoup card walk: a
// listing page is a flat list of "cards", each holding a link, a title, a
// price, and an address in loosely-named classes.
type htmlSiteConfig struct {
	source     listing.SourceTag
	baseURL    string
	cardClass  *regexp.Regexp
	titleClass *regexp.Regexp
	priceClass *regexp.Regexp
	addrClass  *regexp.Regexp
	// listURL builds the search results URL for a city's known portal path.
	listURL func(cityPath string, p Params) string
	// cityPaths maps city slugs to the portal's own city path segment.
	cityPaths map[string]string
}

var htmlSites = map[listing.SourceTag]htmlSiteConfig{
	listing.SourceRealt: {
		source:     listing.SourceRealt,
		baseURL:    "https://realt.by",
		cardClass:  regexp.MustCompile(`listing-item|teaser|card`),
		titleClass: regexp.MustCompile(`title|name`),
		priceClass: regexp.MustCompile(`price|cost`),
		addrClass:  regexp.MustCompile(`address|location|geo`),
		cityPaths:  map[string]string{"baranovichi": "baranovichi", "minsk": "minsk"},
		listURL: func(cityPath string, p Params) string {
			return fmt.Sprintf("https://realt.by/sale/flats/%s/", cityPath)
		},
	},
	listing.SourceDomovita: {
		source:     listing.SourceDomovita,
		baseURL:    "https://domovita.by",
		cardClass:  regexp.MustCompile(`listing|offer|card`),
		titleClass: regexp.MustCompile(`title|name`),
		priceClass: regexp.MustCompile(`price|cost`),
		addrClass:  regexp.MustCompile(`address|location`),
		cityPaths:  map[string]string{"baranovichi": "baranovichi", "minsk": "minsk"},
		listURL: func(cityPath string, p Params) string {
			return fmt.Sprintf("https://domovita.by/prodazha-kvartir/%s", cityPath)
		},
	},
	listing.SourceEtagi: {
		source:     listing.SourceEtagi,
		baseURL:    "https://etagi.by",
		cardClass:  regexp.MustCompile(`object-card|listing`),
		titleClass: regexp.MustCompile(`title|name`),
		priceClass: regexp.MustCompile(`price`),
		addrClass:  regexp.MustCompile(`address|location`),
		cityPaths:  map[string]string{"baranovichi": "baranovichi", "minsk": "minsk"},
		listURL: func(cityPath string, p Params) string {
			return fmt.Sprintf("https://etagi.by/realty/%s/flats_all/", cityPath)
		},
	},
	listing.SourceGohome: {
		source:     listing.SourceGohome,
		baseURL:    "https://gohome.by",
		cardClass:  regexp.MustCompile(`listing|card|offer`),
		titleClass: regexp.MustCompile(`title|name`),
		priceClass: regexp.MustCompile(`price|cost`),
		addrClass:  regexp.MustCompile(`address|location`),
		cityPaths:  map[string]string{"baranovichi": "baranovichi", "minsk": "minsk"},
		listURL: func(cityPath string, p Params) string {
			return fmt.Sprintf("https://gohome.by/prodazha-kvartir/%s/", cityPath)
		},
	},
	listing.SourceHata: {
		source:     listing.SourceHata,
		baseURL:    "https://hata.by",
		cardClass:  regexp.MustCompile(`listing|card|item`),
		titleClass: regexp.MustCompile(`title|name`),
		priceClass: regexp.MustCompile(`price|cost`),
		addrClass:  regexp.MustCompile(`address|location`),
		cityPaths:  map[string]string{"baranovichi": "baranovichi", "minsk": "minsk"},
		listURL: func(cityPath string, p Params) string {
			return fmt.Sprintf("https://hata.by/prodazha/kvartiry/%s/", cityPath)
		},
	},
}

func init() {
	for tag := range htmlSites {
		Register(newHTMLAdapter(tag))
	}
}

var priceDigitsRE = regexp.MustCompile(`\d+`)
var roomsRE = regexp.MustCompile(`(?i)(\d+)\s*-?\s*room`)
var areaRE = regexp.MustCompile(`(\d+[.,]?\d*)\s*m`)

type htmlAdapter struct {
	cfg   htmlSiteConfig
	http  *httpclient.Client
	cache *citycache.Cache
	log   *log.Logger
	old   OldChecker
}

func newHTMLAdapter(tag listing.SourceTag) Source {
	return &htmlAdapter{cfg: htmlSites[tag]}
}

// NewHTMLAdapter builds a shared-parser adapter with real collaborators,
// for use by cmd/bot's Configure pass.
func NewHTMLAdapter(tag listing.SourceTag, h *httpclient.Client, c *citycache.Cache, lg *log.Logger, old OldChecker) Source {
	return &htmlAdapter{cfg: htmlSites[tag], http: h, cache: c, log: lg, old: old}
}

func (a *htmlAdapter) Configure(h *httpclient.Client, c *citycache.Cache, lg *log.Logger, old OldChecker) {
	a.http, a.cache, a.log, a.old = h, c, lg, old
}

func (a *htmlAdapter) Name() listing.SourceTag { return a.cfg.source }

func (a *htmlAdapter) cityPath(ctx context.Context, citySlug string) (string, error) {
	if p, ok := a.cfg.cityPaths[citySlug]; ok {
		return p, nil
	}
	if a.cache == nil {
		return "", fmt.Errorf("%s: unknown city %q", a.cfg.source, citySlug)
	}
	return a.cache.Get(ctx, string(a.cfg.source), citySlug, func(ctx context.Context, source, city string) (string, error) {
		return "", fmt.Errorf("%s: no city path for %q", source, city)
	})
}

func (a *htmlAdapter) FetchListings(ctx context.Context, p Params) ([]listing.Listing, error) {
	cityPath, err := a.cityPath(ctx, p.CitySlug)
	if err != nil {
		metrics.AdapterFetchTotal.WithLabelValues(string(a.cfg.source), "error").Inc()
		return nil, err
	}

	body, err := a.http.FetchHTML(ctx, string(a.cfg.source), a.cfg.listURL(cityPath, p), nil, httpclient.Options{})
	if err != nil {
		metrics.AdapterFetchTotal.WithLabelValues(string(a.cfg.source), "error").Inc()
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		metrics.AdapterFetchTotal.WithLabelValues(string(a.cfg.source), "error").Inc()
		return nil, fmt.Errorf("%s: parse html: %w", a.cfg.source, err)
	}

	var out []listing.Listing
	streak := 0

	doc.Find("div").EachWithBreak(func(i int, card *goquery.Selection) bool {
		class, _ := card.Attr("class")
		if !a.cfg.cardClass.MatchString(class) {
			return true
		}

		lst, ok := a.parseCard(card, cityPath)
		if !ok {
			return true
		}

		if a.old != nil {
			if isOld, err := a.old.Contains(ctx, lst.ListingID); err == nil && isOld {
				streak++
				if streak >= DefaultOldStreakCap {
					return false
				}
				return true
			}
		}
		streak = 0

		if !matchesRoomsPrice(lst, p) {
			return true
		}
		out = append(out, lst)
		return len(out) < DefaultPageCap*DefaultPageSize
	})

	metrics.AdapterFetchTotal.WithLabelValues(string(a.cfg.source), "ok").Inc()
	metrics.AdapterListingsTotal.WithLabelValues(string(a.cfg.source)).Add(float64(len(out)))
	return out, nil
}

func (a *htmlAdapter) parseCard(card *goquery.Selection, cityPath string) (listing.Listing, bool) {
	link := card.Find("a[href]").First()
	href, ok := link.Attr("href")
	if !ok || href == "" {
		return listing.Listing{}, false
	}
	if !strings.HasPrefix(href, "http") {
		href = a.cfg.baseURL + href
	}

	title := findByClass(card, a.cfg.titleClass).Text()
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Apartment"
	}

	priceText := findByClass(card, a.cfg.priceClass).Text()
	price := parsePrice(priceText)

	address := strings.TrimSpace(findByClass(card, a.cfg.addrClass).Text())
	if address == "" {
		address = cityPath
	}

	rooms := 0
	if m := roomsRE.FindStringSubmatch(title); m != nil {
		rooms, _ = strconv.Atoi(m[1])
	}
	area := 0.0
	if m := areaRE.FindStringSubmatch(title + " " + card.Text()); m != nil {
		area, _ = strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	}

	sum := md5.Sum([]byte(fmt.Sprintf("%s:%s", a.cfg.source, href)))
	nativeID := fmt.Sprintf("%x", sum[:8])

	dto := DTO{Title: title, Price: price, URL: href, Location: address, Source: string(a.cfg.source)}
	if err := dto.Validate(); err != nil {
		return listing.Listing{}, false
	}

	return listing.Listing{
		ListingID: listing.BuildID(a.cfg.source, nativeID),
		Source:    a.cfg.source,
		NativeID:  nativeID,
		Title:     title,
		Price:     price,
		Rooms:     rooms,
		Area:      area,
		Address:   address,
		URL:       href,
	}, true
}

func findByClass(s *goquery.Selection, re *regexp.Regexp) *goquery.Selection {
	var found *goquery.Selection
	s.Find("*").EachWithBreak(func(i int, el *goquery.Selection) bool {
		class, _ := el.Attr("class")
		if re.MatchString(class) {
			found = el
			return false
		}
		return true
	})
	if found == nil {
		return new(goquery.Selection)
	}
	return found
}

func parsePrice(s string) int {
	digits := priceDigitsRE.FindAllString(s, -1)
	if len(digits) == 0 {
		return 0
	}
	v, _ := strconv.Atoi(strings.Join(digits, ""))
	return v
}
