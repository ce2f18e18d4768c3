package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/yanizio/flatradar/internal/dispatcher"
	"github.com/yanizio/flatradar/internal/filterstore"
	"github.com/yanizio/flatradar/internal/scoring"
)

func init() {
	RegisterCallback("filters", cbFilters)
	RegisterCallback("show_house", cbShowHouse)
	RegisterCallback("open_ad", cbOpenAd)
	RegisterCallback("save_ad", cbSaveAd)
	RegisterCallback("mute_ad", cbMuteAd)
	RegisterCallback("select_city", cbSelectCity)
}

// cbFilters implements spec.md §6's "filters:<uid>:<field>:<value>"
// one-shot field update.
func cbFilters(ctx context.Context, b *Bot, chatID int64, _ int, rest string) error {
	parts := strings.SplitN(rest, ":", 3)
	if len(parts) != 3 {
		return fmt.Errorf("malformed filters callback %q", rest)
	}
	uid, ok := parseInt64(parts[0])
	if !ok {
		return fmt.Errorf("malformed subscriber id %q", parts[0])
	}
	field, value := parts[1], parts[2]

	f, err := b.filters.Get(ctx, uid)
	if err != nil {
		return err
	}
	rec := defaultFilterRecord(uid)
	if f != nil {
		rec = *f
	}
	if err := applyFilterField(&rec, field, value); err != nil {
		b.messenger.SendText(ctx, chatID, err.Error(), nil)
		return nil
	}

	if err := filterstore.Validate(ctx, rec, b.resolver); err != nil {
		b.messenger.SendText(ctx, chatID, "Invalid filter: "+err.Error(), nil)
		return nil
	}
	if err := b.filters.Set(ctx, rec); err != nil {
		return err
	}
	b.messenger.SendText(ctx, chatID, filterSummary(rec), nil)
	return nil
}

func defaultFilterRecord(uid int64) filterstore.Record {
	return filterstore.Record{
		SubscriberID: uid,
		MinRooms:     1,
		MaxRooms:     filterstore.MaxRoomsUnbounded,
		SellerType:   filterstore.SellerAll,
		DeliveryMode: filterstore.ModeBrief,
	}
}

func applyFilterField(rec *filterstore.Record, field, value string) error {
	switch field {
	case "city":
		rec.CitySlug = value
	case "min_rooms":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("min_rooms must be a number")
		}
		rec.MinRooms = n
	case "max_rooms":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("max_rooms must be a number")
		}
		rec.MaxRooms = n
	case "min_price":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("min_price must be a number")
		}
		rec.MinPrice = n
	case "max_price":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("max_price must be a number")
		}
		rec.MaxPrice = n
	case "seller_type":
		rec.SellerType = filterstore.SellerType(value)
	case "mode":
		rec.DeliveryMode = filterstore.DeliveryMode(value)
	default:
		return fmt.Errorf("unknown filter field %q", field)
	}
	return nil
}

// cbShowHouse implements spec.md §6's "show_house|<hash>|<offset>"
// building-group pagination. <hash> is the VariantStore token
// internal/dispatcher.RenderBrief embedded when it rendered the
// summary.
func cbShowHouse(ctx context.Context, b *Bot, chatID int64, messageID int, rest string) error {
	parts := strings.SplitN(rest, "|", 2)
	if len(parts) != 2 {
		return fmt.Errorf("malformed show_house callback %q", rest)
	}
	token := parts[0]
	offset, err := strconv.Atoi(parts[1])
	if err != nil {
		return fmt.Errorf("malformed offset %q", parts[1])
	}

	listings, ok := b.variants.Get(token)
	if !ok {
		b.messenger.SendText(ctx, chatID, "This list has expired.", nil)
		return nil
	}

	group := scoring.Group{Listings: listings}
	page := group.Variants(offset)
	if len(page) == 0 {
		b.messenger.SendText(ctx, chatID, "No more listings in this building.", nil)
		return nil
	}

	var sb strings.Builder
	for _, l := range page {
		sb.WriteString(dispatcher.RenderListing(l))
		sb.WriteString("\n\n")
	}
	b.messenger.SendText(ctx, chatID, strings.TrimSpace(sb.String()), nil)
	return nil
}

// cbOpenAd implements spec.md §6's "open_ad:<code>" short-code resolve.
func cbOpenAd(ctx context.Context, b *Bot, chatID int64, _ int, code string) error {
	url, ok, err := b.shortlinks.Resolve(ctx, code)
	if err != nil {
		return err
	}
	if !ok {
		b.messenger.SendText(ctx, chatID, "That listing link has expired.", nil)
		return nil
	}
	b.messenger.SendText(ctx, chatID, url, nil)
	return nil
}

// cbSaveAd and cbMuteAd are stubs: spec.md §6 lists them as "stubs for
// future persistence", with no storage schema named for either.
func cbSaveAd(ctx context.Context, b *Bot, chatID int64, _ int, _ string) error {
	b.messenger.SendText(ctx, chatID, "Saved.", nil)
	return nil
}

func cbMuteAd(ctx context.Context, b *Bot, chatID int64, _ int, _ string) error {
	b.messenger.SendText(ctx, chatID, "Muted.", nil)
	return nil
}

// cbSelectCity implements spec.md §6's "select_city|<code>" free-text
// city disambiguation: code resolves to a candidate slug the setup flow
// offered, via the same short-code store open_ad uses.
func cbSelectCity(ctx context.Context, b *Bot, chatID int64, _ int, code string) error {
	slug, ok, err := b.shortlinks.Resolve(ctx, code)
	if err != nil {
		return err
	}
	if !ok {
		b.messenger.SendText(ctx, chatID, "That city choice has expired, please try again.", nil)
		return nil
	}
	if _, ok, err := b.resolver.Resolve(ctx, slug); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("resolved slug %q no longer resolves", slug)
	}

	f, err := b.filters.Get(ctx, chatID)
	if err != nil {
		return err
	}
	rec := defaultFilterRecord(chatID)
	if f != nil {
		rec = *f
	}
	rec.CitySlug = slug
	if err := b.filters.Set(ctx, rec); err != nil {
		return err
	}
	b.messenger.SendText(ctx, chatID, "City set to "+slug+".", nil)
	return nil
}
