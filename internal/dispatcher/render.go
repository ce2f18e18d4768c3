package dispatcher

import (
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/yanizio/flatradar/internal/listing"
	"github.com/yanizio/flatradar/internal/scoring"
)

// RenderListing formats one full-mode listing message. Delivery is
// oblivious to content (spec.md §4.10), so HTML escaping happens here,
// matching the bot's ParseMode: ModeHTML.
func RenderListing(l listing.Listing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(l.Title))
	if l.Rooms > 0 {
		fmt.Fprintf(&b, "%d-room, ", l.Rooms)
	}
	if l.Area > 0 {
		fmt.Fprintf(&b, "%.0f m²\n", l.Area)
	} else {
		b.WriteString("\n")
	}
	if l.Price > 0 {
		fmt.Fprintf(&b, "%d\n", l.Price)
	} else {
		b.WriteString("price negotiable\n")
	}
	fmt.Fprintf(&b, "%s\n", html.EscapeString(l.Address))
	fmt.Fprintf(&b, "<a href=\"%s\">%s</a>", html.EscapeString(l.URL), strings.ToUpper(string(l.Source)))
	return b.String()
}

// RenderBrief formats spec.md §4.8's top-N building-group summary and
// its "show variants" inline keyboard. variants may be nil (e.g. during
// tests), in which case no "show variants" buttons are attached.
func RenderBrief(groups []*scoring.Group, variants VariantStore) (string, *tgbotapi.InlineKeyboardMarkup) {
	var b strings.Builder
	if len(groups) == 0 {
		return "No matching listings this round.", nil
	}
	fmt.Fprintf(&b, "<b>%d building groups match your filters:</b>\n\n", len(groups))

	var rows [][]tgbotapi.InlineKeyboardButton
	for i, g := range groups {
		fmt.Fprintf(&b, "%d. %s — %d listing(s)\n", i+1, html.EscapeString(g.NormalizedAddress), g.Count())
		if price := g.MedianPrice(); price > 0 {
			fmt.Fprintf(&b, "   median price: %d", price)
			if g.HousePPM > 0 {
				fmt.Fprintf(&b, " (%.0f/m²)", g.HousePPM)
			}
			b.WriteString("\n")
		}

		if variants != nil && g.Count() > 1 {
			token := variants.Put(g.Listings)
			label := fmt.Sprintf("Show variants: %s", g.NormalizedAddress)
			rows = append(rows, []tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("show_house|%s|0", token)),
			})
		}
	}

	if len(rows) == 0 {
		return b.String(), nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return b.String(), &markup
}
