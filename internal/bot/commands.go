package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/yanizio/flatradar/internal/authz"
	"github.com/yanizio/flatradar/internal/filterstore"
)

func init() {
	RegisterCommand("/start", cmdStart)
	RegisterCommand("/check", cmdCheck)
	RegisterCommand("/start_monitoring", cmdStartMonitoring)
	RegisterCommand("/stop_monitoring", cmdStopMonitoring)
	RegisterCommand("/filters", cmdFilters)
	RegisterCommand("/mode", cmdMode)
	RegisterCommand("/admin_clear_sent", cmdAdminClearSent)
}

// cmdStart implements spec.md §6's "upsert subscriber; if no filter,
// enter setup; else show main menu." The conversational FSM for filter
// setup is explicitly out of scope (spec.md §1), so "enter setup" means
// handing the subscriber the one-shot field-update callback surface
// directly rather than walking them through a multi-turn wizard.
func cmdStart(ctx context.Context, b *Bot, chatID int64, _ string) error {
	if _, err := b.subscribers.GetOrCreate(ctx, chatID); err != nil {
		return err
	}

	f, err := b.filters.Get(ctx, chatID)
	if err != nil {
		return err
	}
	if f == nil {
		b.messenger.SendText(ctx, chatID, setupPrompt(chatID), nil)
		return nil
	}
	b.messenger.SendText(ctx, chatID, mainMenuText(*f), nil)
	return nil
}

func cmdCheck(ctx context.Context, b *Bot, chatID int64, _ string) error {
	f, err := b.filters.Get(ctx, chatID)
	if err != nil {
		return err
	}
	if f == nil {
		b.messenger.SendText(ctx, chatID, "Set a filter first with /filters.", nil)
		return nil
	}
	b.rechecker.TriggerOne(ctx, *f)
	b.messenger.SendText(ctx, chatID, "Checking now...", nil)
	return nil
}

func cmdStartMonitoring(ctx context.Context, b *Bot, chatID int64, _ string) error {
	f, err := b.filters.Get(ctx, chatID)
	if err != nil {
		return err
	}
	if f == nil {
		b.messenger.SendText(ctx, chatID, "Set a filter first with /filters.", nil)
		return nil
	}
	f.Active = true
	if err := b.filters.Set(ctx, *f); err != nil {
		return err
	}
	if err := b.subscribers.SetActive(ctx, chatID, true); err != nil {
		return err
	}
	b.messenger.SendText(ctx, chatID, "Monitoring resumed.", nil)
	return nil
}

func cmdStopMonitoring(ctx context.Context, b *Bot, chatID int64, _ string) error {
	if err := b.subscribers.SetActive(ctx, chatID, false); err != nil {
		return err
	}
	if err := b.filters.Deactivate(ctx, chatID); err != nil {
		return err
	}
	b.messenger.SendText(ctx, chatID, "Monitoring paused. Send /start_monitoring to resume.", nil)
	return nil
}

func cmdFilters(ctx context.Context, b *Bot, chatID int64, _ string) error {
	f, err := b.filters.Get(ctx, chatID)
	if err != nil {
		return err
	}
	if f == nil {
		b.messenger.SendText(ctx, chatID, setupPrompt(chatID), nil)
		return nil
	}
	b.messenger.SendText(ctx, chatID, filterSummary(*f), nil)
	return nil
}

// cmdMode toggles between brief and full delivery (spec.md §6's /mode,
// §4.1's DeliveryMode).
func cmdMode(ctx context.Context, b *Bot, chatID int64, args string) error {
	f, err := b.filters.Get(ctx, chatID)
	if err != nil {
		return err
	}
	if f == nil {
		b.messenger.SendText(ctx, chatID, "Set a filter first with /filters.", nil)
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(args)) {
	case "brief":
		f.DeliveryMode = filterstore.ModeBrief
	case "full":
		f.DeliveryMode = filterstore.ModeFull
	default:
		b.messenger.SendText(ctx, chatID, "Usage: /mode brief|full", nil)
		return nil
	}
	if err := b.filters.Set(ctx, *f); err != nil {
		return err
	}
	b.messenger.SendText(ctx, chatID, fmt.Sprintf("Delivery mode set to %s.", f.DeliveryMode), nil)
	return nil
}

// cmdAdminClearSent implements spec.md §6's admin-only SeenSet wipe.
func cmdAdminClearSent(ctx context.Context, b *Bot, chatID int64, args string) error {
	if !authz.IsAdmin(ctx, chatID, b.adminChatIDs) {
		return nil
	}
	target, ok := parseInt64(args)
	if !ok {
		b.messenger.SendText(ctx, chatID, "Usage: /admin_clear_sent <telegram_id>", nil)
		return nil
	}
	n, err := b.seen.WipeSubscriber(ctx, target)
	if err != nil {
		return err
	}
	b.messenger.SendText(ctx, chatID, fmt.Sprintf("Cleared %d seen-set rows for %d.", n, target), nil)
	return nil
}

func setupPrompt(chatID int64) string {
	return "Welcome to flatradar. Set your search with the filters:" +
		"<field>:<value> buttons, for example:\n" +
		"filters:" + strconv.FormatInt(chatID, 10) + ":city:minsk\n" +
		"filters:" + strconv.FormatInt(chatID, 10) + ":min_rooms:1\n" +
		"filters:" + strconv.FormatInt(chatID, 10) + ":max_rooms:3\n" +
		"filters:" + strconv.FormatInt(chatID, 10) + ":min_price:0\n" +
		"filters:" + strconv.FormatInt(chatID, 10) + ":max_price:50000\n" +
		"Then /start_monitoring."
}

func mainMenuText(f filterstore.Record) string {
	status := "paused"
	if f.Active {
		status = "active"
	}
	return fmt.Sprintf("Welcome back. Monitoring is %s.\n%s", status, filterSummary(f))
}

func filterSummary(f filterstore.Record) string {
	return fmt.Sprintf(
		"City: %s\nRooms: %d-%d\nPrice: $%d-$%d\nSeller: %s\nMode: %s",
		f.CitySlug, f.MinRooms, f.MaxRooms, f.MinPrice, f.MaxPrice, f.SellerType, f.DeliveryMode)
}
