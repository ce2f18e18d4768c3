package bot

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/yanizio/flatradar/internal/cityresolver"
	"github.com/yanizio/flatradar/internal/delivery"
	"github.com/yanizio/flatradar/internal/filterstore"
	"github.com/yanizio/flatradar/internal/metrics"
	"github.com/yanizio/flatradar/internal/seenset"
	"github.com/yanizio/flatradar/internal/shortlink"
	"github.com/yanizio/flatradar/internal/subscriber"
)

// Rechecker is the scheduler surface the bot drives for an on-demand
// /check: a single-subscriber run bypassing the periodic tick entirely.
// Kept as a narrow interface so this package doesn't need the concrete
// internal/scheduler.Scheduler type in tests.
type Rechecker interface {
	TriggerOne(ctx context.Context, f filterstore.Record)
}

// Bot wires every collaborator the command and callback handlers need.
type Bot struct {
	log *log.Logger

	subscribers *subscriber.Store
	filters     *filterstore.Store
	seen        *seenset.SeenSet
	shortlinks  *shortlink.Store
	resolver    cityresolver.Resolver
	messenger   *delivery.Messenger
	rechecker   Rechecker
	inbound     *delivery.InboundLimiter
	variants    *VariantStore

	adminChatIDs []int64
}

// New builds a Bot from its collaborators.
func New(
	lg *log.Logger,
	subscribers *subscriber.Store,
	filters *filterstore.Store,
	seen *seenset.SeenSet,
	shortlinks *shortlink.Store,
	resolver cityresolver.Resolver,
	messenger *delivery.Messenger,
	rechecker Rechecker,
	variants *VariantStore,
	adminChatIDs []int64,
) *Bot {
	return &Bot{
		log:          lg,
		subscribers:  subscribers,
		filters:      filters,
		seen:         seen,
		shortlinks:   shortlinks,
		resolver:     resolver,
		messenger:    messenger,
		rechecker:    rechecker,
		inbound:      delivery.NewInboundLimiter(),
		variants:     variants,
		adminChatIDs: adminChatIDs,
	}
}

// HandleUpdate is the single entry point cmd/bot/main.go's polling or
// webhook loop calls for every inbound update. It never returns an
// error: every failure mode is logged, since there is no caller left to
// hand it back to.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	verb := "/" + msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())

	switch b.inbound.Check(chatID, verb, time.Now()) {
	case delivery.InboundCooldown, delivery.InboundRateLimited:
		metrics.InboundThrottledTotal.WithLabelValues(verb).Inc()
		return
	case delivery.InboundSoftWarning:
		b.messenger.SendText(ctx, chatID, "You're sending that a lot -- please slow down.", nil)
	}

	h := lookupCommand(verb)
	if h == nil {
		b.messenger.SendText(ctx, chatID, "Unrecognized command.", nil)
		return
	}
	if err := h(ctx, b, chatID, args); err != nil && b.log != nil {
		b.log.Printf("bot: command %s (chat %d): %v", verb, chatID, err)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	chatID := cq.Message.Chat.ID
	msgID := cq.Message.MessageID

	if err := b.messenger.AnswerCallback(cq.ID); err != nil && b.log != nil {
		b.log.Printf("bot: answer callback %s: %v", cq.ID, err)
	}

	switch b.inbound.Check(chatID, "callback:"+cq.Data, time.Now()) {
	case delivery.InboundCooldown, delivery.InboundRateLimited:
		return
	}

	h, rest := lookupCallback(cq.Data)
	if h == nil {
		if b.log != nil {
			b.log.Printf("bot: no callback handler for %q", cq.Data)
		}
		return
	}
	if err := h(ctx, b, chatID, msgID, rest); err != nil && b.log != nil {
		b.log.Printf("bot: callback %q (chat %d): %v", cq.Data, chatID, err)
	}
}

// parseInt64 parses a callback or command argument as a subscriber/chat
// id, returning false on malformed input instead of panicking.
func parseInt64(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n, err == nil
}
