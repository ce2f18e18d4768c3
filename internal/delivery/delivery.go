// Package delivery is the Rate-Limited Messenger (spec.md §4.10): a
// single outbound worker per chat identity that enforces a per-chat
// cooldown, a global tokens-per-minute cap, retry-after handling, and
// paragraph-boundary segmentation for over-length messages. The worker
// is oblivious to content -- callers own Markdown/HTML escaping.
//
// Cooldown bookkeeping adapts the teacher's internal/tenant/cache.go
// sync.Map + atomic.Int64 "lastSeen" pattern into "lastSent" per chat.
// The Telegram client itself is github.com/go-telegram-bot-api/telegram-bot-api/v5,
// the library other_examples' govega wires for the same purpose; the
// retry/backoff shape (RetryAfter sleep-then-retry, bounded retries,
// "chat closed" as a terminal non-retry outcome) is grounded on
// original_source/bot/services/telegram_api.py's safe_send_message.
package delivery

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/yanizio/flatradar/internal/metrics"
)

// Result is the outcome of one send/edit attempt (spec.md §4.10's
// ok | chat_closed | transient_failure contract).
type Result int

const (
	ResultOK Result = iota
	ResultChatClosed
	ResultTransientFailure
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultChatClosed:
		return "chat_closed"
	default:
		return "transient_failure"
	}
}

const (
	// PerChatCooldown is the minimum spacing between two sends to the
	// same chat (spec.md §4.10).
	PerChatCooldown = 1 * time.Second

	// MaxRetries bounds retry-after and transient-failure retries.
	MaxRetries = 3

	// MaxMessageLength is Telegram's platform text limit; messages
	// longer than this are segmented on paragraph boundaries.
	MaxMessageLength = 4096

	// GlobalTokensPerMinute caps the bot identity's aggregate outbound
	// rate, independent of per-chat cooldowns.
	GlobalTokensPerMinute = 28 // 28 messages per minute, far below Telegram's ~30 msg/s global cap
)

// Messenger wraps one Telegram bot identity's outbound traffic.
type Messenger struct {
	api *tgbotapi.BotAPI
	log *log.Logger

	lastSent sync.Map // chat_id (int64) -> unixNano (int64), atomic-updated
	global   *rate.Limiter
}

// New wires a Messenger around an already-authenticated bot client.
func New(api *tgbotapi.BotAPI, lg *log.Logger) *Messenger {
	return &Messenger{
		api:    api,
		log:    lg,
		global: rate.NewLimiter(rate.Limit(GlobalTokensPerMinute)/60, GlobalTokensPerMinute),
	}
}

// waitTurn blocks until both the global limiter and this chat's cooldown
// allow another send, recording the wait in DeliveryRateWaitSeconds.
func (m *Messenger) waitTurn(ctx context.Context, chatID int64) error {
	start := time.Now()
	if err := m.global.Wait(ctx); err != nil {
		return err
	}

	for {
		v, _ := m.lastSent.LoadOrStore(chatID, int64(0))
		last := v.(int64)
		elapsed := time.Duration(time.Now().UnixNano() - last)
		if elapsed >= PerChatCooldown {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(PerChatCooldown - elapsed):
		}
	}
	metrics.DeliveryRateWaitSeconds.Observe(time.Since(start).Seconds())
	return nil
}

func (m *Messenger) markSent(chatID int64) {
	m.lastSent.Store(chatID, time.Now().UnixNano())
}

// classify maps a tgbotapi error to one of the three outcomes spec.md
// §4.10 defines, and extracts a RetryAfter duration when Telegram
// supplied one.
func classify(err error) (result Result, retryAfter time.Duration, idempotentOK bool) {
	if err == nil {
		return ResultOK, 0, false
	}

	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.RetryAfter > 0:
			return ResultTransientFailure, time.Duration(apiErr.RetryAfter) * time.Second, false
		case apiErr.Code == 403:
			return ResultChatClosed, 0, false
		case strings.Contains(strings.ToLower(apiErr.Message), "message is not modified"),
			strings.Contains(strings.ToLower(apiErr.Message), "message to edit not found"):
			return ResultOK, 0, true
		case apiErr.Code >= 500:
			return ResultTransientFailure, 0, false
		}
		return ResultTransientFailure, 0, false
	}
	return ResultTransientFailure, 0, false
}

// SendText implements spec.md §4.10's send_text, segmenting the message
// on paragraph boundaries first if it exceeds MaxMessageLength.
func (m *Messenger) SendText(ctx context.Context, chatID int64, text string, buttons *tgbotapi.InlineKeyboardMarkup) Result {
	segments := Segment(text, MaxMessageLength)
	var last Result = ResultOK
	for i, seg := range segments {
		msg := tgbotapi.NewMessage(chatID, seg)
		msg.ParseMode = tgbotapi.ModeHTML
		if i == len(segments)-1 && buttons != nil {
			msg.ReplyMarkup = *buttons
		}
		last = m.send(ctx, chatID, func() error {
			_, err := m.api.Send(msg)
			return err
		})
		if last != ResultOK {
			return last
		}
	}
	return last
}

// SendMediaGroup implements spec.md §4.10's send_media_group.
func (m *Messenger) SendMediaGroup(ctx context.Context, chatID int64, photoURLs []string) Result {
	if len(photoURLs) == 0 {
		return ResultOK
	}
	media := make([]interface{}, 0, len(photoURLs))
	for _, u := range photoURLs {
		media = append(media, tgbotapi.NewInputMediaPhoto(tgbotapi.FileURL(u)))
	}
	cfg := tgbotapi.NewMediaGroup(chatID, media)
	return m.send(ctx, chatID, func() error {
		_, err := m.api.SendMediaGroup(cfg)
		return err
	})
}

// EditText implements spec.md §4.10's edit_text; "message not modified"
// and "message not found" are treated as successful no-ops (idempotent).
func (m *Messenger) EditText(ctx context.Context, chatID int64, msgID int, text string, buttons *tgbotapi.InlineKeyboardMarkup) Result {
	edit := tgbotapi.NewEditMessageText(chatID, msgID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	if buttons != nil {
		edit.ReplyMarkup = buttons
	}
	return m.send(ctx, chatID, func() error {
		_, err := m.api.Send(edit)
		return err
	})
}

// AnswerCallback acknowledges a callback query so Telegram clears the
// button's loading spinner. It bypasses the per-chat cooldown and
// global limiter entirely: acknowledgement is a distinct, much cheaper
// API call than a message send and Telegram expects it promptly.
func (m *Messenger) AnswerCallback(callbackID string) error {
	_, err := m.api.Request(tgbotapi.NewCallback(callbackID, ""))
	return err
}

// send runs op with the cooldown/global wait applied, retrying up to
// MaxRetries times on retry-after or transient failure.
func (m *Messenger) send(ctx context.Context, chatID int64, op func() error) Result {
	var result Result
	for attempt := 1; attempt <= MaxRetries; attempt++ {
		if err := m.waitTurn(ctx, chatID); err != nil {
			metrics.DeliverySendTotal.WithLabelValues(ResultTransientFailure.String()).Inc()
			return ResultTransientFailure
		}

		err := op()
		m.markSent(chatID)

		var retryAfter time.Duration
		var idempotentOK bool
		result, retryAfter, idempotentOK = classify(err)
		if idempotentOK {
			result = ResultOK
		}

		if result == ResultOK || result == ResultChatClosed {
			break
		}
		if retryAfter > 0 && attempt < MaxRetries {
			if m.log != nil {
				m.log.Printf("delivery: chat %d retry-after %v (attempt %d/%d)", chatID, retryAfter, attempt, MaxRetries)
			}
			select {
			case <-ctx.Done():
				result = ResultTransientFailure
				attempt = MaxRetries
			case <-time.After(retryAfter):
			}
			continue
		}
		if attempt >= MaxRetries {
			break
		}
	}

	metrics.DeliverySendTotal.WithLabelValues(result.String()).Inc()
	if m.log != nil && result != ResultOK {
		m.log.Printf("delivery: chat %d send outcome %s", chatID, result)
	}
	return result
}
