package delivery

import (
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestSegment_ReturnsWholeTextWhenUnderLimit(t *testing.T) {
	out := Segment("short message", 100)
	if len(out) != 1 || out[0] != "short message" {
		t.Fatalf("unexpected segments: %v", out)
	}
}

func TestSegment_BreaksOnParagraphBoundaries(t *testing.T) {
	p1 := strings.Repeat("a", 40)
	p2 := strings.Repeat("b", 40)
	text := p1 + "\n\n" + p2
	out := Segment(text, 50)
	if len(out) != 2 {
		t.Fatalf("expected 2 segments, got %d: %v", len(out), out)
	}
	if out[0] != p1 || out[1] != p2 {
		t.Fatalf("expected paragraphs preserved intact, got %v", out)
	}
}

func TestSegment_HardSplitsOverLongParagraph(t *testing.T) {
	text := strings.Repeat("x", 130)
	out := Segment(text, 50)
	for _, seg := range out {
		if len(seg) > 50 {
			t.Fatalf("segment exceeds maxLen: %d", len(seg))
		}
	}
	var rejoined strings.Builder
	for _, seg := range out {
		rejoined.WriteString(seg)
	}
	if rejoined.String() != text {
		t.Fatalf("hard split lost content")
	}
}

func TestClassify_MapsRetryAfterToTransientFailure(t *testing.T) {
	err := &tgbotapi.Error{
		Code:                429,
		Message:             "Too Many Requests",
		ResponseParameters:  tgbotapi.ResponseParameters{RetryAfter: 5},
	}
	result, retryAfter, _ := classify(err)
	if result != ResultTransientFailure {
		t.Fatalf("expected transient failure, got %v", result)
	}
	if retryAfter != 5*time.Second {
		t.Fatalf("expected 5s retry-after, got %v", retryAfter)
	}
}

func TestClassify_MapsForbiddenToChatClosed(t *testing.T) {
	err := &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}
	result, _, _ := classify(err)
	if result != ResultChatClosed {
		t.Fatalf("expected chat_closed, got %v", result)
	}
}

func TestClassify_TreatsNotModifiedAsIdempotentOK(t *testing.T) {
	err := &tgbotapi.Error{Code: 400, Message: "Bad Request: message is not modified"}
	result, _, idempotent := classify(err)
	if result != ResultOK || !idempotent {
		t.Fatalf("expected idempotent ok, got %v idempotent=%v", result, idempotent)
	}
}

func TestInboundLimiter_EnforcesCooldown(t *testing.T) {
	l := NewInboundLimiter()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if v := l.Check(1, "/check", now); v != InboundAllow {
		t.Fatalf("expected first command allowed, got %v", v)
	}
	if v := l.Check(1, "/check", now.Add(500*time.Millisecond)); v != InboundCooldown {
		t.Fatalf("expected cooldown rejection, got %v", v)
	}
}

func TestInboundLimiter_EnforcesPerMinuteCap(t *testing.T) {
	l := NewInboundLimiter()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < MaxCommandsPerMinute; i++ {
		now = now.Add(3 * time.Second)
		if v := l.Check(1, "/check", now); v == InboundRateLimited {
			t.Fatalf("unexpected early rate-limit at i=%d", i)
		}
	}
	now = now.Add(3 * time.Second)
	if v := l.Check(1, "/check", now); v != InboundRateLimited {
		t.Fatalf("expected per-minute cap to trigger, got %v", v)
	}
}

func TestInboundLimiter_WarnsOnIdenticalRepeats(t *testing.T) {
	l := NewInboundLimiter()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var last InboundVerdict
	for i := 0; i < RepeatWarnThreshold; i++ {
		now = now.Add(3 * time.Second)
		last = l.Check(2, "/filters", now)
	}
	if last != InboundSoftWarning {
		t.Fatalf("expected soft warning at repeat threshold, got %v", last)
	}
}
