package bot

import (
	"context"
	"testing"
)

func TestRegisterAndLookupCommand(t *testing.T) {
	RegisterCommand("/__test_cmd", func(ctx context.Context, b *Bot, chatID int64, args string) error {
		return nil
	})
	if lookupCommand("/__test_cmd") == nil {
		t.Fatalf("expected registered command to be found")
	}
	if lookupCommand("/__nonexistent") != nil {
		t.Fatalf("expected unregistered command to be nil")
	}
}

func TestLookupCallback_SplitsOnColon(t *testing.T) {
	RegisterCallback("__test_colon", func(ctx context.Context, b *Bot, chatID int64, messageID int, rest string) error {
		return nil
	})
	h, rest := lookupCallback("__test_colon:abc:def")
	if h == nil {
		t.Fatalf("expected handler to be found")
	}
	if rest != "abc:def" {
		t.Fatalf("expected rest %q, got %q", "abc:def", rest)
	}
}

func TestLookupCallback_SplitsOnPipe(t *testing.T) {
	RegisterCallback("__test_pipe", func(ctx context.Context, b *Bot, chatID int64, messageID int, rest string) error {
		return nil
	})
	h, rest := lookupCallback("__test_pipe|xyz|1")
	if h == nil {
		t.Fatalf("expected handler to be found")
	}
	if rest != "xyz|1" {
		t.Fatalf("expected rest %q, got %q", "xyz|1", rest)
	}
}

func TestLookupCallback_UnknownPrefixReturnsNil(t *testing.T) {
	h, _ := lookupCallback("__no_such_prefix:abc")
	if h != nil {
		t.Fatalf("expected nil handler for unregistered prefix")
	}
}

func TestParseInt64(t *testing.T) {
	n, ok := parseInt64(" 42 ")
	if !ok || n != 42 {
		t.Fatalf("expected 42, got %d ok=%v", n, ok)
	}
	if _, ok := parseInt64("not-a-number"); ok {
		t.Fatalf("expected malformed input to be rejected")
	}
}
