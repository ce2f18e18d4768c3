// Package bot is the chat gateway: it turns incoming Telegram updates
// into calls against internal/subscriber, internal/filterstore,
// internal/shortlink, internal/scheduler, and internal/delivery, and
// renders their results back out through the Messenger.
//
// Command and callback dispatch both use the teacher's
// internal/module/registry.go shape -- a map guarded by a mutex,
// populated from init() in each handler's own file -- instantiated
// twice, once per verb kind, since flatradar has two independent
// vocabularies (slash commands and callback_data prefixes) instead of
// the teacher's single URL-path space.
package bot

import (
	"context"
	"strings"
	"sync"
)

// CommandHandler answers one slash command. args is the command line
// with the verb and a single leading space removed (empty if none).
type CommandHandler func(ctx context.Context, b *Bot, chatID int64, args string) error

// CallbackHandler answers one callback_data prefix. rest is everything
// after the prefix and its separator.
type CallbackHandler func(ctx context.Context, b *Bot, chatID int64, messageID int, rest string) error

var (
	cmdMu    sync.RWMutex
	commands = map[string]CommandHandler{}

	cbMu      sync.RWMutex
	callbacks = map[string]CallbackHandler{}
)

// RegisterCommand is called from an init() function, one per verb.
func RegisterCommand(verb string, h CommandHandler) {
	cmdMu.Lock()
	defer cmdMu.Unlock()
	commands[verb] = h
}

// lookupCommand returns the handler for verb, or nil.
func lookupCommand(verb string) CommandHandler {
	cmdMu.RLock()
	defer cmdMu.RUnlock()
	return commands[verb]
}

// RegisterCallback is called from an init() function, one per prefix
// (spec.md §6's "filters", "show_house", "open_ad", "save_ad", "mute_ad",
// "select_city").
func RegisterCallback(prefix string, h CallbackHandler) {
	cbMu.Lock()
	defer cbMu.Unlock()
	callbacks[prefix] = h
}

// lookupCallback splits data on its first ':' or '|' (the spec mixes
// both separators across callback verbs) and returns the matching
// handler plus everything after the separator.
func lookupCallback(data string) (CallbackHandler, string) {
	idx := strings.IndexAny(data, ":|")
	if idx < 0 {
		cbMu.RLock()
		h := callbacks[data]
		cbMu.RUnlock()
		return h, ""
	}
	prefix, rest := data[:idx], data[idx+1:]
	cbMu.RLock()
	h := callbacks[prefix]
	cbMu.RUnlock()
	return h, rest
}
