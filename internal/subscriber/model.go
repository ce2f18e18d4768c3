// Package subscriber is the chat-identity table (spec.md §3's Subscriber):
// created on first /start, updated by the bot gateway, never destroyed --
// only the active flag moves.
//
// Repository shape grounded on the teacher's internal/site/{repository,model}.go.
package subscriber

import "time"

// Record mirrors one row of the `subscriber` table.
type Record struct {
	ChatID    int64     `db:"chat_id"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
