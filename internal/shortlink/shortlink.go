// Package shortlink keeps callback_data payloads under Telegram's 64-byte
// cap (spec.md §6: "long payloads are stored server-side and referenced
// by a short code"). open_ad:<code> and select_city:<code> both resolve
// through here.
//
// Repository shape grounded on the teacher's internal/site/repository.go
// (typed Record, one query per function).
package shortlink

import (
	"context"
	"crypto/rand"
	"database/sql"
	"math/big"
	"time"

	"github.com/jmoiron/sqlx"
)

// CodeLength is the base62 code length (spec.md §6: "short codes well
// under the 64-byte cap" -- 12 chars leaves ample room for a callback
// verb prefix like "open_ad:").
const CodeLength = 12

const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Record mirrors one row of the `shortlink` table.
type Record struct {
	Code      string    `db:"code"`
	Payload   string    `db:"payload"`
	CreatedAt time.Time `db:"created_at"`
}

// Store wraps the shared cache DB handle.
type Store struct {
	db *sqlx.DB
}

// New wraps an already-open DB handle.
func New(db *sqlx.DB) *Store { return &Store{db: db} }

// Put stores payload (typically a listing URL) and returns its short
// code.
func (s *Store) Put(ctx context.Context, payload string) (string, error) {
	code, err := newCode()
	if err != nil {
		return "", err
	}
	const q = `INSERT INTO shortlink (code, payload, created_at) VALUES (?, ?, NOW())`
	if _, err := s.db.ExecContext(ctx, q, code, payload); err != nil {
		return "", err
	}
	return code, nil
}

// Resolve returns the payload behind code, or ("", false, nil) if it
// doesn't exist (e.g. expired, or a stale button from a previous run).
func (s *Store) Resolve(ctx context.Context, code string) (string, bool, error) {
	const q = `SELECT payload FROM shortlink WHERE code = ?`
	var payload string
	err := s.db.GetContext(ctx, &payload, q, code)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return payload, true, nil
}

func newCode() (string, error) {
	buf := make([]byte, CodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(base62Alphabet))))
		if err != nil {
			return "", err
		}
		buf[i] = base62Alphabet[n.Int64()]
	}
	return string(buf), nil
}
