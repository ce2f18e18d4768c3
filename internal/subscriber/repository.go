package subscriber

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// Store wraps the shared cache DB handle.
type Store struct {
	db *sqlx.DB
}

// New wraps an already-open DB handle.
func New(db *sqlx.DB) *Store { return &Store{db: db} }

// GetOrCreate returns chatID's subscriber row, inserting a fresh
// (active=false, no filter yet) row on first /start.
func (s *Store) GetOrCreate(ctx context.Context, chatID int64) (Record, error) {
	const selectQ = `SELECT chat_id, active, created_at, updated_at FROM subscriber WHERE chat_id = ?`
	var rec Record
	err := s.db.GetContext(ctx, &rec, selectQ, chatID)
	if err == nil {
		return rec, nil
	}
	if err != sql.ErrNoRows {
		return Record{}, err
	}

	const insertQ = `
		INSERT INTO subscriber (chat_id, active, created_at, updated_at)
		VALUES (?, FALSE, NOW(), NOW())`
	if _, err := s.db.ExecContext(ctx, insertQ, chatID); err != nil {
		return Record{}, err
	}
	if err := s.db.GetContext(ctx, &rec, selectQ, chatID); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// SetActive flips a subscriber's active flag (start_monitoring,
// stop_monitoring, and the dispatcher's "chat closed" deactivation all
// go through here).
func (s *Store) SetActive(ctx context.Context, chatID int64, active bool) error {
	const q = `UPDATE subscriber SET active = ?, updated_at = NOW() WHERE chat_id = ?`
	_, err := s.db.ExecContext(ctx, q, active, chatID)
	return err
}

// AllActive lists every subscriber with active = TRUE, for the
// scheduler's per-tick sweep driver.
func (s *Store) AllActive(ctx context.Context) ([]Record, error) {
	const q = `SELECT chat_id, active, created_at, updated_at FROM subscriber WHERE active = TRUE`
	var rows []Record
	if err := s.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}
