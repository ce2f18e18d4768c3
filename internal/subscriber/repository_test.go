package subscriber

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func TestGetOrCreate_ReturnsExistingRow(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT chat_id, active, created_at, updated_at FROM subscriber")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"chat_id", "active", "created_at", "updated_at"}).
			AddRow(int64(42), true, now, now))

	rec, err := store.GetOrCreate(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if rec.ChatID != 42 || !rec.Active {
		t.Fatalf("unexpected record: %#v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestGetOrCreate_InsertsOnFirstStart(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	selectRe := regexp.QuoteMeta("SELECT chat_id, active, created_at, updated_at FROM subscriber")
	mock.ExpectQuery(selectRe).
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO subscriber")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(selectRe).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"chat_id", "active", "created_at", "updated_at"}).
			AddRow(int64(7), false, now, now))

	rec, err := store.GetOrCreate(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if rec.ChatID != 7 || rec.Active {
		t.Fatalf("expected fresh inactive row, got %#v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestSetActive_UpdatesFlag(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE subscriber SET active")).
		WithArgs(false, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.SetActive(context.Background(), 42, false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}
