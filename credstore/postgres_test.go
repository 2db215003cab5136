package credstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

const findQueryPattern = `(?s)^SELECT\s+user_id,\s*user_pw\s+FROM\s+users\s+WHERE\s+user_id\s*=\s*\$1\s*$`

func newPostgresWithMock(t *testing.T) (*Postgres, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgres(db), mock, db
}

func TestFindByUserID_Found(t *testing.T) {
	store, mock, db := newPostgresWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"user_id", "user_pw"}).AddRow("alice", "$2a$10$hash")
	mock.ExpectQuery(findQueryPattern).WithArgs("alice").WillReturnRows(rows)

	rec, err := store.FindByUserID(context.Background(), "alice")
	if err != nil {
		t.Fatalf("FindByUserID error: %v", err)
	}
	if rec.UserID != "alice" || rec.PasswordHash != "$2a$10$hash" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindByUserID_NotFound(t *testing.T) {
	store, mock, db := newPostgresWithMock(t)
	defer db.Close()

	mock.ExpectQuery(findQueryPattern).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := store.FindByUserID(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindByUserID_EmptyResultIsNotFound(t *testing.T) {
	store, mock, db := newPostgresWithMock(t)
	defer db.Close()

	mock.ExpectQuery(findQueryPattern).WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "user_pw"}))

	_, err := store.FindByUserID(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindByUserID_DBError(t *testing.T) {
	store, mock, db := newPostgresWithMock(t)
	defer db.Close()

	dbErr := errors.New("db down")
	mock.ExpectQuery(findQueryPattern).WithArgs("alice").WillReturnError(dbErr)

	_, err := store.FindByUserID(context.Background(), "alice")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if !errors.Is(err, dbErr) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.FindByUserID(ctx, "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	m.Put("alice", "hash")
	rec, err := m.FindByUserID(ctx, "alice")
	if err != nil || rec.PasswordHash != "hash" {
		t.Fatalf("unexpected record %+v err=%v", rec, err)
	}

	m.Remove("alice")
	if _, err := m.FindByUserID(ctx, "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := m.FindByUserID(cancelled, "alice"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
