package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// pgx registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrNotFound is returned when no credential exists for the user id.
var ErrNotFound = errors.New("credential not found")

// Record is a stored credential.
type Record struct {
	UserID       string
	PasswordHash string
}

const findByUserIDQuery = `SELECT user_id, user_pw FROM users WHERE user_id = $1`

// Postgres reads credentials from the users(user_id, user_pw) table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Open connects to dsn with the pgx driver and pings it.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// FindByUserID returns the credential for userID, or ErrNotFound.
func (p *Postgres) FindByUserID(ctx context.Context, userID string) (Record, error) {
	var rec Record
	err := p.db.QueryRowContext(ctx, findByUserIDQuery, userID).Scan(&rec.UserID, &rec.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("query credential: %w", err)
	}
	return rec, nil
}

// Ping checks database reachability.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
