// Package store keeps challenge sessions in PostgreSQL so that several server
// replicas can share them.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tileCaptcha/internal/grid"
	"tileCaptcha/internal/session"
)

// Store implements session.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ session.Store = (*Store)(nil)

// New connects to the database and ensures the schema exists.
func New(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Auto-migration
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS captcha_sessions (
			id TEXT PRIMARY KEY,
			correct INT[] NOT NULL,
			source TEXT NOT NULL,
			artifacts TEXT[] NOT NULL DEFAULT '{}',
			issued_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS captcha_sessions_expires_at_idx ON captcha_sessions (expires_at);
	`
	_, err := pool.Exec(ctx, query)
	return err
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Put inserts a new session row.
func (s *Store) Put(ctx context.Context, e session.Entry) error {
	correct := make([]int32, len(e.Correct))
	for i, c := range e.Correct {
		correct[i] = int32(c)
	}
	artifacts := e.Artifacts
	if artifacts == nil {
		artifacts = []string{}
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO captcha_sessions (id, correct, source, artifacts, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, e.ID, correct, e.Source, artifacts, e.IssuedAt, e.ExpiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return session.ErrExists
	}
	return nil
}

// Consume deletes the row and returns it in one statement, so two concurrent
// verifications of the same session can never both succeed.
func (s *Store) Consume(ctx context.Context, id string, now time.Time) (session.Entry, error) {
	row := s.pool.QueryRow(ctx, `
		DELETE FROM captcha_sessions WHERE id = $1
		RETURNING id, correct, source, artifacts, issued_at, expires_at
	`, id)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return session.Entry{}, session.ErrNotFound
	}
	if err != nil {
		return session.Entry{}, err
	}
	if e.Expired(now) {
		return e, session.ErrExpired
	}
	return e, nil
}

// Sweep deletes every session expired at now and returns them.
func (s *Store) Sweep(ctx context.Context, now time.Time) ([]session.Entry, error) {
	rows, err := s.pool.Query(ctx, `
		DELETE FROM captcha_sessions WHERE expires_at <= $1
		RETURNING id, correct, source, artifacts, issued_at, expires_at
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []session.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Reset drops the sessions table. Useful in development to force a schema
// refresh without migrations.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DROP TABLE IF EXISTS captcha_sessions CASCADE`)
	return err
}

func scanEntry(row pgx.Row) (session.Entry, error) {
	var (
		e       session.Entry
		correct []int32
	)
	if err := row.Scan(&e.ID, &correct, &e.Source, &e.Artifacts, &e.IssuedAt, &e.ExpiresAt); err != nil {
		return session.Entry{}, err
	}
	ints := make([]int, len(correct))
	for i, c := range correct {
		ints[i] = int(c)
	}
	e.Correct = grid.NewCorrectSet(ints...)
	return e, nil
}
