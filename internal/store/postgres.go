package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

const schema = `CREATE TABLE IF NOT EXISTS saved_matches (
    name     TEXT PRIMARY KEY,
    state    TEXT NOT NULL,
    saved_at TIMESTAMPTZ NOT NULL
)`

// PostgresStore keeps saves in the saved_matches table, created on first use.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("postgres url is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	name, err := NormalizeName(rec.Name)
	if err != nil {
		return err
	}
	q := `INSERT INTO saved_matches (name, state, saved_at) VALUES ($1, $2, $3)
      ON CONFLICT (name) DO UPDATE SET
        state=EXCLUDED.state,
        saved_at=EXCLUDED.saved_at`
	_, err = s.db.ExecContext(ctx, q, name, rec.State, rec.SavedAt.UTC())
	return err
}

func (s *PostgresStore) Load(ctx context.Context, name string) (*Record, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	rec := Record{Name: name}
	row := s.db.QueryRowContext(ctx, `SELECT state, saved_at FROM saved_matches WHERE name = $1`, name)
	if err := row.Scan(&rec.State, &rec.SavedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, state, saved_at FROM saved_matches ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Name, &rec.State, &rec.SavedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, name string) error {
	name, err := NormalizeName(name)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_matches WHERE name = $1`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM saved_matches`)
	return err
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
