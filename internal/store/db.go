package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"sbt-engine/internal/observability"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver for sqlx
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
)

// Store is the sole source of truth for templates, issued tokens and images.
// Every successful primary write is mirrored into a flat key-value namespace;
// when a primary read fails the store rehydrates from the mirror and marks
// itself degraded instead of failing the caller.
type Store struct {
	db       *sqlx.DB
	logger   *observability.Logger
	degraded atomic.Bool
}

func New(path string, logger *observability.Logger) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	// SQLite allows a single writer; serialize all access through one
	// connection so concurrent upserts queue instead of erroring.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// Degraded reports whether any read has been served from the mirror
// namespace since startup.
func (s *Store) Degraded() bool {
	return s.degraded.Load()
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply ledger schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
