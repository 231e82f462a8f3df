package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"shortsflow/internal/model"
	"shortsflow/internal/workflow"
)

//go:embed schema.sql
var schema string

var _ workflow.Store = (*Store)(nil)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = model.ErrNotFound

// Store persists channels, ideas, videos and workflow logs in Postgres.
// Every method commits on its own.
type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func Open(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database url is not set")
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	slog.Debug("Database connection established")
	return New(db), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates missing tables. It does not migrate existing ones.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func notFound(err error, kind string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return err
}

func expectRow(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return nil
}

// keywordArray maps a nil keyword set to an empty array, since a nil
// pq.StringArray is sent as NULL.
func keywordArray(k pq.StringArray) pq.StringArray {
	if k == nil {
		return pq.StringArray{}
	}
	return k
}
