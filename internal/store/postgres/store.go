package postgres

import (
	"context"
	_ "embed"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"trade_engine/internal/store"
	"trade_engine/pkg/db"
)

//go:embed schema.sql
var schema string

// Store persists engine state in postgres. Commit runs every change of a
// tick in one transaction.
type Store struct {
	db  db.TxManager
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

func New(tm db.TxManager) *Store {
	return &Store{db: tm, now: time.Now}
}

// Migrate creates missing tables.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Conn().Exec(ctx, schema); err != nil {
		return errors.Wrap(err, "postgres.Migrate")
	}
	return nil
}

// noRows turns pgx.ErrNoRows into the (nil, nil) lookup convention.
func noRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// stamp falls back to the store clock for zero timestamps.
func (s *Store) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return s.now().UTC()
	}
	return t
}
