package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	"trade_engine/internal/models"
	"trade_engine/internal/store"
)

const uniqueViolation = "23505"

// Commit applies m in one transaction. Nothing is written when any part
// fails.
func (s *Store) Commit(ctx context.Context, m *models.Mutation) error {
	if m == nil || m.Empty() {
		return nil
	}
	err := s.db.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if m.Idempotency != nil {
			if err := s.insertIdempotent(ctx, tx, m.Idempotency); err != nil {
				return err
			}
		}
		if m.Session != nil {
			if err := s.saveSession(ctx, tx, m.Session); err != nil {
				return errors.Wrap(err, "save session")
			}
		}
		if m.IncrementTrades {
			tag, err := tx.Exec(ctx, `
				UPDATE bot_sessions
				SET trades_opened_this_session = trades_opened_this_session + 1, updated_at = $2
				WHERE user_id = $1`, m.UserID, s.now().UTC())
			if err != nil {
				return errors.Wrap(err, "increment trades")
			}
			if tag.RowsAffected() == 0 {
				return store.ErrSessionNotFound
			}
		}
		if m.Close != nil {
			if err := s.closePosition(ctx, tx, m.Close); err != nil {
				return err
			}
		}
		if m.Open != nil {
			if err := s.openPosition(ctx, tx, m.Open); err != nil {
				return err
			}
		}
		if m.Signal != nil {
			if err := s.insertSignal(ctx, tx, m.Signal); err != nil {
				return errors.Wrap(err, "insert signal record")
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "postgres.Commit")
	}
	return nil
}

// insertIdempotent takes the key first so a concurrent duplicate waits on
// the row lock and then rolls back.
func (s *Store) insertIdempotent(ctx context.Context, tx pgx.Tx, rec *models.IdempotencyRecord) error {
	tag, err := tx.Exec(ctx, `
		INSERT INTO idempotency_records (op, key, payload, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (op, key) DO NOTHING`,
		rec.Op, rec.Key, rec.Payload, s.now().UTC())
	if err != nil {
		return errors.Wrap(err, "insert idempotency record")
	}
	if tag.RowsAffected() == 0 {
		return store.ErrDuplicateRequest
	}
	return nil
}

func (s *Store) closePosition(ctx context.Context, tx pgx.Tx, c *models.ClosedPosition) error {
	tag, err := tx.Exec(ctx, `DELETE FROM open_positions WHERE id = $1 AND user_id = $2 AND symbol = $3`,
		c.ID, c.UserID, c.Symbol)
	if err != nil {
		return errors.Wrap(err, "delete open position")
	}
	if tag.RowsAffected() == 0 {
		return store.ErrPositionNotFound
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO closed_positions (id, user_id, symbol, side, quantity, entry_price, opened_at,
		                              close_price, pnl, close_reason, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.UserID, c.Symbol, string(c.Side), c.Quantity, c.EntryPrice, c.OpenedAt,
		c.ClosePrice, c.PnL, string(c.CloseReason), c.ClosedAt)
	return errors.Wrap(err, "insert closed position")
}

func (s *Store) openPosition(ctx context.Context, tx pgx.Tx, p *models.OpenPosition) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO open_positions (user_id, symbol, side, quantity, entry_price, opened_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.UserID, p.Symbol, string(p.Side), p.Quantity, p.EntryPrice, p.OpenedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return store.ErrPositionExists
	}
	return errors.Wrap(err, "insert open position")
}
