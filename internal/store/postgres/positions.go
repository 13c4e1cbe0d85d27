package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"trade_engine/internal/models"
)

const openColumns = `id, user_id, symbol, side, quantity, entry_price, opened_at`

func scanOpen(row pgx.Row) (*models.OpenPosition, error) {
	var (
		p    models.OpenPosition
		side string
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Symbol, &side, &p.Quantity, &p.EntryPrice, &p.OpenedAt); err != nil {
		return nil, err
	}
	p.Side = models.Side(side)
	return &p, nil
}

func (s *Store) OpenPosition(ctx context.Context, userID, symbol string) (p *models.OpenPosition, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.OpenPosition: %w", err)
		}
	}()
	p, err = scanOpen(s.db.Conn().QueryRow(ctx,
		`SELECT `+openColumns+` FROM open_positions WHERE user_id = $1 AND symbol = $2`, userID, symbol))
	if noRows(err) {
		return nil, nil
	}
	return p, err
}

func (s *Store) OpenPositions(ctx context.Context, userID string) (out []*models.OpenPosition, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.OpenPositions: %w", err)
		}
	}()
	rows, err := s.db.Conn().Query(ctx,
		`SELECT `+openColumns+` FROM open_positions WHERE user_id = $1 ORDER BY opened_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanOpen(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ClosedPositions(ctx context.Context, userID string, limit int) (out []*models.ClosedPosition, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.ClosedPositions: %w", err)
		}
	}()
	rows, err := s.db.Conn().Query(ctx, `
		SELECT id, user_id, symbol, side, quantity, entry_price, opened_at,
		       close_price, pnl, close_reason, closed_at
		FROM closed_positions WHERE user_id = $1
		ORDER BY closed_at DESC, id DESC
		LIMIT $2`, userID, limitOrAll(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			c            models.ClosedPosition
			side, reason string
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Symbol, &side, &c.Quantity, &c.EntryPrice, &c.OpenedAt,
			&c.ClosePrice, &c.PnL, &reason, &c.ClosedAt); err != nil {
			return nil, err
		}
		c.Side = models.Side(side)
		c.CloseReason = models.CloseReason(reason)
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *Store) RealizedPnL(ctx context.Context, userID string, from, to time.Time) (sum float64, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.RealizedPnL: %w", err)
		}
	}()
	err = s.db.Conn().QueryRow(ctx, `
		SELECT COALESCE(SUM(pnl), 0) FROM closed_positions
		WHERE user_id = $1 AND closed_at >= $2 AND closed_at < $3`, userID, from, to,
	).Scan(&sum)
	return sum, err
}

func (s *Store) OpenExposure(ctx context.Context, userID string) (sum float64, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.OpenExposure: %w", err)
		}
	}()
	err = s.db.Conn().QueryRow(ctx, `
		SELECT COALESCE(SUM(entry_price * quantity), 0) FROM open_positions
		WHERE user_id = $1`, userID,
	).Scan(&sum)
	return sum, err
}

// limitOrAll maps a non-positive limit to no limit; LIMIT NULL returns
// every row.
func limitOrAll(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}
