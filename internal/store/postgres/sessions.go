package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"trade_engine/internal/models"
	"trade_engine/pkg/db"
)

const sessionColumns = `user_id, running, started_at, trades_opened_this_session, stop_reason, updated_at`

func scanSession(row pgx.Row) (*models.BotSession, error) {
	var (
		sess   models.BotSession
		reason string
	)
	if err := row.Scan(&sess.UserID, &sess.Running, &sess.StartedAt,
		&sess.TradesOpenedThisSession, &reason, &sess.UpdatedAt); err != nil {
		return nil, err
	}
	sess.StopReason = models.StopReason(reason)
	return &sess, nil
}

func (s *Store) BotSession(ctx context.Context, userID string) (sess *models.BotSession, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.BotSession: %w", err)
		}
	}()
	sess, err = scanSession(s.db.Conn().QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM bot_sessions WHERE user_id = $1`, userID))
	if noRows(err) {
		return nil, nil
	}
	return sess, err
}

func (s *Store) SaveBotSession(ctx context.Context, sess *models.BotSession) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.SaveBotSession: %w", err)
		}
	}()
	return s.saveSession(ctx, s.db.Conn(), sess)
}

func (s *Store) saveSession(ctx context.Context, tx db.Transaction, sess *models.BotSession) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO bot_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
		    running = EXCLUDED.running,
		    started_at = EXCLUDED.started_at,
		    trades_opened_this_session = EXCLUDED.trades_opened_this_session,
		    stop_reason = EXCLUDED.stop_reason,
		    updated_at = EXCLUDED.updated_at`,
		sess.UserID, sess.Running, sess.StartedAt, sess.TradesOpenedThisSession,
		string(sess.StopReason), s.stamp(sess.UpdatedAt))
	return err
}

func (s *Store) RunningSessions(ctx context.Context) (out []*models.BotSession, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.RunningSessions: %w", err)
		}
	}()
	rows, err := s.db.Conn().Query(ctx,
		`SELECT `+sessionColumns+` FROM bot_sessions WHERE running ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}
