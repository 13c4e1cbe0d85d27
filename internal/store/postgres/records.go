package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"trade_engine/internal/models"
	"trade_engine/pkg/db"
)

func (s *Store) IdempotentResponse(ctx context.Context, op, key string) (payload []byte, ok bool, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.IdempotentResponse: %w", err)
		}
	}()
	err = s.db.Conn().QueryRow(ctx,
		`SELECT payload FROM idempotency_records WHERE op = $1 AND key = $2`, op, key,
	).Scan(&payload)
	if noRows(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (s *Store) PurgeIdempotentBefore(ctx context.Context, before time.Time) (n int64, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.PurgeIdempotentBefore: %w", err)
		}
	}()
	tag, err := s.db.Conn().Exec(ctx, `DELETE FROM idempotency_records WHERE created_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) SaveNotification(ctx context.Context, n *models.Notification) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.SaveNotification: %w", err)
		}
	}()
	id, err := uuid.Parse(n.ID)
	if err != nil {
		return err
	}
	_, err = s.db.Conn().Exec(ctx, `
		INSERT INTO notifications (id, user_id, event_type, title, message, channel, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, n.UserID, string(n.EventType), n.Title, n.Message, string(n.Channel), s.stamp(n.CreatedAt))
	return err
}

func (s *Store) Notifications(ctx context.Context, userID string, channel models.Channel, limit int) (out []*models.Notification, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Notifications: %w", err)
		}
	}()
	rows, err := s.db.Conn().Query(ctx, `
		SELECT id, user_id, event_type, title, message, channel, created_at
		FROM notifications WHERE user_id = $1 AND channel = $2
		ORDER BY created_at DESC
		LIMIT $3`, userID, string(channel), limitOrAll(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			n        models.Notification
			id       uuid.UUID
			kind, ch string
		)
		if err := rows.Scan(&id, &n.UserID, &kind, &n.Title, &n.Message, &ch, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.ID = id.String()
		n.EventType = models.EventType(kind)
		n.Channel = models.Channel(ch)
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (s *Store) License(ctx context.Context, userID string) (l *models.License, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.License: %w", err)
		}
	}()
	var (
		lic    models.License
		status string
	)
	err = s.db.Conn().QueryRow(ctx,
		`SELECT license_key, user_id, status, expires_at FROM licenses WHERE user_id = $1`, userID,
	).Scan(&lic.Key, &lic.UserID, &status, &lic.ExpiresAt)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	lic.Status = models.LicenseStatus(status)
	return &lic, nil
}

func (s *Store) SaveLicense(ctx context.Context, l *models.License) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.SaveLicense: %w", err)
		}
	}()
	_, err = s.db.Conn().Exec(ctx, `
		INSERT INTO licenses (user_id, license_key, status, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
		    license_key = EXCLUDED.license_key,
		    status = EXCLUDED.status,
		    expires_at = EXCLUDED.expires_at`,
		l.UserID, l.Key, string(l.Status), l.ExpiresAt)
	return err
}

func (s *Store) SignalRecords(ctx context.Context, userID string, limit int) (out []*models.SignalRecord, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.SignalRecords: %w", err)
		}
	}()
	rows, err := s.db.Conn().Query(ctx, `
		SELECT user_id, symbol, price, approved, confidence, reasons, trend_strength, volatility,
		       observed_at, created_at
		FROM signal_records WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2`, userID, limitOrAll(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			r       models.SignalRecord
			reasons []byte
		)
		if err := rows.Scan(&r.UserID, &r.Symbol, &r.Price, &r.Approved, &r.Confidence,
			&reasons, &r.TrendStrength, &r.Volatility, &r.ObservedAt, &r.CreatedAt); err != nil {
			return nil, err
		}
		if err := sonic.Unmarshal(reasons, &r.Reasons); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *Store) insertSignal(ctx context.Context, tx db.Transaction, r *models.SignalRecord) error {
	reasons, err := sonic.Marshal(r.Reasons)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO signal_records (user_id, symbol, price, approved, confidence, reasons,
		                            trend_strength, volatility, observed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.UserID, r.Symbol, r.Price, r.Approved, r.Confidence, reasons,
		r.TrendStrength, r.Volatility, r.ObservedAt, s.stamp(r.CreatedAt))
	return err
}
