package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"trade_engine/internal/models"
	"trade_engine/internal/store/memory"
)

const seedYAML = `
users:
  - user_id: u1
    trading:
      assets: [" eurusd ", "gbpusd"]
      timeframe: m5
      max_trades_per_session: 3
      quantity: 2
      profit_threshold: 0.03
      loss_threshold: -0.01
    risk:
      daily_profit_target: 100
      daily_loss_limit: 50
      allocated_capital: 1000
    session:
      duration_minutes: 30
    license:
      license_key: KEY-1
      expires_at: 2030-01-01T00:00:00Z
`

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestSeedAppliesUsers(t *testing.T) {
	st := memory.New()
	s := NewSeeder(st, zaptest.NewLogger(t))
	ctx := context.Background()

	f, err := ReadSeedFile(writeSeed(t, seedYAML))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := s.Seed(ctx, f); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cfg, err := st.TradingConfig(ctx, "u1")
	if err != nil || cfg == nil {
		t.Fatalf("trading config = %v, %v", cfg, err)
	}
	if cfg.Timeframe != "M5" || len(cfg.Assets) != 2 || cfg.Assets[0] != "EURUSD" || cfg.UserID != "u1" {
		t.Fatalf("trading config = %+v", cfg)
	}
	if sc, _ := st.SessionConfig(ctx, "u1"); sc == nil || sc.DurationMinutes != 30 {
		t.Fatalf("session config = %+v", sc)
	}
	lic, _ := st.License(ctx, "u1")
	if lic == nil || lic.Status != models.LicenseActive || !lic.ExpiresAt.Equal(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("license = %+v", lic)
	}
}

func TestSeedRejectsInvalidUserWithoutWriting(t *testing.T) {
	st := memory.New()
	s := NewSeeder(st, zaptest.NewLogger(t))
	ctx := context.Background()

	f := &SeedFile{Users: []SeedUser{
		{UserID: "ok", Session: &models.SessionConfig{DurationMinutes: 10}},
		{UserID: "bad", Session: &models.SessionConfig{DurationMinutes: 0}},
	}}
	if err := s.Seed(ctx, f); err == nil {
		t.Fatalf("expected validation error")
	}
	if sc, _ := st.SessionConfig(ctx, "ok"); sc != nil {
		t.Fatalf("nothing may be written when a user is invalid")
	}
}

func TestReadSeedFileRejectsUnknownFields(t *testing.T) {
	if _, err := ReadSeedFile(writeSeed(t, "users:\n  - user_id: u1\n    colour: red\n")); err == nil {
		t.Fatalf("expected strict decode error")
	}
}

func TestRestoreSessions(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	now := time.Now()
	_ = st.SaveBotSession(ctx, &models.BotSession{UserID: "a", Running: true, StartedAt: &now})
	_ = st.SaveBotSession(ctx, &models.BotSession{UserID: "b"})

	n, err := NewSeeder(st, zaptest.NewLogger(t)).RestoreSessions(ctx)
	if err != nil || n != 1 {
		t.Fatalf("restored = %d, %v", n, err)
	}
}
