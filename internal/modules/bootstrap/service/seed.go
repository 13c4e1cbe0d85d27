package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v2"

	"trade_engine/internal/metrics"
	"trade_engine/internal/models"
	"trade_engine/internal/store"
)

// SeedFile is the YAML layout of a seed file.
type SeedFile struct {
	Users []SeedUser `yaml:"users"`
}

// SeedUser carries everything one user needs to trade. Nil sections are
// left untouched.
type SeedUser struct {
	UserID  string                `yaml:"user_id"`
	Trading *models.TradingConfig `yaml:"trading"`
	Risk    *models.RiskConfig    `yaml:"risk"`
	Session *models.SessionConfig `yaml:"session"`
	License *models.License       `yaml:"license"`
}

// Seeder applies a seed file and restores in-process counters from the
// store at startup.
type Seeder struct {
	store  store.Store
	logger *zap.Logger
	now    func() time.Time

	// bounds parallel writes against the store
	sem chan struct{}
}

func NewSeeder(st store.Store, logger *zap.Logger) *Seeder {
	return &Seeder{
		store:  st,
		logger: logger.Named("bootstrap"),
		now:    time.Now,
		sem:    make(chan struct{}, 8),
	}
}

// ReadSeedFile decodes path.
func ReadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var f SeedFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	return &f, nil
}

// Seed validates every user first and writes nothing when one is invalid.
func (s *Seeder) Seed(ctx context.Context, f *SeedFile) error {
	now := s.now().UTC()
	for i := range f.Users {
		if err := f.Users[i].normalize(now); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, u := range f.Users {
		g.Go(func() error {
			s.sem <- struct{}{}
			defer func() { <-s.sem }()
			return s.apply(ctx, u)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.Info("seed applied", zap.Int("users", len(f.Users)))
	return nil
}

func (s *Seeder) apply(ctx context.Context, u SeedUser) error {
	if u.Trading != nil {
		if err := s.store.SaveTradingConfig(ctx, u.Trading); err != nil {
			return fmt.Errorf("seed %s trading config: %w", u.UserID, err)
		}
	}
	if u.Risk != nil {
		if err := s.store.SaveRiskConfig(ctx, u.Risk); err != nil {
			return fmt.Errorf("seed %s risk config: %w", u.UserID, err)
		}
	}
	if u.Session != nil {
		if err := s.store.SaveSessionConfig(ctx, u.Session); err != nil {
			return fmt.Errorf("seed %s session config: %w", u.UserID, err)
		}
	}
	if u.License != nil {
		if err := s.store.SaveLicense(ctx, u.License); err != nil {
			return fmt.Errorf("seed %s license: %w", u.UserID, err)
		}
	}
	return nil
}

func (u *SeedUser) normalize(now time.Time) error {
	u.UserID = strings.TrimSpace(u.UserID)
	if u.UserID == "" {
		return fmt.Errorf("seed user without user_id")
	}
	if c := u.Trading; c != nil {
		c.UserID = u.UserID
		c.Assets = models.NormalizeAssets(c.Assets)
		c.Timeframe = strings.ToUpper(strings.TrimSpace(c.Timeframe))
		c.UpdatedAt = now
		if err := models.Validate(c); err != nil {
			return fmt.Errorf("seed %s trading config: %w", u.UserID, err)
		}
	}
	if c := u.Risk; c != nil {
		c.UserID = u.UserID
		c.UpdatedAt = now
		if err := models.Validate(c); err != nil {
			return fmt.Errorf("seed %s risk config: %w", u.UserID, err)
		}
	}
	if c := u.Session; c != nil {
		c.UserID = u.UserID
		c.UpdatedAt = now
		if err := models.Validate(c); err != nil {
			return fmt.Errorf("seed %s session config: %w", u.UserID, err)
		}
	}
	if l := u.License; l != nil {
		l.UserID = u.UserID
		if l.Status == "" {
			l.Status = models.LicenseActive
		}
		if err := models.Validate(l); err != nil {
			return fmt.Errorf("seed %s license: %w", u.UserID, err)
		}
	}
	return nil
}

// RestoreSessions sets the running sessions gauge from the store and
// returns how many sessions are still marked running.
func (s *Seeder) RestoreSessions(ctx context.Context) (int, error) {
	running, err := s.store.RunningSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore sessions: %w", err)
	}
	metrics.ActiveSessions.Set(float64(len(running)))
	if len(running) > 0 {
		s.logger.Info("running sessions restored", zap.Int("sessions", len(running)))
	}
	return len(running), nil
}
