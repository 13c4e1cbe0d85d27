package models

import (
	"strings"
	"time"
)

// TradingConfig holds the user's trading settings.
// Immutable until the user replaces it as a whole.
type TradingConfig struct {
	UserID              string    `json:"user_id" yaml:"user_id" validate:"required"`
	Assets              []string  `json:"assets" yaml:"assets" validate:"min=1,dive,required"`
	Timeframe           string    `json:"timeframe" yaml:"timeframe" validate:"oneof=M1 M5"`
	MaxTradesPerSession int       `json:"max_trades_per_session" yaml:"max_trades_per_session" validate:"min=1,max=500"`
	Quantity            float64   `json:"quantity" yaml:"quantity" validate:"gt=0"`
	ProfitThreshold     float64   `json:"profit_threshold" yaml:"profit_threshold" validate:"gt=0"`
	LossThreshold       float64   `json:"loss_threshold" yaml:"loss_threshold" validate:"lt=0"`
	UpdatedAt           time.Time `json:"updated_at" yaml:"-"`
}

// Allows reports whether symbol is in the user's asset list.
func (c *TradingConfig) Allows(symbol string) bool {
	symbol = NormalizeSymbol(symbol)
	for _, a := range c.Assets {
		if NormalizeSymbol(a) == symbol {
			return true
		}
	}
	return false
}

// RiskConfig is used for gating only; the engine never mutates it.
type RiskConfig struct {
	UserID            string    `json:"user_id" yaml:"user_id" validate:"required"`
	DailyProfitTarget float64   `json:"daily_profit_target" yaml:"daily_profit_target" validate:"gt=0"`
	DailyLossLimit    float64   `json:"daily_loss_limit" yaml:"daily_loss_limit" validate:"gt=0"`
	AllocatedCapital  float64   `json:"allocated_capital" yaml:"allocated_capital" validate:"gt=0"`
	UpdatedAt         time.Time `json:"updated_at" yaml:"-"`
}

type SessionConfig struct {
	UserID          string    `json:"user_id" yaml:"user_id" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" yaml:"duration_minutes" validate:"min=1,max=1440"`
	UpdatedAt       time.Time `json:"updated_at" yaml:"-"`
}

// Duration returns the maximum session length.
func (c *SessionConfig) Duration() time.Duration {
	return time.Duration(c.DurationMinutes) * time.Minute
}

// NormalizeSymbol trims and uppercases an instrument symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeAssets normalizes every symbol, drops blanks and duplicates
// and keeps the original order.
func NormalizeAssets(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, a := range in {
		s := NormalizeSymbol(a)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
