package http

import (
	"strings"

	"trade_engine/internal/models"
)

const (
	defaultQuantity        = 1.0
	defaultProfitThreshold = 0.02
	defaultLossThreshold   = -0.02
)

type tradingConfigRequest struct {
	UserID              string   `json:"user_id"`
	Assets              []string `json:"assets"`
	Timeframe           string   `json:"timeframe"`
	MaxTradesPerSession int      `json:"max_trades_per_session"`
	Quantity            *float64 `json:"quantity"`
	ProfitThreshold     *float64 `json:"profit_threshold"`
	LossThreshold       *float64 `json:"loss_threshold"`
}

func (r *tradingConfigRequest) model() *models.TradingConfig {
	cfg := &models.TradingConfig{
		UserID:              strings.TrimSpace(r.UserID),
		Assets:              models.NormalizeAssets(r.Assets),
		Timeframe:           strings.ToUpper(strings.TrimSpace(r.Timeframe)),
		MaxTradesPerSession: r.MaxTradesPerSession,
		Quantity:            defaultQuantity,
		ProfitThreshold:     defaultProfitThreshold,
		LossThreshold:       defaultLossThreshold,
	}
	if r.Quantity != nil {
		cfg.Quantity = *r.Quantity
	}
	if r.ProfitThreshold != nil {
		cfg.ProfitThreshold = *r.ProfitThreshold
	}
	if r.LossThreshold != nil {
		cfg.LossThreshold = *r.LossThreshold
	}
	return cfg
}
