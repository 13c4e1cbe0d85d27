package models

import "time"

// OpenPosition is unique per (user, symbol).
type OpenPosition struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Quantity   float64   `json:"quantity"`
	EntryPrice float64   `json:"entry_price"`
	OpenedAt   time.Time `json:"opened_at"`
}

// PnL is the unrealized profit of the position marked at price.
func (p *OpenPosition) PnL(price float64) float64 {
	if p.Side == SideBuy {
		return (price - p.EntryPrice) * p.Quantity
	}
	return (p.EntryPrice - price) * p.Quantity
}

// Exposure is entry price times quantity.
func (p *OpenPosition) Exposure() float64 {
	return p.EntryPrice * p.Quantity
}

type CloseReason string

const (
	CloseReasonNone       CloseReason = ""
	CloseReasonTakeProfit CloseReason = "tp_hit"
	CloseReasonStopLoss   CloseReason = "sl_hit"
)

// ClosedPosition is an append-only history row.
type ClosedPosition struct {
	OpenPosition
	ClosePrice  float64     `json:"close_price"`
	PnL         float64     `json:"pnl"`
	CloseReason CloseReason `json:"close_reason"`
	ClosedAt    time.Time   `json:"closed_at"`
}

// Close builds the history row for p closed at price.
func (p *OpenPosition) Close(price, pnl float64, reason CloseReason, at time.Time) *ClosedPosition {
	return &ClosedPosition{
		OpenPosition: *p,
		ClosePrice:   price,
		PnL:          pnl,
		CloseReason:  reason,
		ClosedAt:     at,
	}
}
