package service

import (
	"fmt"
	"strings"

	"trade_engine/internal/dashboard"
	"trade_engine/internal/models"
)

func formatStatus(st *models.BotStatus) string {
	state := "stopped"
	if st.Running {
		state = "running"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "State: %s\n", state)
	fmt.Fprintf(&b, "Trades this session: %d\n", st.TradesOpenedThisSession)
	if st.StartedAt != nil {
		fmt.Fprintf(&b, "Started: %s\n", st.StartedAt.UTC().Format("2006-01-02 15:04 MST"))
	}
	if !st.Running && st.StopReason != models.StopReasonNone {
		fmt.Fprintf(&b, "Stop reason: %s\n", st.StopReason)
	}
	return b.String()
}

func formatPnL(p *dashboard.DailyPnL) string {
	return fmt.Sprintf("Today\nRealized: %s\nUnrealized: %s\nTotal: %s",
		f2(p.RealizedPnL), f2(p.UnrealizedPnL), f2(p.TotalPnL))
}

func formatPositions(open []*models.OpenPosition, prices map[string]float64) string {
	if len(open) == 0 {
		return "📭 No open positions"
	}
	var b strings.Builder
	b.WriteString("📊 Open positions:\n")
	for _, p := range open {
		mark, ok := prices[p.Symbol]
		if !ok {
			mark = p.EntryPrice
		}
		fmt.Fprintf(&b, "- %s %s qty=%s @ %s pnl=%s\n",
			p.Symbol, p.Side, f2(p.Quantity), f5(p.EntryPrice), f2(p.PnL(mark)))
	}
	return b.String()
}

func f2(v float64) string { return fmt.Sprintf("%.2f", v) }

func f5(v float64) string { return fmt.Sprintf("%.5f", v) }
