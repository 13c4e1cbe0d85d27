package signal

import (
	"math"

	"trade_engine/internal/helper"
)

// Reason tags, in the order they are reported.
const (
	ReasonNewsSpike        = "blocked_by_news_spike"
	ReasonTrendOK          = "trend_strength_ok"
	ReasonTrendWeak        = "trend_strength_weak"
	ReasonVolatilitySpike  = "volatility_spike_detected"
	ReasonVolatilityNormal = "volatility_normal"
	ReasonBelowThreshold   = "rejected_below_threshold"
)

type Config struct {
	WindowSize          int     `mapstructure:"window_size"`
	TrendThreshold      float64 `mapstructure:"trend_threshold"`
	VolatilityThreshold float64 `mapstructure:"volatility_threshold"`
	TrendWeight         float64 `mapstructure:"trend_weight"`
	BaseConfidence      float64 `mapstructure:"base_confidence"`
	SpikeConfidence     float64 `mapstructure:"spike_confidence"`
}

func DefaultConfig() Config {
	return Config{
		WindowSize:          DefaultWindowSize,
		TrendThreshold:      0.00012,
		VolatilityThreshold: 0.0018,
		TrendWeight:         1800,
		BaseConfidence:      0.5,
		SpikeConfidence:     0.15,
	}
}

// Verdict is the outcome of one filter evaluation.
type Verdict struct {
	Approved      bool
	Confidence    float64
	Reasons       []string
	TrendStrength float64
	Volatility    float64
}

// Filter scores a price window by trend strength and volatility.
// It holds no state of its own.
type Filter struct {
	cfg Config
}

func NewFilter(cfg Config) *Filter {
	def := DefaultConfig()
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = def.WindowSize
	}
	if cfg.TrendThreshold <= 0 {
		cfg.TrendThreshold = def.TrendThreshold
	}
	if cfg.VolatilityThreshold <= 0 {
		cfg.VolatilityThreshold = def.VolatilityThreshold
	}
	if cfg.TrendWeight <= 0 {
		cfg.TrendWeight = def.TrendWeight
	}
	if cfg.BaseConfidence <= 0 {
		cfg.BaseConfidence = def.BaseConfidence
	}
	if cfg.SpikeConfidence <= 0 {
		cfg.SpikeConfidence = def.SpikeConfidence
	}
	return &Filter{cfg: cfg}
}

// NewWindow returns an empty window sized for this filter.
func (f *Filter) NewWindow() *Window {
	return NewWindow(f.cfg.WindowSize)
}

// Evaluate appends price to w and scores the resulting window.
// A shock vetoes the tick regardless of history.
func (f *Filter) Evaluate(w *Window, price float64, shock bool, threshold float64) Verdict {
	w.Add(price)

	if shock {
		return Verdict{
			Approved: false,
			Reasons:  []string{ReasonNewsSpike},
		}
	}

	trend := TrendStrength(w)
	vol := Volatility(w)

	reasons := make([]string, 0, 3)
	if trend >= f.cfg.TrendThreshold {
		reasons = append(reasons, ReasonTrendOK)
	} else {
		reasons = append(reasons, ReasonTrendWeak)
	}

	spike := vol >= f.cfg.VolatilityThreshold
	base := f.cfg.BaseConfidence
	if spike {
		reasons = append(reasons, ReasonVolatilitySpike)
		base = f.cfg.SpikeConfidence
	} else {
		reasons = append(reasons, ReasonVolatilityNormal)
	}

	confidence := math.Max(0, math.Min(1, trend*f.cfg.TrendWeight+base))
	approved := confidence >= threshold && !spike
	if !approved {
		reasons = append(reasons, ReasonBelowThreshold)
	}

	return Verdict{
		Approved:      approved,
		Confidence:    helper.Round(confidence, 6),
		Reasons:       reasons,
		TrendStrength: helper.Round(trend, 8),
		Volatility:    helper.Round(vol, 8),
	}
}

// TrendStrength is |last-first|/first over the window, 0 with fewer than
// three samples or a zero first sample.
func TrendStrength(w *Window) float64 {
	if w.Len() < 3 {
		return 0
	}
	first := w.First()
	if first == 0 {
		return 0
	}
	return math.Abs((w.Last() - first) / first)
}

// Volatility is the population standard deviation of simple returns.
// Pairs with a zero previous price are skipped.
func Volatility(w *Window) float64 {
	if w.Len() < 4 {
		return 0
	}
	prices := w.buf
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1]
		if prev == 0 {
			continue
		}
		returns = append(returns, (prices[i]-prev)/prev)
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	return math.Sqrt(variance)
}
