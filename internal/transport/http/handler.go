package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"trade_engine/internal/broker"
	"trade_engine/internal/dashboard"
	"trade_engine/internal/license"
	"trade_engine/internal/runner"
	"trade_engine/internal/store"
)

const idempotencyHeader = "Idempotency-Key"

type Deps struct {
	Runner    *runner.Service
	Dashboard *dashboard.Service
	Configs   store.ConfigStore
	License   license.Validator
	Broker    broker.Capability
	Logger    *zap.Logger
	// AllowedOrigins feeds the CORS policy; empty allows any origin.
	AllowedOrigins []string
}

type Handler struct {
	runner    *runner.Service
	dashboard *dashboard.Service
	configs   store.ConfigStore
	license   license.Validator
	broker    broker.Capability
	logger    *zap.Logger
	origins   []string
	now       func() time.Time
}

func NewHandler(d Deps) *Handler {
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Handler{
		runner:    d.Runner,
		dashboard: d.Dashboard,
		configs:   d.Configs,
		license:   d.License,
		broker:    d.Broker,
		logger:    d.Logger.Named("http"),
		origins:   origins,
		now:       time.Now,
	}
}

// Routes builds the public API router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", idempotencyHeader},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)

	r.Put("/trading/config", h.PutTradingConfig)
	r.Get("/trading/config", h.GetTradingConfig)
	r.Put("/risk/config", h.PutRiskConfig)
	r.Get("/risk/config", h.GetRiskConfig)
	r.Put("/session/config", h.PutSessionConfig)
	r.Get("/session/config", h.GetSessionConfig)

	r.Post("/bot/start", h.StartBot)
	r.Post("/bot/stop", h.StopBot)
	r.Get("/bot/status", h.BotStatus)

	r.Post("/engine/tick", h.Tick)
	r.Get("/engine/stream", h.Stream)
	r.Post("/ai/evaluate", h.Evaluate)

	r.Get("/summary", h.Summary)
	r.Get("/trades/open", h.OpenTrades)
	r.Get("/trades/closed", h.ClosedTrades)
	r.Get("/pnl/daily", h.DailyPnL)
	r.Get("/notifications", h.Notifications)

	r.Get("/license/status", h.LicenseStatus)
	r.Post("/broker/validate", h.ValidateBroker)
	return r
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
