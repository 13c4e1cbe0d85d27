package health

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"trade_engine/internal/metrics"
	"trade_engine/internal/modules/config"
	"trade_engine/internal/modules/health/service"
	"trade_engine/internal/runner"
)

type Config struct {
	Addr string
}

func NewConfig(cfg *config.Config) Config {
	return Config{Addr: cfg.AdminAddr()}
}

// NewMux serves liveness, readiness, a JSON status and prometheus metrics.
func NewMux(state *service.State) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !state.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		var lastTick int64
		if t := state.LastTick(); !t.IsZero() {
			lastTick = t.Unix()
		}
		body, _ := sonic.Marshal(map[string]any{
			"ready":        state.Ready(),
			"uptimeSec":    int64(state.Uptime().Seconds()),
			"lastTickUnix": lastTick,
			"ticks":        state.Ticks(),
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})

	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func RunHTTP(lc fx.Lifecycle, cfg Config, mux *http.ServeMux, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			logger.Info("admin server listening", zap.String("addr", cfg.Addr))
			go func() { _ = srv.Serve(ln) }()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			service.NewState,
			NewConfig,
			NewMux,
			func(s *service.State) runner.TickObserver { return s },
		),
		fx.Invoke(RunHTTP),
	)
}
