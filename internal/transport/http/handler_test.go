package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"go.uber.org/zap/zaptest"

	"trade_engine/internal/broker"
	"trade_engine/internal/dashboard"
	"trade_engine/internal/engine"
	"trade_engine/internal/idempotency"
	"trade_engine/internal/license"
	"trade_engine/internal/models"
	"trade_engine/internal/notify"
	"trade_engine/internal/risk"
	"trade_engine/internal/runner"
	"trade_engine/internal/signal"
	"trade_engine/internal/store/memory"
)

type testServer struct {
	st     *memory.Store
	runner *runner.Service
	srv    *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)
	st := memory.New()
	svc := runner.NewService(runner.Deps{
		Store:     st,
		Engine:    engine.New(st, risk.NewGate(st), logger),
		Filter:    signal.NewFilter(signal.DefaultConfig()),
		Cache:     idempotency.NewCache(st, idempotency.Config{}, logger),
		Publisher: notify.NewDispatcher(notify.Config{}, logger),
		License:   license.AllowAll{},
		Logger:    logger,
	})
	h := NewHandler(Deps{
		Runner:    svc,
		Dashboard: dashboard.NewService(st, svc),
		Configs:   st,
		License:   license.AllowAll{},
		Broker:    broker.Unavailable(),
		Logger:    logger,
	})
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return &testServer{st: st, runner: svc, srv: srv}
}

func (s *testServer) do(t *testing.T, method, path, body string, header map[string]string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, s.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := s.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, buf.Bytes()
}

func (s *testServer) configure(t *testing.T) {
	t.Helper()
	for path, body := range map[string]string{
		"/trading/config": `{"user_id":"u1","assets":[" eurusd "],"timeframe":"m1","max_trades_per_session":5}`,
		"/risk/config":    `{"user_id":"u1","daily_profit_target":50,"daily_loss_limit":50,"allocated_capital":1000}`,
		"/session/config": `{"user_id":"u1","duration_minutes":60}`,
	} {
		if code, body := s.do(t, http.MethodPut, path, body, nil); code != http.StatusOK {
			t.Fatalf("PUT %s = %d %s", path, code, body)
		}
	}
}

func fields(t *testing.T, body []byte) map[string]string {
	t.Helper()
	var resp ErrorResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	out := make(map[string]string, len(resp.Fields))
	for _, f := range resp.Fields {
		out[f.Field] = f.Rule
	}
	return out
}

func TestTradingConfigDefaultsAndNormalization(t *testing.T) {
	s := newTestServer(t)
	s.configure(t)

	code, body := s.do(t, http.MethodGet, "/trading/config?user_id=u1", "", nil)
	if code != http.StatusOK {
		t.Fatalf("GET = %d %s", code, body)
	}
	var cfg models.TradingConfig
	if err := sonic.Unmarshal(body, &cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Timeframe != "M1" || len(cfg.Assets) != 1 || cfg.Assets[0] != "EURUSD" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Quantity != 1 || cfg.ProfitThreshold != 0.02 || cfg.LossThreshold != -0.02 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}

	if code, _ := s.do(t, http.MethodGet, "/trading/config?user_id=nobody", "", nil); code != http.StatusNotFound {
		t.Fatalf("missing config = %d, want 404", code)
	}
}

func TestTradingConfigValidation(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(t, http.MethodPut, "/trading/config",
		`{"user_id":"u1","assets":["EURUSD"],"timeframe":"H1","max_trades_per_session":5,"loss_threshold":0.5}`, nil)
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("code = %d, want 422", code)
	}
	got := fields(t, body)
	if got["loss_threshold"] != "lt" || got["timeframe"] != "oneof" {
		t.Fatalf("fields = %v", got)
	}
}

func TestMissingUserID(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(t, http.MethodGet, "/bot/status", "", nil)
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("code = %d, want 422", code)
	}
	if fields(t, body)["user_id"] != "required" {
		t.Fatalf("body = %s", body)
	}
}

func TestStartBotRequiresConfigs(t *testing.T) {
	s := newTestServer(t)
	if code, body := s.do(t, http.MethodPost, "/bot/start?user_id=u1", "", nil); code != http.StatusBadRequest {
		t.Fatalf("start without configs = %d %s", code, body)
	}

	s.configure(t)
	code, body := s.do(t, http.MethodPost, "/bot/start", `{"user_id":"u1"}`, nil)
	if code != http.StatusOK {
		t.Fatalf("start = %d %s", code, body)
	}
	var status models.BotStatus
	if err := sonic.Unmarshal(body, &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !status.Running || status.StartedAt == nil || status.TradesOpenedThisSession != 0 {
		t.Fatalf("status = %+v", status)
	}

	code, body = s.do(t, http.MethodPost, "/bot/stop?user_id=u1", "", nil)
	if code != http.StatusOK {
		t.Fatalf("stop = %d %s", code, body)
	}
	if err := sonic.Unmarshal(body, &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Running || status.StopReason != models.StopReasonManual {
		t.Fatalf("status after stop = %+v", status)
	}
}

func TestTickReplayIsByteIdentical(t *testing.T) {
	s := newTestServer(t)
	s.configure(t)
	if code, body := s.do(t, http.MethodPost, "/bot/start?user_id=u1", "", nil); code != http.StatusOK {
		t.Fatalf("start = %d %s", code, body)
	}

	key := map[string]string{idempotencyHeader: "tick-1"}
	tick := `{"user_id":"u1","symbol":"EURUSD","price":1.1,"confidence_threshold":0}`
	code, first := s.do(t, http.MethodPost, "/engine/tick", tick, key)
	if code != http.StatusOK {
		t.Fatalf("tick = %d %s", code, first)
	}
	var resp models.TickResponse
	if err := sonic.Unmarshal(first, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Action != models.ActionHeld || resp.Message != engine.MsgInsufficientTrend {
		t.Fatalf("first tick = %+v", resp)
	}

	// a different body under the same key still replays the first answer
	_, second := s.do(t, http.MethodPost, "/engine/tick",
		`{"user_id":"u1","symbol":"EURUSD","price":1.2,"confidence_threshold":0}`, key)
	if !bytes.Equal(first, second) {
		t.Fatalf("replay differs:\n%s\n%s", first, second)
	}
	if prices := s.runner.LastPrices("u1"); prices["EURUSD"] != 1.1 {
		t.Fatalf("replay touched state: %v", prices)
	}
}

func TestTickValidation(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(t, http.MethodPost, "/engine/tick",
		`{"user_id":"u1","symbol":"EURUSD","price":0,"confidence_threshold":1.5}`, nil)
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("code = %d, want 422", code)
	}
	got := fields(t, body)
	if got["price"] != "gt" || got["confidence_threshold"] != "lte" {
		t.Fatalf("fields = %v", got)
	}

	if code, _ := s.do(t, http.MethodPost, "/engine/tick", `{"user_id":`, nil); code != http.StatusBadRequest {
		t.Fatalf("malformed = %d, want 400", code)
	}
}

func TestEvaluate(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(t, http.MethodPost, "/ai/evaluate",
		`{"user_id":"u1","symbol":"EURUSD","price":1.1,"shock_flag":true}`, nil)
	if code != http.StatusOK {
		t.Fatalf("evaluate = %d %s", code, body)
	}
	var resp models.EvaluateResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Approved {
		t.Fatalf("shock must veto: %+v", resp)
	}
	records, err := s.st.SignalRecords(context.Background(), "u1", 10)
	if err != nil || len(records) != 1 {
		t.Fatalf("audit records = %v, %v", records, err)
	}
}

func TestDashboardEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.configure(t)

	code, body := s.do(t, http.MethodGet, "/summary?user_id=u1", "", nil)
	if code != http.StatusOK {
		t.Fatalf("summary = %d %s", code, body)
	}
	var sum dashboard.Summary
	if err := sonic.Unmarshal(body, &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.Balance != 1000 || sum.Equity != 1000 || sum.BotRunning {
		t.Fatalf("summary = %+v", sum)
	}

	code, body = s.do(t, http.MethodGet, "/trades/closed?user_id=u1", "", nil)
	if code != http.StatusOK || string(body) != "[]" {
		t.Fatalf("closed = %d %s", code, body)
	}
	if code, _ := s.do(t, http.MethodGet, "/trades/closed?user_id=u1&limit=0", "", nil); code != http.StatusUnprocessableEntity {
		t.Fatalf("limit=0 = %d, want 422", code)
	}
	if code, _ := s.do(t, http.MethodGet, "/trades/closed?user_id=u1&limit=501", "", nil); code != http.StatusUnprocessableEntity {
		t.Fatalf("limit=501 = %d, want 422", code)
	}
	if code, _ := s.do(t, http.MethodGet, "/notifications?user_id=u1&channel=sms", "", nil); code != http.StatusUnprocessableEntity {
		t.Fatalf("bad channel = %d, want 422", code)
	}
	if code, body := s.do(t, http.MethodGet, "/pnl/daily?user_id=u1", "", nil); code != http.StatusOK {
		t.Fatalf("pnl = %d %s", code, body)
	}
}

func TestOnboardingEndpoints(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodGet, "/license/status?user_id=u1", "", nil)
	if code != http.StatusOK || !strings.Contains(string(body), `"valid":true`) {
		t.Fatalf("license = %d %s", code, body)
	}

	code, body = s.do(t, http.MethodPost, "/broker/validate",
		`{"user_id":"u1","login":"l","password":"p","server":"s"}`, nil)
	if code != http.StatusServiceUnavailable || !strings.Contains(string(body), broker.ErrUnavailable.Error()) {
		t.Fatalf("broker = %d %s", code, body)
	}
}
