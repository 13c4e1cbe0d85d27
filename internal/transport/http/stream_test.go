package http

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"trade_engine/internal/engine"
	"trade_engine/internal/models"
)

func dialStream(t *testing.T, s *testServer) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/engine/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("upgrade status = %d", resp.StatusCode)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, frame string) []byte {
	t.Helper()
	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return data
}

func TestStreamProcessesTicksInOrder(t *testing.T) {
	s := newTestServer(t)
	s.configure(t)
	if code, body := s.do(t, http.MethodPost, "/bot/start?user_id=u1", "", nil); code != http.StatusOK {
		t.Fatalf("start = %d %s", code, body)
	}
	conn := dialStream(t, s)

	first := roundTrip(t, conn, `{"user_id":"u1","symbol":"EURUSD","price":1.1,"confidence_threshold":0,"idempotency_key":"s-1"}`)
	var resp models.TickResponse
	if err := sonic.Unmarshal(first, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != engine.MsgInsufficientTrend {
		t.Fatalf("first frame = %s", first)
	}

	replay := roundTrip(t, conn, `{"user_id":"u1","symbol":"EURUSD","price":1.3,"confidence_threshold":0,"idempotency_key":"s-1"}`)
	if string(replay) != string(first) {
		t.Fatalf("replay = %s, want %s", replay, first)
	}
}

func TestStreamReportsBadFrames(t *testing.T) {
	s := newTestServer(t)
	conn := dialStream(t, s)

	var se streamError
	if err := sonic.Unmarshal(roundTrip(t, conn, `not json`), &se); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if se.Status != http.StatusBadRequest {
		t.Fatalf("status = %d", se.Status)
	}

	se = streamError{}
	if err := sonic.Unmarshal(roundTrip(t, conn, `{"user_id":"u1","symbol":"EURUSD","price":-1,"idempotency_key":"k"}`), &se); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if se.Status != http.StatusUnprocessableEntity || se.IdempotencyKey != "k" || len(se.Fields) != 1 || se.Fields[0].Field != "price" {
		t.Fatalf("validation frame = %+v", se)
	}
}
