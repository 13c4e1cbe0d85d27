package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"trade_engine/internal/metrics"
	"trade_engine/internal/models"
	"trade_engine/internal/runner"
)

const (
	pingInterval = 20 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 5 * time.Second
	maxFrameSize = 64 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// streamError is sent back for a frame that could not be processed.
type streamError struct {
	Error          string       `json:"error"`
	Status         int          `json:"status"`
	IdempotencyKey string       `json:"idempotency_key,omitempty"`
	Fields         []FieldError `json:"fields,omitempty"`
}

type streamConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *streamConn) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

// Stream accepts ticks as websocket text frames and answers each with the
// same payload POST /engine/tick would return. Frames are processed in
// order.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("stream upgrade", zap.Error(err))
		return
	}
	metrics.StreamConnections.Inc()
	defer metrics.StreamConnections.Dec()

	conn := &streamConn{conn: ws}
	defer ws.Close()

	ws.SetReadLimit(maxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go h.keepalive(conn, done)

	ctx := r.Context()
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("stream closed", zap.Error(err))
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))

		reply := h.streamTick(ctx, data)
		if err := conn.write(websocket.TextMessage, reply); err != nil {
			h.logger.Warn("stream write", zap.Error(err))
			return
		}
	}
}

func (h *Handler) keepalive(conn *streamConn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) streamTick(ctx context.Context, data []byte) []byte {
	var req models.TickRequest
	if err := sonic.Unmarshal(data, &req); err != nil {
		return encodeStreamError(streamError{Error: "invalid JSON: " + err.Error(), Status: http.StatusBadRequest})
	}
	if err := models.Validate(&req); err != nil {
		se := streamError{Error: "validation failed", Status: http.StatusUnprocessableEntity, IdempotencyKey: req.IdempotencyKey}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				se.Fields = append(se.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
			}
		}
		return encodeStreamError(se)
	}

	payload, err := h.runner.Ingest(ctx, req, req.IdempotencyKey)
	if err != nil {
		h.logger.Error("stream tick failed", zap.String("user_id", req.UserID), zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, runner.ErrPersistence) {
			status = http.StatusServiceUnavailable
		}
		return encodeStreamError(streamError{Error: err.Error(), Status: status, IdempotencyKey: req.IdempotencyKey})
	}
	return payload
}

func encodeStreamError(se streamError) []byte {
	b, err := sonic.Marshal(se)
	if err != nil {
		return []byte(`{"error":"encode failure","status":500}`)
	}
	return b
}
