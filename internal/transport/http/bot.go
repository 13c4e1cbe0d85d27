package http

import (
	"net/http"

	"go.uber.org/zap"
)

type botRequest struct {
	UserID string `json:"user_id"`
}

// botUser reads user_id from the query string or a JSON body.
func botUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	if id := r.URL.Query().Get("user_id"); id != "" {
		return id, true
	}
	if r.ContentLength != 0 {
		var req botRequest
		if err := decode(r, &req); err == nil && req.UserID != "" {
			return req.UserID, true
		}
	}
	return userID(w, r)
}

func (h *Handler) StartBot(w http.ResponseWriter, r *http.Request) {
	id, ok := botUser(w, r)
	if !ok {
		return
	}
	status, err := h.runner.StartBot(r.Context(), id)
	if err != nil {
		h.logger.Warn("start bot", zap.String("user_id", id), zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) StopBot(w http.ResponseWriter, r *http.Request) {
	id, ok := botUser(w, r)
	if !ok {
		return
	}
	status, err := h.runner.StopBot(r.Context(), id)
	if err != nil {
		h.logger.Warn("stop bot", zap.String("user_id", id), zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) BotStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	status, err := h.runner.Status(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
