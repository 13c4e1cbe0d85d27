package http

import (
	"net/http"

	"trade_engine/internal/models"
)

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	s, err := h.dashboard.Summary(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) DailyPnL(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	p, err := h.dashboard.DailyPnL(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) OpenTrades(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	trades, err := h.dashboard.OpenTrades(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if trades == nil {
		trades = []*models.OpenPosition{}
	}
	writeJSON(w, http.StatusOK, trades)
}

func (h *Handler) ClosedTrades(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	n, ok := limit(w, r)
	if !ok {
		return
	}
	trades, err := h.dashboard.ClosedTrades(r.Context(), id, n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if trades == nil {
		trades = []*models.ClosedPosition{}
	}
	writeJSON(w, http.StatusOK, trades)
}

func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	n, ok := limit(w, r)
	if !ok {
		return
	}
	channel := models.Channel(r.URL.Query().Get("channel"))
	if channel == "" {
		channel = models.ChannelInApp
	}
	if channel != models.ChannelInApp && channel != models.ChannelEmail {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "validation failed",
			Fields: []FieldError{{Field: "channel", Rule: "oneof", Param: "in_app email"}},
		})
		return
	}
	items, err := h.dashboard.Notifications(r.Context(), id, channel, n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []*models.Notification{}
	}
	writeJSON(w, http.StatusOK, items)
}
