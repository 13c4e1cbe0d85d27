package http

import (
	"net/http"

	"go.uber.org/zap"

	"trade_engine/internal/models"
)

func (h *Handler) Tick(w http.ResponseWriter, r *http.Request) {
	var req models.TickRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := models.Validate(&req); err != nil {
		writeValidation(w, err)
		return
	}

	payload, err := h.runner.Ingest(r.Context(), req, r.Header.Get(idempotencyHeader))
	if err != nil {
		h.logger.Error("tick failed",
			zap.String("user_id", req.UserID),
			zap.String("symbol", req.Symbol),
			zap.Error(err),
		)
		writeServiceError(w, err)
		return
	}
	writeRaw(w, http.StatusOK, payload)
}

func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req models.EvaluateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := models.Validate(&req); err != nil {
		writeValidation(w, err)
		return
	}

	resp, err := h.runner.Evaluate(r.Context(), req)
	if err != nil {
		h.logger.Error("evaluate failed", zap.String("user_id", req.UserID), zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
