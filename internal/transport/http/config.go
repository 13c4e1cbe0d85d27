package http

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"trade_engine/internal/models"
)

func (h *Handler) PutTradingConfig(w http.ResponseWriter, r *http.Request) {
	var req tradingConfigRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	cfg := req.model()
	if err := models.Validate(cfg); err != nil {
		writeValidation(w, err)
		return
	}
	cfg.UpdatedAt = h.now().UTC()
	if err := h.configs.SaveTradingConfig(r.Context(), cfg); err != nil {
		h.logger.Error("save trading config", zap.String("user_id", cfg.UserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save trading config")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *Handler) GetTradingConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	cfg, err := h.configs.TradingConfig(r.Context(), id)
	respondConfig(w, cfg, cfg == nil, err, "trading config")
}

func (h *Handler) PutRiskConfig(w http.ResponseWriter, r *http.Request) {
	var cfg models.RiskConfig
	if err := decode(r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	cfg.UserID = strings.TrimSpace(cfg.UserID)
	if err := models.Validate(&cfg); err != nil {
		writeValidation(w, err)
		return
	}
	cfg.UpdatedAt = h.now().UTC()
	if err := h.configs.SaveRiskConfig(r.Context(), &cfg); err != nil {
		h.logger.Error("save risk config", zap.String("user_id", cfg.UserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save risk config")
		return
	}
	writeJSON(w, http.StatusOK, &cfg)
}

func (h *Handler) GetRiskConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	cfg, err := h.configs.RiskConfig(r.Context(), id)
	respondConfig(w, cfg, cfg == nil, err, "risk config")
}

func (h *Handler) PutSessionConfig(w http.ResponseWriter, r *http.Request) {
	var cfg models.SessionConfig
	if err := decode(r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	cfg.UserID = strings.TrimSpace(cfg.UserID)
	if err := models.Validate(&cfg); err != nil {
		writeValidation(w, err)
		return
	}
	cfg.UpdatedAt = h.now().UTC()
	if err := h.configs.SaveSessionConfig(r.Context(), &cfg); err != nil {
		h.logger.Error("save session config", zap.String("user_id", cfg.UserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save session config")
		return
	}
	writeJSON(w, http.StatusOK, &cfg)
}

func (h *Handler) GetSessionConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	cfg, err := h.configs.SessionConfig(r.Context(), id)
	respondConfig(w, cfg, cfg == nil, err, "session config")
}

func respondConfig(w http.ResponseWriter, cfg any, missing bool, err error, name string) {
	switch {
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to load "+name)
	case missing:
		writeError(w, http.StatusNotFound, name+" not found")
	default:
		writeJSON(w, http.StatusOK, cfg)
	}
}
