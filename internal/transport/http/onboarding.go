package http

import (
	"errors"
	"net/http"

	"trade_engine/internal/broker"
	"trade_engine/internal/models"
)

func (h *Handler) LicenseStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	st, err := h.license.Validate(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) ValidateBroker(w http.ResponseWriter, r *http.Request) {
	var creds broker.Credentials
	if err := decode(r, &creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := models.Validate(&creds); err != nil {
		writeValidation(w, err)
		return
	}
	res, err := h.broker.Validate(r.Context(), creds)
	switch {
	case errors.Is(err, broker.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, res)
	case err != nil:
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeJSON(w, http.StatusOK, res)
	}
}
