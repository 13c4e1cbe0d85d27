package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"trade_engine/internal/runner"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error  string       `json:"error"`
	Fields []FieldError `json:"fields,omitempty"`
}

type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
		return
	}
	writeRaw(w, status, body)
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeValidation answers 422 with the failing fields, or 400 for errors
// that are not field validation failures.
func writeValidation(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp := ErrorResponse{Error: "validation failed"}
	for _, fe := range verrs {
		resp.Fields = append(resp.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
	}
	writeJSON(w, http.StatusUnprocessableEntity, resp)
}

// writeServiceError maps runner errors to statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, runner.ErrPersistence):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable, retry with the same Idempotency-Key")
	case errors.Is(err, runner.ErrConfigRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, runner.ErrLicense):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decode(r *http.Request, v any) error {
	return sonic.ConfigDefault.NewDecoder(r.Body).Decode(v)
}

// userID reads the required user_id query parameter.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.URL.Query().Get("user_id")
	if id == "" {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "validation failed",
			Fields: []FieldError{{Field: "user_id", Rule: "required"}},
		})
		return "", false
	}
	return id, true
}

// limit reads an optional limit query parameter bounded to [1, 500].
func limit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 100, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 500 {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "validation failed",
			Fields: []FieldError{{Field: "limit", Rule: "range", Param: "1-500"}},
		})
		return 0, false
	}
	return n, true
}
