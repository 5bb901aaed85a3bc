package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	apperrors "github.com/socialchef/recipe-agent/internal/errors"
)

// ErrorResponse is the body of every structured error.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err *apperrors.AppError) {
	writeJSON(w, err.StatusCode, ErrorResponse{
		Success: false,
		Error:   err.Message,
		Code:    err.Code(),
	})
}
