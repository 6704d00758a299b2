package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/lox/campuswatt/internal/campus"
	"github.com/lox/campuswatt/internal/optimizer"
)

// envelope wraps every JSON response from the data API.
type envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, data any, message string) {
	writeJSON(w, http.StatusOK, envelope{
		Success:   true,
		Data:      data,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{
		Success:   false,
		Message:   msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, campus.ErrInvalidDate),
		errors.Is(err, optimizer.ErrInvalidDate),
		errors.Is(err, optimizer.ErrCSVNotFound):
		return http.StatusBadRequest
	case errors.Is(err, optimizer.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, optimizer.ErrTimeout):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
