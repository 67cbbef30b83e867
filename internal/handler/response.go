package handler

import (
	"encoding/json"
	"net/http"

	"plantdoc/internal/logger"
	"plantdoc/internal/service"
	"plantdoc/internal/service/prediction"

	"github.com/pkg/errors"
)

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// writeError answers with {"error": message}.
func writeError(w http.ResponseWriter, logger *logger.Logger, status int, message string) {
	writeJSON(w, logger, status, map[string]string{"error": message})
}

// statusFor maps a diagnosis error to an HTTP status.
func statusFor(err error) int {
	var apiErr *prediction.APIError
	switch {
	case errors.Is(err, service.ErrUnsupportedImage), errors.Is(err, service.ErrEmptyImage):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrExampleNotFound):
		return http.StatusNotFound
	case errors.As(err, &apiErr), errors.Is(err, prediction.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// requireMethod answers 405 unless r uses method.
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}
