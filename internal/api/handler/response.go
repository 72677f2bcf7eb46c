// Package handler implements the HTTP endpoints.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/iconidentify/chalkboard/internal/domain"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError maps a service error onto a status code and JSON body.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrEmptyText):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, domain.ErrMetadataNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, domain.ErrProviderUnavailable):
		status = http.StatusServiceUnavailable
		message = err.Error()
	case errors.Is(err, domain.ErrRateLimited):
		status = http.StatusTooManyRequests
		message = "rate limited by upstream provider"
	case errors.Is(err, domain.ErrSynthesisFailed):
		status = http.StatusBadGateway
		message = err.Error()
	default:
		logger.Error("request failed", "error", err)
	}

	writeJSON(w, status, ErrorResponse{Error: message})
}

// decodeJSON reads a JSON body into v. Failures wrap ErrInvalidRequest.
func decodeJSON(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidRequest)
	}
	return nil
}

func missing(field string) error {
	return fmt.Errorf("%w: %s is required", domain.ErrInvalidRequest, field)
}
