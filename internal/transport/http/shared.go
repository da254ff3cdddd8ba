package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"ibp/internal/provider"
	"ibp/pkg/platform/sentinel"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON renders v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	var formatErr *provider.FormatError
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		status, message = http.StatusNotFound, "not found"
	case errors.Is(err, sentinel.ErrConflict):
		status, message = http.StatusConflict, "conflict"
	case errors.Is(err, provider.ErrUnknownJurisdiction):
		status, message = http.StatusBadRequest, err.Error()
	case errors.As(err, &formatErr):
		status, message = http.StatusBadRequest, err.Error()
	}

	writeJSON(w, status, errorResponse{Error: message})
}

// writeBadRequest renders a 400 with the given message.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: message})
}
