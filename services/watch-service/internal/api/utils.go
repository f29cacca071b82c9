package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"datawatch/services/watch-service/internal/refresh"
)

type errorResponse struct {
	Error string `json:"error"`
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("invalid json payload")
		}
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// sessionErrorStatus maps registry errors to HTTP status codes and the
// message returned to the caller.
func sessionErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, refresh.ErrSessionNotFound):
		return http.StatusNotFound, "session not found"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "session did not respond in time"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "request canceled"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func writeSessionError(w http.ResponseWriter, err error) {
	status, message := sessionErrorStatus(err)
	writeError(w, status, message)
}
