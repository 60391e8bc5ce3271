package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pubfeed/apiserver/internal/services"
)

var (
	errMissingAuthorization = errors.New("missing authorization")
	errInvalidAuthorization = errors.New("invalid authorization")
)

// ErrorResponse is the error payload. Data carries the violation list
// for validation failures.
type ErrorResponse struct {
	Error string               `json:"error"`
	Kind  string               `json:"kind,omitempty"`
	Data  []services.Violation `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps a structured service error onto the response.
// Anything else becomes a 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		writeJSON(w, svcErr.Code, ErrorResponse{
			Error: svcErr.Message,
			Kind:  svcErr.Kind,
			Data:  svcErr.Violations,
		})
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
