package httpapi

import (
	"encoding/json"
	"net/http"

	"chatgate/internal/session"
	"chatgate/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusForError maps session errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case session.IsConfiguration(err):
		return http.StatusBadRequest
	case session.IsModelUnknown(err):
		return http.StatusNotFound
	case session.IsInitialization(err), session.IsReload(err), session.IsGeneration(err):
		return http.StatusBadGateway
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// writeServiceError maps err to a status and writes the error payload.
func writeServiceError(w http.ResponseWriter, err error) {
	writeJSONError(w, statusForError(err), err.Error())
}
