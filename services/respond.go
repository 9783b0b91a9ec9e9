package services

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError answers known errors with their mapped status and everything else with a 500
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	if status, message, ok := lookupError(err); ok {
		writeError(w, status, message)
		return
	}
	slog.Error(fallback, "error", err)
	writeError(w, http.StatusInternalServerError, fallback)
}

// decodeJSON reads a JSON body; an empty body leaves dst untouched
func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return ErrInvalidRequestBody
	}
	return nil
}
