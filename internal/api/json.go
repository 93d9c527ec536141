package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/tactica/internal/apperr"
	"github.com/starford/tactica/internal/models"
)

const maxBody = 10 << 20

type errResponse struct {
	Error string `json:"error"`
	// Code is a stable machine-readable reason such as not_found or conflict.
	Code string `json:"code,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg, Code: "invalid"}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// writeError maps service errors onto HTTP statuses.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errResponse{Error: "not found", Code: "not_found"})
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errResponse{Error: "revision mismatch", Code: "conflict"})
	case errors.Is(err, apperr.ErrNoMedia):
		writeJSON(w, http.StatusUnprocessableEntity, errResponse{Error: err.Error(), Code: "no_media"})
	case errors.Is(err, apperr.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errResponse{Error: "internal error", Code: "internal"})
	}
}

// setETag exposes the stored revision so clients can send it back in If-Match.
func setETag(w http.ResponseWriter, sess *models.Session) {
	if sess.Checksum != "" {
		w.Header().Set("ETag", `"`+sess.Checksum+`"`)
	}
}
