package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/dealmachine/internal/fieldstore"
	"github.com/sells-group/dealmachine/internal/ocr"
	"github.com/sells-group/dealmachine/internal/store"
)

var (
	errSessionNotFound = errors.New("session not found")
	errBadRequest      = errors.New("invalid request body")
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		zap.L().Error("server: request failed", zap.Int("status", status), zap.Error(err))
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var verr *fieldstore.ValidationError
	switch {
	case errors.Is(err, errSessionNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ocr.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ocr.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ocr.ErrUnreadablePDF):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
