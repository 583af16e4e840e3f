package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/BrandonDHaskell/portaria/internal/logging"
	"github.com/BrandonDHaskell/portaria/internal/portaria/service"
	"github.com/BrandonDHaskell/portaria/internal/portaria/types"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("marshal response")
		http.Error(w, "json marshal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: code, Message: msg})
}

// writeServiceError maps the service error taxonomy onto HTTP. Storage
// failures are logged with their cause; callers only see a generic message.
func writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Code, ve.Message)
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	default:
		logging.Ctx(ctx).Error().Err(err).Str("op", op).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}
