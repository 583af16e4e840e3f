package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/portaria/internal/logging"
	"github.com/BrandonDHaskell/portaria/internal/metrics"
)

const requestIDHeader = "X-Request-ID"

// requestLogger tags every request with an ID, puts a request-scoped logger
// in its context and logs one line when the response is done.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := r.Header.Get(requestIDHeader)
			if id == "" || len(id) > 64 {
				id = logging.GenerateRequestID()
			}
			w.Header().Set(requestIDHeader, id)

			ctx := logging.ContextWithRequestID(r.Context(), id)
			ctx = logging.ContextWithLogger(ctx, logger)

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			dur := time.Since(start)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			metrics.RecordAPIRequest(r.Method, route, strconv.Itoa(status), dur)

			ev := logger.Info()
			if status >= http.StatusInternalServerError {
				ev = logger.Error()
			}
			ev.Str("request_id", id).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("dur", dur).
				Str("from", r.RemoteAddr).
				Msg("request")
		})
	}
}
