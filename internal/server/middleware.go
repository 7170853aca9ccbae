package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"
)

// RequestLogger logs one line per request with its status and duration.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}

				kv := []any{
					"method", r.Method,
					"path", r.URL.Path,
					"status", status,
					"duration", time.Since(start),
				}
				if id := middleware.GetReqID(r.Context()); id != "" {
					kv = append(kv, "request_id", id)
				}

				if status >= http.StatusInternalServerError {
					logger.Error("request", kv...)
				} else {
					logger.Info("request", kv...)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
