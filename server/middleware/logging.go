package middleware

import (
	"net/http"
	"slices"
	"time"

	"github.com/kbukum/gears/logger"
)

var quietPaths = []string{"/health", "/info"}

// RequestLogger logs each request at a level chosen by its status. Health
// and info probes are not logged.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(quietPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := record(w)
			next.ServeHTTP(rec, r)

			status := rec.Status()
			fields := logger.Fields(
				"method", r.Method,
				"path", r.URL.Path,
				"bytes", rec.bytes,
				logger.FieldStatus, status,
				logger.FieldDuration, time.Since(start).Milliseconds(),
			)
			l := log.WithContext(r.Context())
			switch {
			case status >= 500:
				l.Error("request completed", fields)
			case status >= 400:
				l.Warn("request completed", fields)
			default:
				l.Debug("request completed", fields)
			}
		})
	}
}
