package middleware

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/architeacher/posts/pkg/logger"
	"github.com/architeacher/posts/services/svc-posts/internal/config"
	"github.com/rs/zerolog"
)

var probePaths = []string{"/health", "/health/liveness", "/health/readiness", "/metrics"}

// AccessLog writes one line per request. Probe and scrape requests are left
// out unless cfg.LogHealthChecks is set.
func AccessLog(log logger.Logger, cfg config.AccessLog) func(http.Handler) http.Handler {
	log = log.Component("http")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.LogHealthChecks && isProbe(r.URL.Path) {
				next.ServeHTTP(w, r)

				return
			}

			start := time.Now()
			ww := wrapWriter(w, r)

			next.ServeHTTP(ww, r)

			status := statusOf(ww)
			reqLog := log.WithContext(r.Context())

			event := reqLog.WithLevel(levelFor(status)).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Str("proto", r.Proto).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Int64("duration_ms", time.Since(start).Milliseconds())

			if cfg.IncludeQueryParams && r.URL.RawQuery != "" {
				event = event.Str("query", r.URL.RawQuery)
			}

			event.Send()
		})
	}
}

func levelFor(status int) zerolog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zerolog.ErrorLevel
	case status >= http.StatusBadRequest:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

func isProbe(path string) bool {
	trimmed := strings.TrimSuffix(path, "/")

	return slices.Contains(probePaths, trimmed)
}
