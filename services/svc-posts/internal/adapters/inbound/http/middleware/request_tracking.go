package middleware

import (
	"net/http"

	"github.com/architeacher/posts/pkg/logger"
	"github.com/google/uuid"
)

const (
	RequestIDHeader     = "X-Request-Id"
	CorrelationIDHeader = "X-Correlation-Id"
)

// RequestTracking echoes the request and correlation ids back to the client,
// generating whichever one is missing, and stores them for the logger.
func RequestTracking() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := headerOrNewID(r, RequestIDHeader)
			correlationID := headerOrNewID(r, CorrelationIDHeader)

			w.Header().Set(RequestIDHeader, requestID)
			w.Header().Set(CorrelationIDHeader, correlationID)

			next.ServeHTTP(w, r.WithContext(logger.ContextWithIDs(r.Context(), requestID, correlationID)))
		})
	}
}

func headerOrNewID(r *http.Request, header string) string {
	if id := r.Header.Get(header); id != "" {
		return id
	}

	return uuid.NewString()
}
