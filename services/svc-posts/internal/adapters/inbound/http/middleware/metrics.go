package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/architeacher/posts/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
)

const (
	httpMethodKey     = "method"
	httpRouteKey      = "route"
	httpStatusCodeKey = "status_code"

	httpRequestTotal    = "http_requests_total"
	httpRequestDuration = "http_request_duration_seconds"
	httpResponseSize    = "http_response_size_bytes"
)

type MetricsMiddleware struct {
	metricsClient metrics.Client
}

func NewMetricsMiddleware(metricsClient metrics.Client) *MetricsMiddleware {
	return &MetricsMiddleware{
		metricsClient: metricsClient,
	}
}

// Middleware records one sample per request, labelled by the matched route
// pattern so path parameters do not explode the label set.
func (m *MetricsMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		ww := wrapWriter(w, r)

		next.ServeHTTP(ww, r)

		attrs := []attribute.KeyValue{
			attribute.String(httpMethodKey, r.Method),
			attribute.String(httpRouteKey, routePattern(r)),
			attribute.String(httpStatusCodeKey, strconv.Itoa(statusOf(ww))),
		}

		m.metricsClient.Inc(r.Context(), httpRequestTotal, 1, attrs...)
		m.metricsClient.Observe(r.Context(), httpRequestDuration, time.Since(startTime).Seconds(), attrs...)
		m.metricsClient.Observe(r.Context(), httpResponseSize, float64(ww.BytesWritten()), attrs...)
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	return "unmatched"
}
