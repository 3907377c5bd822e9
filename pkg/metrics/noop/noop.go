// Package noop discards every measurement. It backs the service when
// METRICS_ENABLED is false.
package noop

import (
	"context"
	"net/http"

	"github.com/architeacher/posts/pkg/metrics"
	"go.opentelemetry.io/otel/attribute"
)

var _ metrics.Client = MetricsClient{}

type MetricsClient struct{}

func NewMetricsClient() MetricsClient {
	return MetricsClient{}
}

func (MetricsClient) Inc(context.Context, string, any, ...attribute.KeyValue) {}

func (MetricsClient) Observe(context.Context, string, float64, ...attribute.KeyValue) {}

// Handler answers 404 so a scrape against a disabled exporter fails loudly.
func (MetricsClient) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "metrics collection is disabled", http.StatusNotFound)
	})
}

func (MetricsClient) Shutdown(context.Context) error {
	return nil
}
