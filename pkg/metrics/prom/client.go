// Package prom implements metrics.Client on a dedicated prometheus registry.
// Collectors are created lazily the first time a key is seen; the label set
// of that first call is fixed for the lifetime of the collector.
package prom

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"github.com/architeacher/posts/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
)

var _ metrics.Client = (*Client)(nil)

type Client struct {
	namespace string
	registry  *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

func NewClient(namespace string) *Client {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Client{
		namespace:  metrics.SanitizeName(namespace),
		registry:   registry,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Registry exposes the underlying registry for tests and extra collectors.
func (c *Client) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Client) Inc(_ context.Context, key string, value any, attributes ...attribute.KeyValue) {
	v, ok := metrics.ToFloat(value)
	if !ok || v < 0 {
		return
	}

	names, values := splitAttributes(attributes)

	vec := c.counter(metrics.SanitizeName(key)+"_total", names)
	if vec == nil {
		return
	}

	counter, err := vec.GetMetricWithLabelValues(values...)
	if err != nil {
		return
	}

	counter.Add(v)
}

func (c *Client) Observe(_ context.Context, key string, value float64, attributes ...attribute.KeyValue) {
	names, values := splitAttributes(attributes)

	vec := c.histogram(metrics.SanitizeName(key), names)
	if vec == nil {
		return
	}

	observer, err := vec.GetMetricWithLabelValues(values...)
	if err != nil {
		return
	}

	observer.Observe(value)
}

func (c *Client) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Client) Shutdown(_ context.Context) error {
	return nil
}

func (c *Client) counter(name string, labels []string) *prometheus.CounterVec {
	c.mu.Lock()
	defer c.mu.Unlock()

	if vec, ok := c.counters[name]; ok {
		return vec
	}

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.namespace,
		Name:      name,
		Help:      name,
	}, labels)

	if err := c.registry.Register(vec); err != nil {
		return nil
	}

	c.counters[name] = vec

	return vec
}

func (c *Client) histogram(name string, labels []string) *prometheus.HistogramVec {
	c.mu.Lock()
	defer c.mu.Unlock()

	if vec, ok := c.histograms[name]; ok {
		return vec
	}

	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.namespace,
		Name:      name,
		Help:      name,
		Buckets:   prometheus.DefBuckets,
	}, labels)

	if err := c.registry.Register(vec); err != nil {
		return nil
	}

	c.histograms[name] = vec

	return vec
}

func splitAttributes(attributes []attribute.KeyValue) ([]string, []string) {
	sorted := make([]attribute.KeyValue, len(attributes))
	copy(sorted, attributes)

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Key < sorted[j].Key
	})

	names := make([]string, len(sorted))
	values := make([]string, len(sorted))

	for i, kv := range sorted {
		names[i] = metrics.SanitizeName(string(kv.Key))
		values[i] = kv.Value.Emit()
	}

	return names, values
}
