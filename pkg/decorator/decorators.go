// Package decorator wraps CQRS handlers with logging, metrics and tracing.
// Queries may additionally be served from a cache, see NewQueryCachingDecorator.
package decorator

import (
	"context"
	"fmt"
	"strings"

	"github.com/architeacher/posts/pkg/logger"
	"github.com/architeacher/posts/pkg/metrics"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	Command any
	Query   any
	Result  any

	CommandHandler[C Command, R any] interface {
		Handle(ctx context.Context, cmd C) (R, error)
	}

	QueryHandler[Q Query, R Result] interface {
		Execute(ctx context.Context, query Q) (R, error)
	}
)

// ApplyCommandDecorators runs logging outermost so the logged duration
// includes metric and span bookkeeping.
func ApplyCommandDecorators[C Command, R any](
	handler CommandHandler[C, R],
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) CommandHandler[C, R] {
	traced := commandTracingDecorator[C, R]{base: handler, tracerProvider: tracerProvider}
	measured := commandMetricsDecorator[C, R]{base: traced, client: metricsClient}

	return commandLoggingDecorator[C, R]{base: measured, logger: log}
}

func ApplyQueryDecorators[Q Query, R Result](
	handler QueryHandler[Q, R],
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) QueryHandler[Q, R] {
	traced := queryTracingDecorator[Q, R]{base: handler, tracerProvider: tracerProvider}
	measured := queryMetricsDecorator[Q, R]{base: traced, client: metricsClient}

	return queryLoggingDecorator[Q, R]{base: measured, logger: log}
}

// actionName is the bare type name of a command or query: package path,
// pointer marks and type arguments are dropped.
func actionName(v any) string {
	name, _, _ := strings.Cut(fmt.Sprintf("%T", v), "[")

	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}

	return strings.TrimLeft(name, "*")
}
