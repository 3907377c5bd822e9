package decorator

import (
	"context"
	"strings"
	"time"

	"github.com/architeacher/posts/pkg/metrics"
)

type (
	commandMetricsDecorator[C Command, R any] struct {
		base   CommandHandler[C, R]
		client metrics.Client
	}

	queryMetricsDecorator[Q Query, R Result] struct {
		base   QueryHandler[Q, R]
		client metrics.Client
	}
)

func (d commandMetricsDecorator[C, R]) Handle(ctx context.Context, cmd C) (R, error) {
	return measure(ctx, d.client, "commands."+strings.ToLower(actionName(cmd)), func() (R, error) {
		return d.base.Handle(ctx, cmd)
	})
}

func (d queryMetricsDecorator[Q, R]) Execute(ctx context.Context, query Q) (R, error) {
	return measure(ctx, d.client, "queries."+strings.ToLower(actionName(query)), func() (R, error) {
		return d.base.Execute(ctx, query)
	})
}

// measure records "<prefix>.duration" in seconds and bumps either
// "<prefix>.success" or "<prefix>.failure".
func measure[R any](ctx context.Context, client metrics.Client, prefix string, run func() (R, error)) (R, error) {
	if client == nil {
		return run()
	}

	start := time.Now()
	result, err := run()

	client.Observe(ctx, prefix+".duration", time.Since(start).Seconds())

	outcome := ".success"
	if err != nil {
		outcome = ".failure"
	}

	client.Inc(ctx, prefix+outcome, 1)

	return result, err
}
