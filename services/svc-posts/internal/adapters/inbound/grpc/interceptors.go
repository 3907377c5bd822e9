package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/architeacher/posts/pkg/logger"
	"github.com/architeacher/posts/services/svc-posts/internal/config"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	MetadataKeyRequestID     = "x-request-id"
	MetadataKeyCorrelationID = "x-correlation-id"

	healthServicePrefix = "/grpc.health.v1.Health/"
	redacted            = "[REDACTED]"
)

var sensitiveMetadata = map[string]struct{}{
	"authorization": {},
	"cookie":        {},
	"x-api-key":     {},
}

// ContextExtractorInterceptor carries the request and correlation ids sent
// as metadata into the context, generating a request id when none was sent.
func ContextExtractorInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)

		requestID := firstValue(md, MetadataKeyRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		return handler(logger.ContextWithIDs(ctx, requestID, firstValue(md, MetadataKeyCorrelationID)), req)
	}
}

// AccessLogInterceptor logs every unary call with its status code. Health
// probes are skipped unless cfg.LogHealthChecks is set.
func AccessLogInterceptor(log logger.Logger, cfg config.AccessLog) grpc.UnaryServerInterceptor {
	log = log.Component("grpc")

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !cfg.Enabled || !cfg.LogHealthChecks && strings.HasPrefix(info.FullMethod, healthServicePrefix) {
			return handler(ctx, req)
		}

		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		level := zerolog.InfoLevel
		if code != codes.OK {
			level = zerolog.WarnLevel
		}

		reqLog := log.WithContext(ctx)

		event := reqLog.WithLevel(level).
			Str("method", info.FullMethod).
			Str("grpc_code", code.String()).
			Dur("duration", time.Since(start))

		if err != nil {
			event = event.Str("error", status.Convert(err).Message())
		}

		if cfg.IncludeMetadata {
			if md, ok := metadata.FromIncomingContext(ctx); ok {
				event = event.Interface("metadata", sanitizeMetadata(md))
			}
		}

		event.Msg("gRPC call handled")

		return resp, err
	}
}

func firstValue(md metadata.MD, key string) string {
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}

	return ""
}

func sanitizeMetadata(md metadata.MD) map[string]string {
	out := make(map[string]string, len(md))

	for key, values := range md {
		switch _, sensitive := sensitiveMetadata[strings.ToLower(key)]; {
		case sensitive:
			out[key] = redacted
		case len(values) > 0:
			out[key] = values[0]
		}
	}

	return out
}
