package metrics

import (
	"context"
	"net/http"
	"strings"
	"unicode"

	"go.opentelemetry.io/otel/attribute"
)

type (
	Client interface {
		Inc(ctx context.Context, key string, value any, attributes ...attribute.KeyValue)
		Observe(ctx context.Context, key string, value float64, attributes ...attribute.KeyValue)
		Handler() http.Handler
		Shutdown(ctx context.Context) error
	}
)

// SanitizeName turns a dotted metric key such as "search_index.write.failure"
// into a name accepted by prometheus.
func SanitizeName(key string) string {
	var b strings.Builder

	b.Grow(len(key))

	for i, r := range key {
		switch {
		case r == '_' || r == ':' || unicode.IsLetter(r) && r < unicode.MaxASCII:
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsDigit(r) && i > 0:
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	return b.String()
}

// ToFloat converts the numeric value types accepted by Client.Inc.
func ToFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
