package metrics_test

import (
	"testing"
	"time"

	"github.com/architeacher/posts/pkg/metrics"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"search_index.write.failure": "search_index_write_failure",
		"Commands.CreatePost":        "commands_createpost",
		"9lives":                     "_lives",
		"http-requests":              "http_requests",
	}

	for in, want := range cases {
		require.Equal(t, want, metrics.SanitizeName(in), in)
	}
}

func TestToFloat(t *testing.T) {
	t.Parallel()

	v, ok := metrics.ToFloat(int64(3))
	require.True(t, ok)
	require.InDelta(t, 3.0, v, 0)

	_, ok = metrics.ToFloat(time.Second)
	require.False(t, ok)
}
