package decorator_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/architeacher/posts/pkg/decorator"
)

type testQuery struct {
	ID string
}

type testResult struct {
	Value string
}

type mockCache struct {
	mu       sync.Mutex
	data     map[string]testResult
	epochs   map[string]int64
	getErr   error
	setErr   error
	epochErr error
	sets     int
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string]testResult), epochs: make(map[string]int64)}
}

func (m *mockCache) invalidate(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, id)
	m.epochs[id]++
}

func (m *mockCache) Epoch(_ context.Context, query testQuery) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.epochs[query.ID], m.epochErr
}

func (m *mockCache) Get(_ context.Context, query testQuery) (testResult, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return testResult{}, false, m.getErr
	}

	result, ok := m.data[query.ID]

	return result, ok, nil
}

func (m *mockCache) Set(_ context.Context, query testQuery, result testResult, epoch int64, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sets++

	if m.setErr != nil {
		return m.setErr
	}

	if m.epochs[query.ID] != epoch {
		return nil
	}

	m.data[query.ID] = result

	return nil
}

type countingHandler struct {
	calls  int
	result testResult
	err    error
	during func()
}

func (h *countingHandler) Execute(_ context.Context, _ testQuery) (testResult, error) {
	h.calls++

	if h.during != nil {
		h.during()
	}

	return h.result, h.err
}

type statusLog struct {
	mu       sync.Mutex
	statuses []decorator.CacheStatus
}

func (l *statusLog) record(_ context.Context, status decorator.CacheStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.statuses = append(l.statuses, status)
}

func TestQueryCachingDecorator(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		config       decorator.CacheConfig
		seed         map[string]testResult
		getErr       error
		setErr       error
		epochErr     error
		handlerErr   error
		wantValue    string
		wantErr      bool
		wantCalls    int
		wantStatuses []decorator.CacheStatus
	}{
		{
			name:         "bypasses cache when disabled",
			config:       decorator.CacheConfig{Enabled: false},
			wantValue:    "fresh",
			wantCalls:    1,
			wantStatuses: []decorator.CacheStatus{decorator.CacheStatusBypass},
		},
		{
			name:         "serves cached value on hit",
			config:       decorator.CacheConfig{Enabled: true, TTL: time.Minute},
			seed:         map[string]testResult{"42": {Value: "cached"}},
			wantValue:    "cached",
			wantCalls:    0,
			wantStatuses: []decorator.CacheStatus{decorator.CacheStatusHit},
		},
		{
			name:         "falls through on miss",
			config:       decorator.CacheConfig{Enabled: true, TTL: time.Minute},
			wantValue:    "fresh",
			wantCalls:    1,
			wantStatuses: []decorator.CacheStatus{decorator.CacheStatusMiss},
		},
		{
			name:         "falls through when cache read fails",
			config:       decorator.CacheConfig{Enabled: true, TTL: time.Minute},
			getErr:       errors.New("connection refused"),
			wantValue:    "fresh",
			wantCalls:    1,
			wantStatuses: []decorator.CacheStatus{decorator.CacheStatusError},
		},
		{
			name:         "returns result even when cache write fails",
			config:       decorator.CacheConfig{Enabled: true, TTL: time.Minute},
			setErr:       errors.New("read only replica"),
			wantValue:    "fresh",
			wantCalls:    1,
			wantStatuses: []decorator.CacheStatus{decorator.CacheStatusMiss, decorator.CacheStatusError},
		},
		{
			name:         "skips the write back when the epoch is unreadable",
			config:       decorator.CacheConfig{Enabled: true, TTL: time.Minute},
			epochErr:     errors.New("i/o timeout"),
			wantValue:    "fresh",
			wantCalls:    1,
			wantStatuses: []decorator.CacheStatus{decorator.CacheStatusMiss, decorator.CacheStatusError},
		},
		{
			name:         "propagates handler error",
			config:       decorator.CacheConfig{Enabled: true, TTL: time.Minute},
			handlerErr:   errors.New("not found"),
			wantErr:      true,
			wantCalls:    1,
			wantStatuses: []decorator.CacheStatus{decorator.CacheStatusMiss},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cache := newMockCache()
			for k, v := range tc.seed {
				cache.data[k] = v
			}

			cache.getErr = tc.getErr
			cache.setErr = tc.setErr
			cache.epochErr = tc.epochErr

			handler := &countingHandler{result: testResult{Value: "fresh"}, err: tc.handlerErr}
			statuses := &statusLog{}

			d := decorator.NewQueryCachingDecorator[testQuery, testResult](handler, cache, tc.config, statuses.record)

			result, err := d.Execute(context.Background(), testQuery{ID: "42"})

			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				require.Equal(t, tc.wantValue, result.Value)
			}

			require.Equal(t, tc.wantCalls, handler.calls)
			require.Equal(t, tc.wantStatuses, statuses.statuses)
		})
	}
}

func TestQueryCachingDecorator_WritesBackBeforeReturning(t *testing.T) {
	t.Parallel()

	cache := newMockCache()
	handler := &countingHandler{result: testResult{Value: "fresh"}}

	d := decorator.NewQueryCachingDecorator[testQuery, testResult](
		handler, cache, decorator.CacheConfig{Enabled: true, TTL: time.Minute}, nil,
	)

	_, err := d.Execute(context.Background(), testQuery{ID: "7"})
	require.NoError(t, err)
	require.Equal(t, 1, cache.sets)

	result, err := d.Execute(context.Background(), testQuery{ID: "7"})
	require.NoError(t, err)
	require.Equal(t, "fresh", result.Value)
	require.Equal(t, 1, handler.calls)
}

func TestQueryCachingDecorator_InvalidationDuringReadWins(t *testing.T) {
	t.Parallel()

	cache := newMockCache()
	handler := &countingHandler{result: testResult{Value: "v1"}}
	handler.during = func() { cache.invalidate("7") }

	d := decorator.NewQueryCachingDecorator[testQuery, testResult](
		handler, cache, decorator.CacheConfig{Enabled: true, TTL: time.Minute}, nil,
	)

	result, err := d.Execute(context.Background(), testQuery{ID: "7"})
	require.NoError(t, err)
	require.Equal(t, "v1", result.Value)
	require.NotContains(t, cache.data, "7")

	handler.during = nil
	handler.result = testResult{Value: "v2"}

	result, err = d.Execute(context.Background(), testQuery{ID: "7"})
	require.NoError(t, err)
	require.Equal(t, "v2", result.Value)
	require.Equal(t, 2, handler.calls)
	require.Equal(t, testResult{Value: "v2"}, cache.data["7"])
}

func TestGetCacheStatus_DefaultsToBypass(t *testing.T) {
	t.Parallel()

	require.Equal(t, decorator.CacheStatusBypass, decorator.GetCacheStatus(context.Background()))

	ctx := decorator.WithCacheStatus(context.Background(), decorator.CacheStatusHit)
	require.Equal(t, decorator.CacheStatusHit, decorator.GetCacheStatus(ctx))
}
