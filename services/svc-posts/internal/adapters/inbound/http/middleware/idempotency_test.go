package middleware_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/architeacher/posts/pkg/idempotency"
	"github.com/architeacher/posts/pkg/logger"
	"github.com/architeacher/posts/services/svc-posts/internal/adapters/inbound/http/middleware"
	"github.com/architeacher/posts/services/svc-posts/internal/config"
	"github.com/architeacher/posts/services/svc-posts/internal/ports"
	"github.com/stretchr/testify/suite"
)

const idempotencyKey = "create-post-000000000001"

type memoryIdempotencyStore struct {
	mu        sync.Mutex
	responses map[string]*ports.StoredResponse
	locks     map[string]bool
	err       error
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{
		responses: make(map[string]*ports.StoredResponse),
		locks:     make(map[string]bool),
	}
}

func (m *memoryIdempotencyStore) Get(_ context.Context, key string) (*ports.StoredResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	return m.responses[key], nil
}

func (m *memoryIdempotencyStore) Set(_ context.Context, key string, response *ports.StoredResponse, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responses[key] = response

	return nil
}

func (m *memoryIdempotencyStore) Lock(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locks[key] {
		return false, nil
	}

	m.locks[key] = true

	return true, nil
}

func (m *memoryIdempotencyStore) Unlock(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.locks, key)

	return nil
}

type IdempotencyTestSuite struct {
	suite.Suite
	cfg   config.Idempotency
	store *memoryIdempotencyStore
	calls int
}

func TestIdempotencyTestSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(IdempotencyTestSuite))
}

func (s *IdempotencyTestSuite) SetupTest() {
	s.cfg = config.Idempotency{
		Enabled:          true,
		CacheTTL:         time.Hour,
		LockTTL:          time.Second,
		Methods:          []string{http.MethodPost},
		HeaderName:       "Idempotency-Key",
		ReplayedHeader:   "Idempotent-Replayed",
		GracefulDegraded: true,
	}
	s.store = newMemoryIdempotencyStore()
	s.calls = 0
}

func (s *IdempotencyTestSuite) handler(cfg config.Idempotency, status int) http.Handler {
	return middleware.Idempotency(s.store, cfg, 1024, logger.NewTestLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.calls++

			body, err := io.ReadAll(r.Body)
			s.Require().NoError(err)

			key, _ := idempotency.FromContext(r.Context())

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Location", "/api/posts/1")
			w.Header().Set("X-Seen-Key", key)
			w.WriteHeader(status)
			_, _ = w.Write(body)
		}),
	)
}

func post(handler http.Handler, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec
}

func (s *IdempotencyTestSuite) TestReplaysFirstResponse() {
	handler := s.handler(s.cfg, http.StatusCreated)

	first := post(handler, idempotencyKey, `{"title":"a"}`)
	s.Require().Equal(http.StatusCreated, first.Code)
	s.Require().Equal(idempotencyKey, first.Header().Get("X-Seen-Key"))
	s.Require().Empty(first.Header().Get("Idempotent-Replayed"))

	second := post(handler, idempotencyKey, `{"title":"a"}`)
	s.Require().Equal(http.StatusCreated, second.Code)
	s.Require().Equal("true", second.Header().Get("Idempotent-Replayed"))
	s.Require().Equal("/api/posts/1", second.Header().Get("Location"))
	s.Require().Equal("application/json", second.Header().Get("Content-Type"))
	s.Require().JSONEq(`{"title":"a"}`, second.Body.String())

	s.Require().Equal(1, s.calls)
}

func (s *IdempotencyTestSuite) TestDifferentBodyIsRejected() {
	handler := s.handler(s.cfg, http.StatusCreated)

	s.Require().Equal(http.StatusCreated, post(handler, idempotencyKey, `{"title":"a"}`).Code)

	rec := post(handler, idempotencyKey, `{"title":"b"}`)
	s.Require().Equal(http.StatusUnprocessableEntity, rec.Code)
	s.Require().Equal("application/problem+json", rec.Header().Get("Content-Type"))
	s.Require().Equal(1, s.calls)
}

func (s *IdempotencyTestSuite) TestInFlightRequestConflicts() {
	key := idempotency.CacheKey(http.MethodPost, "/api/posts", idempotencyKey)
	s.store.locks[key] = true

	rec := post(s.handler(s.cfg, http.StatusCreated), idempotencyKey, `{"title":"a"}`)

	s.Require().Equal(http.StatusConflict, rec.Code)
	s.Require().Zero(s.calls)
}

func (s *IdempotencyTestSuite) TestFailuresAreNotStored() {
	handler := s.handler(s.cfg, http.StatusConflict)

	s.Require().Equal(http.StatusConflict, post(handler, idempotencyKey, `{"title":"a"}`).Code)
	s.Require().Equal(http.StatusConflict, post(handler, idempotencyKey, `{"title":"a"}`).Code)

	s.Require().Equal(2, s.calls)
	s.Require().Empty(s.store.responses)
	s.Require().Empty(s.store.locks)
}

func (s *IdempotencyTestSuite) TestPassThrough() {
	cases := []struct {
		name   string
		method string
		key    string
	}{
		{name: "no key", method: http.MethodPost},
		{name: "method not covered", method: http.MethodPut, key: idempotencyKey},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.calls = 0
			handler := s.handler(s.cfg, http.StatusOK)

			for range 2 {
				req := httptest.NewRequest(tc.method, "/api/posts", strings.NewReader(`{}`))
				if tc.key != "" {
					req.Header.Set("Idempotency-Key", tc.key)
				}

				handler.ServeHTTP(httptest.NewRecorder(), req)
			}

			s.Require().Equal(2, s.calls)
		})
	}
}

func (s *IdempotencyTestSuite) TestInvalidKey() {
	rec := post(s.handler(s.cfg, http.StatusCreated), "short", `{}`)

	s.Require().Equal(http.StatusBadRequest, rec.Code)
	s.Require().Contains(rec.Body.String(), "at least 16 characters")
	s.Require().Zero(s.calls)
}

func (s *IdempotencyTestSuite) TestStoreFailure() {
	s.store.err = errors.New("connection refused")

	cases := []struct {
		name       string
		degraded   bool
		wantStatus int
		wantCalls  int
	}{
		{name: "graceful degradation", degraded: true, wantStatus: http.StatusCreated, wantCalls: 1},
		{name: "strict mode", degraded: false, wantStatus: http.StatusServiceUnavailable, wantCalls: 0},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.calls = 0

			cfg := s.cfg
			cfg.GracefulDegraded = tc.degraded

			rec := post(s.handler(cfg, http.StatusCreated), idempotencyKey, `{"title":"a"}`)

			s.Require().Equal(tc.wantStatus, rec.Code)
			s.Require().Equal(tc.wantCalls, s.calls)
		})
	}
}
