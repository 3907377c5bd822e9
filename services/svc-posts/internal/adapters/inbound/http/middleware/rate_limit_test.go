package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/architeacher/posts/pkg/logger"
	"github.com/architeacher/posts/services/svc-posts/internal/adapters/inbound/http/middleware"
	"github.com/architeacher/posts/services/svc-posts/internal/config"
	"github.com/stretchr/testify/suite"
	"github.com/throttled/throttled/v2"
	"github.com/throttled/throttled/v2/store/memstore"
)

var errStoreDown = errors.New("store down")

type failingStore struct{}

func (failingStore) GetWithTime(context.Context, string) (int64, time.Time, error) {
	return 0, time.Time{}, errStoreDown
}

func (failingStore) SetIfNotExistsWithTTL(context.Context, string, int64, time.Duration) (bool, error) {
	return false, errStoreDown
}

func (failingStore) CompareAndSwapWithTTL(context.Context, string, int64, int64, time.Duration) (bool, error) {
	return false, errStoreDown
}

type RateLimitingTestSuite struct {
	suite.Suite
	cfg config.RateLimit
}

func TestRateLimitingTestSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(RateLimitingTestSuite))
}

func (s *RateLimitingTestSuite) SetupTest() {
	s.cfg = config.RateLimit{
		Enabled:           true,
		RequestsPerSecond: 1,
		BurstSize:         1,
		SkipPaths:         []string{"/health"},
		GracefulDegraded:  true,
	}
}

func (s *RateLimitingTestSuite) handler(cfg config.RateLimit, store throttled.GCRAStoreCtx) http.Handler {
	mw, err := middleware.RateLimiting(cfg, store, logger.NewTestLogger())
	s.Require().NoError(err)

	return mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func (s *RateLimitingTestSuite) memStore() throttled.GCRAStoreCtx {
	store, err := memstore.NewCtx(100)
	s.Require().NoError(err)

	return store
}

func send(handler http.Handler, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec
}

func (s *RateLimitingTestSuite) TestLimitsPerClient() {
	s.T().Parallel()

	handler := s.handler(s.cfg, s.memStore())

	first := send(handler, "/api/posts", "10.0.0.1:4000")
	s.Require().Equal(http.StatusOK, first.Code)
	s.Require().Equal("2", first.Header().Get(middleware.RateLimitLimitHeader))
	s.Require().Equal("1", first.Header().Get(middleware.RateLimitRemainingHeader))
	s.Require().NotEmpty(first.Header().Get(middleware.RateLimitResetHeader))

	s.Require().Equal(http.StatusOK, send(handler, "/api/posts", "10.0.0.1:4001").Code)

	limited := send(handler, "/api/posts", "10.0.0.1:4002")
	s.Require().Equal(http.StatusTooManyRequests, limited.Code)
	s.Require().Equal("application/problem+json", limited.Header().Get("Content-Type"))
	s.Require().Contains(limited.Body.String(), `"status":429`)

	retryAfter, err := strconv.Atoi(limited.Header().Get(middleware.RetryAfterHeader))
	s.Require().NoError(err)
	s.Require().Positive(retryAfter)

	s.Require().Equal(http.StatusOK, send(handler, "/api/posts", "10.0.0.2:4000").Code)
}

func (s *RateLimitingTestSuite) TestSkipPaths() {
	s.T().Parallel()

	handler := s.handler(s.cfg, s.memStore())

	for range 5 {
		rec := send(handler, "/health/readiness", "10.0.0.3:4000")

		s.Require().Equal(http.StatusOK, rec.Code)
		s.Require().Empty(rec.Header().Get(middleware.RateLimitLimitHeader))
	}
}

func (s *RateLimitingTestSuite) TestStoreFailure() {
	s.T().Parallel()

	cases := []struct {
		name       string
		degraded   bool
		wantStatus int
	}{
		{name: "graceful degradation lets requests through", degraded: true, wantStatus: http.StatusOK},
		{name: "strict mode rejects", degraded: false, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			cfg := s.cfg
			cfg.GracefulDegraded = tc.degraded

			rec := send(s.handler(cfg, failingStore{}), "/api/posts", "10.0.0.4:4000")

			s.Require().Equal(tc.wantStatus, rec.Code)
		})
	}
}
