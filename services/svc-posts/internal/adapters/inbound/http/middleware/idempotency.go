package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/architeacher/posts/pkg/idempotency"
	"github.com/architeacher/posts/pkg/logger"
	"github.com/architeacher/posts/services/svc-posts/internal/config"
	"github.com/architeacher/posts/services/svc-posts/internal/ports"
)

// replayedHeaders are the response headers stored with a replayable response.
var replayedHeaders = []string{"Content-Type", "Location"}

// Idempotency stores the first successful response to a request carrying the
// configured key header and replays it to retries. A retry with a different
// body is rejected with 422; one that arrives while the first is still
// running gets 409.
func Idempotency(store ports.IdempotencyStore, cfg config.Idempotency, maxBodyBytes int64, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(cfg.HeaderName)
			if key == "" || !slices.Contains(cfg.Methods, r.Method) {
				next.ServeHTTP(w, r)

				return
			}

			if err := idempotency.Validate(key); err != nil {
				writeMiddlewareProblem(w, http.StatusBadRequest, err.Error())

				return
			}

			var reader io.Reader = r.Body
			if maxBodyBytes > 0 {
				reader = io.LimitReader(r.Body, maxBodyBytes+1)
			}

			body, err := io.ReadAll(reader)
			if err != nil {
				writeMiddlewareProblem(w, http.StatusBadRequest, "request body could not be read")

				return
			}

			r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), r.Body))

			if maxBodyBytes > 0 && int64(len(body)) > maxBodyBytes {
				next.ServeHTTP(w, r)

				return
			}

			ctx := r.Context()
			log := log.WithContext(ctx)
			cacheKey := idempotency.CacheKey(r.Method, r.URL.Path, key)
			fingerprint := idempotency.Fingerprint(body)

			degrade := func(err error, msg string) {
				log.Warn().Err(err).Str("idempotency_key", key).Msg(msg)

				if cfg.GracefulDegraded {
					next.ServeHTTP(w, r)

					return
				}

				writeMiddlewareProblem(w, http.StatusServiceUnavailable, "idempotency store is temporarily unavailable")
			}

			stored, err := store.Get(ctx, cacheKey)
			if err != nil {
				degrade(err, "failed to read stored response")

				return
			}

			if stored != nil {
				if stored.Fingerprint != fingerprint {
					writeMiddlewareProblem(w, http.StatusUnprocessableEntity, "idempotency key was already used with a different request body")

					return
				}

				replay(w, cfg.ReplayedHeader, stored)

				return
			}

			acquired, err := store.Lock(ctx, cacheKey, cfg.LockTTL)
			if err != nil {
				degrade(err, "failed to lock idempotency key")

				return
			}

			if !acquired {
				writeMiddlewareProblem(w, http.StatusConflict, "a request with this idempotency key is still being processed")

				return
			}

			defer func() {
				if err := store.Unlock(context.WithoutCancel(ctx), cacheKey); err != nil {
					log.Warn().Err(err).Str("idempotency_key", key).Msg("failed to unlock idempotency key")
				}
			}()

			var captured bytes.Buffer

			ww := wrapWriter(w, r)
			ww.Tee(&captured)

			next.ServeHTTP(ww, r.WithContext(idempotency.WithKey(ctx, key)))

			status := statusOf(ww)
			if status < http.StatusOK || status >= http.StatusMultipleChoices {
				return
			}

			response := &ports.StoredResponse{
				StatusCode:  status,
				Headers:     make(map[string][]string, len(replayedHeaders)),
				Body:        captured.Bytes(),
				Fingerprint: fingerprint,
				CreatedAt:   time.Now().UTC(),
			}

			for _, name := range replayedHeaders {
				if values := w.Header().Values(name); len(values) > 0 {
					response.Headers[name] = values
				}
			}

			if err := store.Set(context.WithoutCancel(ctx), cacheKey, response, cfg.CacheTTL); err != nil {
				log.Warn().Err(err).Str("idempotency_key", key).Msg("failed to store response")
			}
		})
	}
}

func replay(w http.ResponseWriter, replayedHeader string, stored *ports.StoredResponse) {
	for name, values := range stored.Headers {
		w.Header()[name] = values
	}

	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(stored.StatusCode)
	_, _ = w.Write(stored.Body)
}
