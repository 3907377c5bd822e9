package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/architeacher/posts/pkg/logger"
)

// Recovery turns a handler panic into a 500 problem response. Aborted
// handlers are re-panicked so net/http drops the connection quietly.
func Recovery(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}

				if err, ok := rvr.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rvr)
				}

				log.WithContext(r.Context()).Error().
					Interface("panic", rvr).
					Bytes("stack", debug.Stack()).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("panic recovered")

				writeMiddlewareProblem(w, http.StatusInternalServerError, "internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
