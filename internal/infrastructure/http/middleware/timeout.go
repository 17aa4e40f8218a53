package middleware

import (
	"context"
	"net/http"
	"time"
)

// ExtendedTimeout gives synchronous extraction requests a longer budget
// than the server-wide WriteTimeout. The write deadline is pushed out on
// the connection and the request context is bounded by the same budget.
func ExtendedTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if timeout <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			deadline := time.Now().Add(timeout)
			// Recorders and some wrappers do not support deadlines.
			_ = http.NewResponseController(w).SetWriteDeadline(deadline)

			ctx, cancel := context.WithDeadline(r.Context(), deadline)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
