// Package requesttime pins one "now" per request so every timestamp a request
// produces agrees.
package requesttime

import (
	"net/http"
	"time"

	"clientauth/pkg/requestcontext"
)

// Middleware stamps each request with now(). A nil clock uses time.Now.
func Middleware(now func() time.Time) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), now())))
		})
	}
}
