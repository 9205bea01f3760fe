// Package metadata records who is calling: the client address and User-Agent.
package metadata

import (
	"net"
	"net/http"
	"strings"

	"clientauth/pkg/requestcontext"
)

const unknownClient = "unknown"

// Proxy headers in order of preference.
var forwardedHeaders = []string{"X-Forwarded-For", "X-Real-IP"}

// ClientMetadata stores the caller's address and User-Agent in the request
// context.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest prefers proxy headers, taking the first hop of a
// forwarded chain, then falls back to the socket peer.
func ClientIPFromRequest(r *http.Request) string {
	for _, h := range forwardedHeaders {
		first, _, _ := strings.Cut(r.Header.Get(h), ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if r.RemoteAddr == "" {
		return unknownClient
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
