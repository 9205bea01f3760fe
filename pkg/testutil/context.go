package testutil

import (
	"net/http"

	"clientauth/pkg/domain"
	"clientauth/pkg/requestcontext"
)

// WithIdentity attaches identity to the request context.
// This simulates what the authentication gate does for a valid token.
func WithIdentity(req *http.Request, identity domain.Identity) *http.Request {
	return req.WithContext(requestcontext.WithIdentity(req.Context(), identity))
}

// WithAccount attaches an identity for accountIdentifier with no authorities.
func WithAccount(req *http.Request, accountIdentifier string) *http.Request {
	return WithIdentity(req, domain.Identity{AccountIdentifier: accountIdentifier, Authorities: []string{}})
}

// WithBearer sets the Authorization header.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
