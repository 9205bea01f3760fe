// Package auth holds the authentication gate. The gate reconstructs a trusted
// identity from a bearer token and attaches it to the request context. It
// never rejects a request; routes that need an identity add RequireIdentity.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"clientauth/pkg/domain"
	"clientauth/pkg/platform/sentinel"
	"clientauth/pkg/requestcontext"
)

// TokenValidator decodes and validates session tokens.
type TokenValidator interface {
	SubjectOf(token string) (string, error)
	IsValid(token, expectedSubject string) (bool, error)
}

// IdentityLoader reloads the identity named by a token subject. Unknown
// subjects must be reported as sentinel.ErrNotFound.
type IdentityLoader interface {
	LoadIdentity(ctx context.Context, accountIdentifier string) (domain.Identity, error)
}

// DecisionObserver receives every gate decision, typically for metrics.
type DecisionObserver interface {
	ObserveGateDecision(state, reason string)
}

// State is where a request ends up after the gate.
type State string

const (
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

// Reason explains a Decision.
type Reason string

const (
	ReasonNoToken              Reason = "no_token"
	ReasonAlreadyAuthenticated Reason = "already_authenticated"
	ReasonExpired              Reason = "expired"
	ReasonMalformed            Reason = "malformed"
	ReasonBadSignature         Reason = "bad_signature"
	ReasonUnknownSubject       Reason = "unknown_subject"
	ReasonLookupFailed         Reason = "lookup_failed"
	ReasonSubjectMismatch      Reason = "subject_mismatch"
	ReasonAuthenticated        Reason = "authenticated"
)

// Decision is the outcome of running the gate on one request. A request with
// no token is always unauthenticated; a request with a token ends either
// authenticated or unauthenticated.
type Decision struct {
	State  State
	Reason Reason
}

func (d Decision) Authenticated() bool {
	return d.State == StateAuthenticated
}

func unauthenticated(reason Reason) Decision {
	return Decision{State: StateUnauthenticated, Reason: reason}
}

// Gate evaluates requests. Use OptionalAuth to mount it as middleware.
type Gate struct {
	tokens     TokenValidator
	identities IdentityLoader
	logger     *slog.Logger
	observer   DecisionObserver
}

type Option func(*Gate)

// WithObserver reports each decision to o.
func WithObserver(o DecisionObserver) Option {
	return func(g *Gate) { g.observer = o }
}

func NewGate(tokens TokenValidator, identities IdentityLoader, logger *slog.Logger, opts ...Option) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{tokens: tokens, identities: identities, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// OptionalAuth attaches the identity carried by a valid bearer token and
// always calls next.
func OptionalAuth(tokens TokenValidator, identities IdentityLoader, logger *slog.Logger, opts ...Option) func(http.Handler) http.Handler {
	return NewGate(tokens, identities, logger, opts...).Middleware
}

func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, decision := g.Decide(r)
		if g.observer != nil {
			g.observer.ObserveGateDecision(string(decision.State), string(decision.Reason))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Decide runs the gate and returns the context next should see.
func (g *Gate) Decide(r *http.Request) (context.Context, Decision) {
	ctx := r.Context()

	token, ok := bearerToken(r)
	if !ok {
		return ctx, unauthenticated(ReasonNoToken)
	}
	if requestcontext.IsAuthenticated(ctx) {
		return ctx, Decision{State: StateAuthenticated, Reason: ReasonAlreadyAuthenticated}
	}

	requestID := requestcontext.RequestID(ctx)
	subject, err := g.tokens.SubjectOf(token)
	if err != nil {
		reason := reasonOf(err)
		g.logger.DebugContext(ctx, "bearer token rejected",
			"reason", string(reason),
			"request_id", requestID,
		)
		return ctx, unauthenticated(reason)
	}

	identity, err := g.identities.LoadIdentity(ctx, subject)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			g.logger.DebugContext(ctx, "token subject has no account", "request_id", requestID)
			return ctx, unauthenticated(ReasonUnknownSubject)
		}
		g.logger.WarnContext(ctx, "identity lookup failed",
			"error", err,
			"request_id", requestID,
		)
		return ctx, unauthenticated(ReasonLookupFailed)
	}

	valid, err := g.tokens.IsValid(token, identity.AccountIdentifier)
	if err != nil {
		return ctx, unauthenticated(reasonOf(err))
	}
	if !valid {
		// IsValid folds expiry and subject mismatch into false.
		if subject == identity.AccountIdentifier {
			return ctx, unauthenticated(ReasonExpired)
		}
		return ctx, unauthenticated(ReasonSubjectMismatch)
	}

	return requestcontext.WithIdentity(ctx, identity), Decision{State: StateAuthenticated, Reason: ReasonAuthenticated}
}

// bearerToken returns the token of an "Authorization: Bearer <token>" header.
func bearerToken(r *http.Request) (string, bool) {
	const bearerPrefix = "Bearer "
	after, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
	if !ok {
		return "", false
	}
	token := strings.TrimSpace(after)
	return token, token != ""
}

func reasonOf(err error) Reason {
	var r interface{ Reason() string }
	if errors.As(err, &r) {
		switch reason := Reason(r.Reason()); reason {
		case ReasonExpired, ReasonMalformed, ReasonBadSignature:
			return reason
		}
	}
	return ReasonMalformed
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireIdentity rejects requests the gate left unauthenticated.
func RequireIdentity(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if !requestcontext.IsAuthenticated(ctx) {
				logger.WarnContext(ctx, "unauthorized access - no identity",
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
