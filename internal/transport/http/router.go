package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	authmw "clientauth/pkg/platform/middleware/auth"
	"clientauth/pkg/platform/middleware/metadata"
	"clientauth/pkg/platform/middleware/request"
	"clientauth/pkg/platform/middleware/requesttime"
)

// RouterDeps collects everything the public router needs.
type RouterDeps struct {
	Logger     *slog.Logger
	Auth       AuthService
	Tokens     authmw.TokenValidator
	Identities authmw.IdentityLoader
	// Observer receives gate decisions; nil disables reporting.
	Observer authmw.DecisionObserver
	Checks   map[string]Pinger
	// Clock stamps request time; nil uses time.Now.
	Clock func() time.Time
}

// NewRouter wires all public endpoints behind the shared middleware chain.
// The authentication gate runs on every route and never rejects.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var gateOpts []authmw.Option
	if deps.Observer != nil {
		gateOpts = append(gateOpts, authmw.WithObserver(deps.Observer))
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(logger))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware(deps.Clock))
	r.Use(request.Logger(logger))

	NewHealthHandler(deps.Checks, logger).Register(r)

	r.Group(func(r chi.Router) {
		r.Use(authmw.OptionalAuth(deps.Tokens, deps.Identities, logger, gateOpts...))
		NewAuthHandler(deps.Auth, logger).Register(r)
		NewAccountHandler(logger).Register(r)
	})
	return r
}
