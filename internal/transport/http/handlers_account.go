package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	authModel "clientauth/internal/auth/models"
	authmw "clientauth/pkg/platform/middleware/auth"
	"clientauth/pkg/platform/httputil"
	"clientauth/pkg/requestcontext"
)

const demoGreeting = "Welcome to a secured endpoint"

// AccountHandler serves endpoints that read the identity attached by the
// authentication gate.
type AccountHandler struct {
	logger *slog.Logger
}

func NewAccountHandler(logger *slog.Logger) *AccountHandler {
	return &AccountHandler{logger: logger}
}

func (h *AccountHandler) Register(r chi.Router) {
	r.Post("/demo/demo", h.handleDemo)
	r.With(authmw.RequireIdentity(h.logger)).Get("/me", h.handleMe)
}

// handleDemo is reachable anonymously; it greets the identity when present.
func (h *AccountHandler) handleDemo(w http.ResponseWriter, r *http.Request) {
	identity, ok := requestcontext.Identity(r.Context())
	if !ok {
		httputil.WriteEnvelope(w, http.StatusOK, nil, demoGreeting)
		return
	}
	httputil.WriteEnvelope(w, http.StatusOK, identity, demoGreeting+", "+requestcontext.Subject(r.Context()))
}

func (h *AccountHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, _ := requestcontext.Identity(r.Context())
	httputil.WriteEnvelope(w, http.StatusOK, authModel.MeResponse{Authenticated: true, Identity: identity}, "")
}
