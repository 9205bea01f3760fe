package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	authModel "clientauth/internal/auth/models"
	"clientauth/pkg/platform/httputil"
	"clientauth/pkg/requestcontext"
)

// AuthService runs the login and registration flows. Flows never return
// errors; every failure is classified in the AuthResult.
type AuthService interface {
	Login(ctx context.Context, req authModel.LoginRequest) authModel.AuthResult
	Register(ctx context.Context, req authModel.RegisterRequest) authModel.AuthResult
}

type AuthHandler struct {
	auth   AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/login/signin", h.handleLogin)
	r.Post("/login/register", h.handleRegister)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req authModel.LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid login request", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	// Blank credentials are classified by the flow like any other mismatch.
	req.Normalize()

	result := h.auth.Login(ctx, req)
	switch result.Outcome {
	case authModel.OutcomeSuccess:
		httputil.WriteEnvelope(w, http.StatusOK, authModel.LoginResponse{Token: result.Token, Account: result.Account}, result.Message)
	case authModel.OutcomeNotFound, authModel.OutcomeInvalidCredentials:
		httputil.WriteEnvelope(w, http.StatusUnauthorized, nil, result.Message)
	case authModel.OutcomeEmpty:
		w.WriteHeader(http.StatusNoContent)
	default:
		message := result.Message
		if message == "" {
			message = authModel.MessageLoginFailed
		}
		httputil.WriteEnvelope(w, http.StatusInternalServerError, nil, message)
	}
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req authModel.RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid register request", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		h.logger.InfoContext(ctx, "register request failed validation", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	result := h.auth.Register(ctx, req)
	if !result.Succeeded() {
		// Conflicts keep the generic failure status and message.
		httputil.WriteEnvelope(w, http.StatusInternalServerError, nil, authModel.MessageRegistrationFailed)
		return
	}
	httputil.WriteEnvelope(w, http.StatusCreated, authModel.RegisterResponse{Token: result.Token}, result.Message)
}
