package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"clientauth/internal/audit"
	"clientauth/internal/auth/hasher"
	"clientauth/internal/auth/models"
	"clientauth/pkg/errutil"
	"clientauth/pkg/platform/sentinel"
)

// Login authenticates req and issues a session token. Every failure is
// folded into the returned result; details go to the log only.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (result models.AuthResult) {
	req.Normalize()
	start := s.now()

	ctx, span := tracer.Start(ctx, "auth.login", trace.WithAttributes(attribute.String("account.email", req.Email)))
	defer func() {
		span.SetAttributes(attribute.String("auth.outcome", string(result.Outcome)))
		if result.Outcome == models.OutcomeInternalError {
			span.SetStatus(codes.Error, "login failed")
		}
		span.End()
		if s.metrics != nil {
			s.metrics.ObserveLogin(string(result.Outcome), s.now().Sub(start))
		}
	}()

	account, err := s.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.hasher.Burn(req.Password)
			s.logger.InfoContext(ctx, "login rejected: unknown account", "email", req.Email)
			s.emit(ctx, audit.ActionAuthFailed, req.Email, models.OutcomeNotFound, "unknown_account")
			return models.AuthResult{Outcome: models.OutcomeNotFound, Message: models.MessageUnknownAccount}
		}
		return s.loginFailed(ctx, span, req.Email, "lookup account", err)
	}

	if err := s.hasher.Verify(req.Password, account.PasswordHash); err != nil {
		if errors.Is(err, hasher.ErrMismatch) {
			s.logger.InfoContext(ctx, "login rejected: invalid credentials", "email", req.Email)
			s.emit(ctx, audit.ActionAuthFailed, req.Email, models.OutcomeInvalidCredentials, "invalid_credentials")
			return models.AuthResult{Outcome: models.OutcomeInvalidCredentials, Message: models.MessageInvalidCredentials}
		}
		return s.loginFailed(ctx, span, req.Email, "verify password", err)
	}

	// The record may disappear between verification and reload.
	stored, err := s.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "account vanished after authentication", "email", req.Email)
			return models.AuthResult{Outcome: models.OutcomeEmpty}
		}
		return s.loginFailed(ctx, span, req.Email, "reload account", err)
	}

	identity := stored.Identity().Public()
	token, err := s.tokens.Issue(identity.AccountIdentifier)
	if err != nil {
		return s.loginFailed(ctx, span, req.Email, "issue token", err)
	}
	if s.metrics != nil {
		s.metrics.IncrementTokensIssued()
	}

	s.logger.InfoContext(ctx, "login succeeded", "email", req.Email)
	s.emit(ctx, audit.ActionLoginSucceeded, req.Email, models.OutcomeSuccess, "")
	return models.AuthResult{
		Outcome:  models.OutcomeSuccess,
		Identity: &identity,
		Account:  stored.View(),
		Token:    token,
		Message:  models.MessageLoginSucceeded,
	}
}

func (s *Service) loginFailed(ctx context.Context, span trace.Span, email, step string, err error) models.AuthResult {
	span.RecordError(err)
	errutil.LogError(ctx, s.logger, "login failed", err, "email", email, "step", step)
	s.emit(ctx, audit.ActionAuthFailed, email, models.OutcomeInternalError, step)
	return models.AuthResult{Outcome: models.OutcomeInternalError, Message: models.MessageLoginFailed}
}
