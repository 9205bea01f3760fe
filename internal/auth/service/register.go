package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"clientauth/internal/audit"
	"clientauth/internal/auth/codegen"
	"clientauth/internal/auth/models"
	"clientauth/pkg/domain"
	"clientauth/pkg/errutil"
	"clientauth/pkg/platform/sentinel"
)

// Register hashes the password, assigns an account code, persists the
// account and issues a token, all in one transaction. A failure at any step
// rolls the insert back.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (result models.AuthResult) {
	req.Normalize()
	start := s.now()

	ctx, span := tracer.Start(ctx, "auth.register", trace.WithAttributes(attribute.String("account.email", req.Email)))
	defer func() {
		span.SetAttributes(attribute.String("auth.outcome", string(result.Outcome)))
		if !result.Succeeded() {
			span.SetStatus(codes.Error, "registration failed")
		}
		span.End()
		if s.metrics != nil {
			s.metrics.ObserveRegistration(string(result.Outcome), s.now().Sub(start))
		}
	}()

	txCtx := ctx
	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		txCtx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	var (
		account *models.Account
		token   string
	)
	err := s.tx.InTransaction(txCtx, func(ctx context.Context) error {
		hash, err := s.hasher.Hash(req.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		code, err := s.codes.Generate(codegen.PrefixClient)
		if err != nil {
			return fmt.Errorf("generate account code: %w", err)
		}

		account = &models.Account{
			ID:           domain.NewAccountID(),
			Email:        req.Email,
			PasswordHash: hash,
			Code:         code,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Phone:        req.Phone,
			Address:      req.Address,
			CreatedAt:    s.now().UTC(),
		}
		if err := s.accounts.Create(ctx, account); err != nil {
			return err
		}

		token, err = s.tokens.Issue(account.Email)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		return nil
	})
	if err != nil {
		outcome, reason := models.OutcomeInternalError, ""
		if errors.Is(err, sentinel.ErrConflict) {
			outcome, reason = models.OutcomeConflict, "duplicate_account"
		}
		span.RecordError(err)
		errutil.LogError(ctx, s.logger, "registration failed", err, "email", req.Email, "outcome", string(outcome))
		s.emit(ctx, audit.ActionRegistrationFailed, req.Email, outcome, reason)
		return models.AuthResult{Outcome: outcome, Message: models.MessageRegistrationFailed}
	}

	if s.metrics != nil {
		s.metrics.IncrementTokensIssued()
	}
	identity := account.Identity().Public()
	s.logger.InfoContext(ctx, "account registered", "email", account.Email, "code", account.Code)
	s.emit(ctx, audit.ActionAccountRegistered, account.Email, models.OutcomeSuccess, "")
	return models.AuthResult{
		Outcome:  models.OutcomeSuccess,
		Identity: &identity,
		Account:  account.View(),
		Token:    token,
	}
}
