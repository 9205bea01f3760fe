package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"clientauth/internal/audit"
	"clientauth/internal/auth/codegen"
	"clientauth/internal/auth/models"
	"clientauth/internal/platform/metrics"
	"clientauth/pkg/requestcontext"
)

var tracer = otel.Tracer("clientauth/auth")

// AccountStore looks up and persists account records. Implementations return
// sentinel.ErrNotFound for unknown emails and sentinel.ErrConflict for
// duplicate emails or codes.
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) error
}

// Transactor runs fn atomically. Stores pick the active transaction out of
// the context handed to fn.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type TokenIssuer interface {
	Issue(subject string) (string, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) error
	// Burn performs a throwaway comparison to equalize timing.
	Burn(password string)
}

type CodeGenerator interface {
	Generate(prefix codegen.Prefix) (string, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service implements the login and registration flows and reloads
// identities for the authentication gate.
type Service struct {
	accounts AccountStore
	tx       Transactor
	tokens   TokenIssuer
	hasher   PasswordHasher
	codes    CodeGenerator

	auditor   AuditPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	txTimeout time.Duration
	now       func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		if p != nil {
			s.auditor = p
		}
	}
}

// WithTxTimeout bounds the registration transaction. Zero disables the bound.
func WithTxTimeout(d time.Duration) Option {
	return func(s *Service) { s.txTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(accounts AccountStore, tx Transactor, tokens TokenIssuer, hasher PasswordHasher, codes CodeGenerator, opts ...Option) (*Service, error) {
	switch {
	case accounts == nil:
		return nil, errors.New("account store is required")
	case tx == nil:
		return nil, errors.New("transactor is required")
	case tokens == nil:
		return nil, errors.New("token issuer is required")
	case hasher == nil:
		return nil, errors.New("password hasher is required")
	case codes == nil:
		return nil, errors.New("code generator is required")
	}

	s := &Service{
		accounts: accounts,
		tx:       tx,
		tokens:   tokens,
		hasher:   hasher,
		codes:    codes,
		auditor:  nopAuditor{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type nopAuditor struct{}

func (nopAuditor) Emit(context.Context, audit.Event) {}

func (s *Service) emit(ctx context.Context, action audit.Action, email string, outcome models.Outcome, reason string) {
	s.auditor.Emit(ctx, audit.Event{
		Action:    action,
		Email:     email,
		Outcome:   string(outcome),
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
	})
}
