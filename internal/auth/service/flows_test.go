package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"clientauth/internal/auth/codegen"
	"clientauth/internal/auth/hasher"
	"clientauth/internal/auth/models"
	"clientauth/internal/auth/store/account"
	jwttoken "clientauth/internal/jwt_token"
)

const flowSecret = "c2VjcmV0LWtleS1mb3ItdGVzdHMtb25seS0xMjM0NTY="

type flowFixture struct {
	service *Service
	store   *account.InMemoryStore
	tokens  *jwttoken.Service
	clock   *time.Time
}

// newFlowFixture wires the real in-memory store, bcrypt, codegen and token
// service together.
func newFlowFixture(t *testing.T) *flowFixture {
	t.Helper()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	tokens, err := jwttoken.NewService(flowSecret, time.Hour, jwttoken.WithClock(func() time.Time { return *clock }))
	require.NoError(t, err)

	store := account.NewInMemory()
	svc, err := New(store, account.NewInMemoryTransactor(), tokens, hasher.New(bcrypt.MinCost), codegen.New(),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)
	return &flowFixture{service: svc, store: store, tokens: tokens, clock: clock}
}

func TestFlows_RegisterThenLogin(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()

	registered := f.service.Register(ctx, models.RegisterRequest{Email: "rt@example.com", Password: "pa55word"})
	require.Equal(t, models.OutcomeSuccess, registered.Outcome)
	ok, err := f.tokens.IsValid(registered.Token, "rt@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := f.store.FindByEmail(ctx, "rt@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "pa55word", stored.PasswordHash)
	assert.Regexp(t, `^CLIE[0-9A-Z]{26}$`, stored.Code)

	loggedIn := f.service.Login(ctx, models.LoginRequest{Email: "rt@example.com", Password: "pa55word"})
	require.Equal(t, models.OutcomeSuccess, loggedIn.Outcome)
	subject, err := f.tokens.SubjectOf(loggedIn.Token)
	require.NoError(t, err)
	assert.Equal(t, "rt@example.com", subject)

	wrong := f.service.Login(ctx, models.LoginRequest{Email: "rt@example.com", Password: "nope"})
	assert.Equal(t, models.OutcomeInvalidCredentials, wrong.Outcome)

	unknown := f.service.Login(ctx, models.LoginRequest{Email: "ghost@example.com", Password: "pa55word"})
	assert.Equal(t, models.OutcomeNotFound, unknown.Outcome)
}

func TestFlows_BlankCredentialsAreUnauthorized(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()
	require.Equal(t, models.OutcomeSuccess,
		f.service.Register(ctx, models.RegisterRequest{Email: "blank@example.com", Password: "pa55word"}).Outcome)

	tests := []struct {
		name    string
		req     models.LoginRequest
		outcome models.Outcome
		message string
	}{
		{
			name:    "blank password",
			req:     models.LoginRequest{Email: "blank@example.com"},
			outcome: models.OutcomeInvalidCredentials,
			message: models.MessageInvalidCredentials,
		},
		{
			name:    "blank email",
			req:     models.LoginRequest{Password: "pa55word"},
			outcome: models.OutcomeNotFound,
			message: models.MessageUnknownAccount,
		},
		{
			name:    "password longer than bcrypt accepts",
			req:     models.LoginRequest{Email: "blank@example.com", Password: strings.Repeat("x", 80)},
			outcome: models.OutcomeInvalidCredentials,
			message: models.MessageInvalidCredentials,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := f.service.Login(ctx, tt.req)
			assert.Equal(t, tt.outcome, result.Outcome)
			assert.Equal(t, tt.message, result.Message)
			assert.Empty(t, result.Token)
		})
	}
}

func TestFlows_TokenExpiresAfterTTL(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()

	result := f.service.Register(ctx, models.RegisterRequest{Email: "ttl@example.com", Password: "pa55word"})
	require.Equal(t, models.OutcomeSuccess, result.Outcome)

	*f.clock = f.clock.Add(time.Hour)
	ok, err := f.tokens.IsValid(result.Token, "ttl@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFlows_ConcurrentDuplicateRegistration(t *testing.T) {
	f := newFlowFixture(t)
	const workers = 8

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result := f.service.Register(context.Background(), models.RegisterRequest{
				Email:    "dup@example.com",
				Password: fmt.Sprintf("password-%d", i),
			})
			switch result.Outcome {
			case models.OutcomeSuccess:
				successes.Add(1)
			case models.OutcomeConflict:
				conflicts.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(workers-1), conflicts.Load())
	assert.Equal(t, 1, f.store.Len())
}
