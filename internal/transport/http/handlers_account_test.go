package httptransport

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authModel "clientauth/internal/auth/models"
	"clientauth/pkg/domain"
	"clientauth/pkg/testutil"
)

func newAccountRouter() chi.Router {
	r := chi.NewRouter()
	NewAccountHandler(slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func TestAccountHandler_Me(t *testing.T) {
	router := newAccountRouter()

	t.Run("returns the attached identity", func(t *testing.T) {
		req := testutil.WithAccount(testutil.NewRequest(t, http.MethodGet, "/me"), "ana@example.com")
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusOK(t, rr)
		env := testutil.UnmarshalEnvelope[authModel.MeResponse](t, rr)
		require.NotNil(t, env.Data)
		assert.True(t, env.Data.Authenticated)
		assert.Equal(t, "ana@example.com", env.Data.Identity.AccountIdentifier)
	})

	t.Run("never serializes the credential hash", func(t *testing.T) {
		req := testutil.WithIdentity(testutil.NewRequest(t, http.MethodGet, "/me"), domain.Identity{
			AccountIdentifier: "ana@example.com",
			CredentialHash:    "$2a$10$hash",
			Authorities:       []string{},
		})
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusOK(t, rr)
		assert.NotContains(t, rr.Body.String(), "$2a$10$hash")
	})

	t.Run("anonymous request is rejected", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/me"))

		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})
}

func TestAccountHandler_Demo(t *testing.T) {
	router := newAccountRouter()

	req := testutil.WithAccount(testutil.NewRequest(t, http.MethodPost, "/demo/demo"), "ana@example.com")
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusOK(t, rr)
	env := testutil.UnmarshalEnvelope[domain.Identity](t, rr)
	assert.Equal(t, "Welcome to a secured endpoint, ana@example.com", env.Message)
}
