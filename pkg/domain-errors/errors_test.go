package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("db down")
	err := Wrap(cause, CodeInternal, "failed to save account")

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.True(t, Is(err, CodeInternal))
	assert.Equal(t, "failed to save account: db down", err.Error())
	assert.Nil(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestCodeOfWalksChain(t *testing.T) {
	err := fmt.Errorf("handler: %w", New(CodeInvalidInput, "email is required"))

	assert.Equal(t, CodeInvalidInput, CodeOf(err))
	assert.True(t, HasCode(err, CodeInvalidInput))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestErrorsIsComparesCodeAndMessage(t *testing.T) {
	err := New(CodeUnauthorized, "invalid token")

	assert.ErrorIs(t, err, New(CodeUnauthorized, "invalid token"))
	assert.NotErrorIs(t, err, New(CodeUnauthorized, "token has expired"))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeBadRequest:   http.StatusBadRequest,
		CodeInvalidInput: http.StatusBadRequest,
		CodeUnauthorized: http.StatusUnauthorized,
		CodeNotFound:     http.StatusNotFound,
		CodeConflict:     http.StatusConflict,
		CodeTimeout:      http.StatusGatewayTimeout,
		CodeInternal:     http.StatusInternalServerError,
		Code("unknown"):  http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), string(code))
	}
}
