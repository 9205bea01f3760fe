package hasher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	dErrors "clientauth/pkg/domain-errors"
)

func TestHashAndVerify(t *testing.T) {
	h := New(bcrypt.MinCost)

	hash, err := h.Hash("pw1")
	require.NoError(t, err)
	assert.NotEqual(t, "pw1", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))

	assert.NoError(t, h.Verify("pw1", hash))
	assert.ErrorIs(t, h.Verify("wrong", hash), ErrMismatch)
}

func TestHashIsSalted(t *testing.T) {
	h := New(bcrypt.MinCost)

	first, err := h.Hash("same")
	require.NoError(t, err)
	second, err := h.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestHashRejectsInvalidInput(t *testing.T) {
	h := New(bcrypt.MinCost)

	_, err := h.Hash("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = h.Hash(strings.Repeat("x", 73))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestVerifyCorruptHash(t *testing.T) {
	h := New(bcrypt.MinCost)

	err := h.Verify("pw1", "not-a-bcrypt-hash")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMismatch)
}

func TestNewClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, New(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, New(bcrypt.MaxCost+1).cost)
	assert.Equal(t, 12, New(12).cost)
}

func TestBurnDoesNotPanic(t *testing.T) {
	h := New(bcrypt.MinCost)
	h.Burn("anything")
	h.Burn("")
}
