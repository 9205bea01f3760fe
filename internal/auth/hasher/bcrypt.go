// Package hasher hashes and verifies account passwords with bcrypt.
package hasher

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	dErrors "clientauth/pkg/domain-errors"
)

// ErrMismatch is returned by Verify when the password does not match the hash.
var ErrMismatch = errors.New("password does not match")

// Bcrypt implements password hashing with a configurable cost.
type Bcrypt struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

// New returns a bcrypt hasher. Costs outside bcrypt's range fall back to the default.
func New(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

// Hash creates a salted bcrypt hash of password.
func (b *Bcrypt) Hash(password string) (string, error) {
	if password == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "password is too long")
		}
		return "", fmt.Errorf("could not hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify checks password against hash. A mismatch is ErrMismatch; anything
// else (corrupt hash, unsupported version) is returned wrapped.
func (b *Bcrypt) Verify(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		// Registration never stores passwords bcrypt cannot hash, so an
		// over-long candidate cannot match either.
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) || errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return ErrMismatch
		}
		return fmt.Errorf("could not verify password: %w", err)
	}
	return nil
}

// Burn runs one comparison against a throwaway hash so that lookups for
// unknown accounts take as long as a real verification.
func (b *Bcrypt) Burn(password string) {
	b.dummyOnce.Do(func() {
		b.dummy, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), b.cost)
	})
	_ = bcrypt.CompareHashAndPassword(b.dummy, []byte(password))
}
