// Package domain holds the small value types shared across layers: typed
// identifiers and the authenticated identity carried through request contexts.
package domain

import (
	"github.com/google/uuid"

	dErrors "clientauth/pkg/domain-errors"
)

// AccountID identifies a stored account record.
type AccountID uuid.UUID

func NewAccountID() AccountID {
	return AccountID(uuid.New())
}

func (id AccountID) String() string {
	return uuid.UUID(id).String()
}

func (id AccountID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// ParseAccountID parses s as a non-nil UUID.
func ParseAccountID(s string) (AccountID, error) {
	if s == "" {
		return AccountID{}, dErrors.New(dErrors.CodeInvalidInput, "account id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return AccountID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid account id")
	}
	if parsed == uuid.Nil {
		return AccountID{}, dErrors.New(dErrors.CodeInvalidInput, "account id cannot be nil")
	}
	return AccountID(parsed), nil
}
