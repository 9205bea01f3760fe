package domain

import (
	"net/mail"
	"strings"

	dErrors "clientauth/pkg/domain-errors"
)

// Identity is the authenticated account as seen by downstream handlers.
// CredentialHash is populated only while credentials are being verified and is
// never serialized.
type Identity struct {
	AccountIdentifier string   `json:"account_identifier"`
	CredentialHash    string   `json:"-"`
	Authorities       []string `json:"authorities"`
}

// Public returns a copy without the credential hash.
func (i Identity) Public() Identity {
	authorities := make([]string, len(i.Authorities))
	copy(authorities, i.Authorities)
	return Identity{AccountIdentifier: i.AccountIdentifier, Authorities: authorities}
}

// NormalizeEmail trims whitespace and lowercases the address. Account
// identifiers are compared in this form everywhere.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that email is a bare RFC 5322 address.
func ValidateEmail(email string) error {
	if email == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}
	if len(email) > 255 {
		return dErrors.New(dErrors.CodeInvalidInput, "email is too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid email")
	}
	return nil
}
