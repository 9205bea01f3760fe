package models

import (
	"strings"

	"clientauth/pkg/domain"
	dErrors "clientauth/pkg/domain-errors"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Normalize canonicalizes the identifier. The password is left untouched.
func (r *LoginRequest) Normalize() {
	r.Email = domain.NormalizeEmail(r.Email)
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

func (r *RegisterRequest) Normalize() {
	r.Email = domain.NormalizeEmail(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Address = strings.TrimSpace(r.Address)
}

func (r *RegisterRequest) Validate() error {
	if err := domain.ValidateEmail(r.Email); err != nil {
		return err
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "password is required")
	}
	if len(r.Password) > 72 {
		return dErrors.New(dErrors.CodeInvalidInput, "password must be at most 72 bytes")
	}
	if len(r.FirstName) > 100 || len(r.LastName) > 100 {
		return dErrors.New(dErrors.CodeInvalidInput, "name fields must be at most 100 characters")
	}
	if len(r.Phone) > 32 {
		return dErrors.New(dErrors.CodeInvalidInput, "phone must be at most 32 characters")
	}
	if len(r.Address) > 255 {
		return dErrors.New(dErrors.CodeInvalidInput, "address must be at most 255 characters")
	}
	return nil
}
