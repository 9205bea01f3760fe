package models

import (
	"time"

	"clientauth/pkg/domain"
)

// Account is the stored client record. PasswordHash is the only credential
// material ever persisted.
type Account struct {
	ID           domain.AccountID
	Email        string
	PasswordHash string
	Code         string
	FirstName    string
	LastName     string
	Phone        string
	Address      string
	CreatedAt    time.Time
}

// Identity projects the record into the authenticated identity. No
// authorities are modeled, so the set is always empty.
func (a *Account) Identity() domain.Identity {
	return domain.Identity{
		AccountIdentifier: a.Email,
		CredentialHash:    a.PasswordHash,
		Authorities:       []string{},
	}
}

// View returns the client-facing copy of the record without credential material.
func (a *Account) View() *AccountView {
	return &AccountView{
		Email:     a.Email,
		Code:      a.Code,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Phone:     a.Phone,
		Address:   a.Address,
		CreatedAt: a.CreatedAt,
	}
}

// AccountView is the account as returned by the login endpoint.
type AccountView struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
