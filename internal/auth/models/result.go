package models

import "clientauth/pkg/domain"

// Outcome is the classified result of a login or registration attempt.
type Outcome string

const (
	OutcomeSuccess            Outcome = "success"
	OutcomeInvalidCredentials Outcome = "invalid_credentials"
	OutcomeNotFound           Outcome = "not_found"
	OutcomeConflict           Outcome = "conflict"
	OutcomeEmpty              Outcome = "empty"
	OutcomeInternalError      Outcome = "internal_error"
)

// Messages returned to clients alongside each outcome.
const (
	MessageLoginSucceeded     = "Session started!"
	MessageUnknownAccount     = "Invalid username or password."
	MessageInvalidCredentials = "Invalid credentials provided."
	MessageLoginFailed        = "An error occurred during login"
	MessageRegistrationFailed = "Error registering account"
)

// AuthResult is produced once per login or registration call and consumed by
// the transport to pick a status code and body.
type AuthResult struct {
	Outcome  Outcome
	Identity *domain.Identity
	Account  *AccountView
	Token    string
	Message  string
}

func (r AuthResult) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// LoginResponse is the data payload for a successful login.
type LoginResponse struct {
	Token   string       `json:"token"`
	Account *AccountView `json:"account"`
}

// RegisterResponse is the data payload for a successful registration.
type RegisterResponse struct {
	Token string `json:"token"`
}

// MeResponse describes the identity attached to the current request.
type MeResponse struct {
	Authenticated bool            `json:"authenticated"`
	Identity      domain.Identity `json:"identity"`
}
