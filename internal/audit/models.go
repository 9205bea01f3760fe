// Package audit records security relevant authentication events. Events are
// published without blocking the request path and drained by a background
// worker into a bounded ring buffer and the structured log.
package audit

import "time"

// Action names what happened.
type Action string

const (
	ActionLoginSucceeded     Action = "login_succeeded"
	ActionAuthFailed         Action = "auth_failed"
	ActionAccountRegistered  Action = "account_registered"
	ActionRegistrationFailed Action = "registration_failed"
)

// Event is emitted from the flows. It never carries passwords, hashes or
// tokens.
type Event struct {
	Action    Action
	Timestamp time.Time
	Email     string
	// Outcome mirrors the flow outcome label (success, not_found, ...).
	Outcome   string
	Reason    string
	RequestID string
	ClientIP  string
	UserAgent string
}
