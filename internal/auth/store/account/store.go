// Package account persists client accounts keyed by email.
//
// Every backend returns sentinel.ErrNotFound for unknown emails and
// sentinel.ErrConflict for duplicate emails, wrapped in oops errors that carry
// one of the codes below.
package account

const (
	CodeNotFound       = "ACCOUNT_NOT_FOUND"
	CodeConflict       = "ACCOUNT_CONFLICT"
	CodeQueryFailed    = "ACCOUNT_QUERY_FAILED"
	CodeTxBeginFailed  = "TX_BEGIN_FAILED"
	CodeTxCommitFailed = "TX_COMMIT_FAILED"
)

const (
	accountDataColumns = `email, password_hash, code, first_name, last_name, phone, address, created_at`
	accountColumns     = `id, ` + accountDataColumns
)
