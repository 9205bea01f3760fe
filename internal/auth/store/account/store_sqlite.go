package account

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/samber/oops"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"clientauth/internal/auth/models"
	"clientauth/pkg/domain"
	"clientauth/pkg/platform/sentinel"
	txctx "clientauth/pkg/platform/tx"
)

// dbtx is the subset of database/sql used by SQLiteStore. Both *sql.DB and
// *sql.Tx satisfy it.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		code TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_code ON accounts(code);
`

// SQLiteStore persists accounts in a single-node SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite wraps db and creates the accounts schema if it is missing.
func NewSQLite(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, oops.Code(CodeQueryFailed).With("operation", "create sqlite schema").Wrap(err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) q(ctx context.Context) dbtx {
	if tx, ok := txctx.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *SQLiteStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = ?`

	var (
		rawID      string
		rawCreated string
		account    models.Account
	)
	err := s.q(ctx).QueryRowContext(ctx, query, email).Scan(
		&rawID,
		&account.Email,
		&account.PasswordHash,
		&account.Code,
		&account.FirstName,
		&account.LastName,
		&account.Phone,
		&account.Address,
		&rawCreated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code(CodeNotFound).With("email", email).Wrap(sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code(CodeQueryFailed).With("operation", "find account by email").Wrap(err)
	}

	id, err := domain.ParseAccountID(rawID)
	if err != nil {
		return nil, oops.Code(CodeQueryFailed).With("operation", "parse account id").With("id", rawID).Wrap(err)
	}
	created, err := time.Parse(time.RFC3339Nano, rawCreated)
	if err != nil {
		return nil, oops.Code(CodeQueryFailed).With("operation", "parse created_at").Wrap(err)
	}
	account.ID = id
	account.CreatedAt = created
	return &account, nil
}

func (s *SQLiteStore) Create(ctx context.Context, account *models.Account) error {
	query := `INSERT INTO accounts (` + accountColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.q(ctx).ExecContext(ctx, query,
		account.ID.String(),
		account.Email,
		account.PasswordHash,
		account.Code,
		account.FirstName,
		account.LastName,
		account.Phone,
		account.Address,
		account.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return oops.Code(CodeConflict).With("email", account.Email).Wrap(sentinel.ErrConflict)
		}
		return oops.Code(CodeQueryFailed).With("operation", "insert account").Wrap(err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isSQLiteUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT:
		return true
	}
	return false
}

// SQLTransactor runs callbacks inside a database/sql transaction stored in the
// context. Panics roll back and are rethrown.
type SQLTransactor struct {
	db *sql.DB
}

func NewSQLTransactor(db *sql.DB) *SQLTransactor {
	return &SQLTransactor{db: db}
}

func (t *SQLTransactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := txctx.From(ctx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return oops.Code(CodeTxBeginFailed).Wrap(err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = oops.Code(CodeTxCommitFailed).Wrap(cerr)
		}
	}()

	err = fn(txctx.WithTx(ctx, tx))
	return err
}
