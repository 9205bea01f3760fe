package account

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"clientauth/internal/auth/models"
	"clientauth/pkg/domain"
	"clientauth/pkg/platform/sentinel"
	txctx "clientauth/pkg/platform/tx"
)

// pgxPool abstracts *pgxpool.Pool so pgxmock can stand in for it in tests.
type pgxPool interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// querier is satisfied by both the pool and an open pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists accounts in the accounts table. This store is pure
// I/O; validation and hashing belong to the service.
type PostgresStore struct {
	pool pgxPool
}

func NewPostgres(pool pgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if tx, ok := txctx.PgxFrom(ctx); ok {
		return tx
	}
	return s.pool
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT id::text, ` + accountDataColumns + ` FROM accounts WHERE email = $1`

	var (
		rawID   string
		account models.Account
		created time.Time
	)
	err := s.q(ctx).QueryRow(ctx, query, email).Scan(
		&rawID,
		&account.Email,
		&account.PasswordHash,
		&account.Code,
		&account.FirstName,
		&account.LastName,
		&account.Phone,
		&account.Address,
		&created,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code(CodeNotFound).With("email", email).Wrap(sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code(CodeQueryFailed).With("operation", "find account by email").Wrap(err)
	}

	id, err := domain.ParseAccountID(rawID)
	if err != nil {
		return nil, oops.Code(CodeQueryFailed).With("operation", "parse account id").With("id", rawID).Wrap(err)
	}
	account.ID = id
	account.CreatedAt = created.UTC()
	return &account, nil
}

func (s *PostgresStore) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.q(ctx).Exec(ctx, query,
		account.ID.String(),
		account.Email,
		account.PasswordHash,
		account.Code,
		account.FirstName,
		account.LastName,
		account.Phone,
		account.Address,
		account.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code(CodeConflict).
				With("email", account.Email).
				With("constraint", pgErr.ConstraintName).
				Wrap(sentinel.ErrConflict)
		}
		return oops.Code(CodeQueryFailed).With("operation", "insert account").Wrap(err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// PgxTransactor runs callbacks inside a pgx transaction stored in the
// context, so PostgresStore calls made by the callback join it.
type PgxTransactor struct {
	pool pgxPool
}

func NewPgxTransactor(pool pgxPool) *PgxTransactor {
	return &PgxTransactor{pool: pool}
}

// InTransaction commits when fn returns nil and rolls back otherwise. A
// context that already carries a transaction is reused as-is.
func (t *PgxTransactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txctx.PgxFrom(ctx); ok {
		return fn(ctx)
	}

	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return oops.Code(CodeTxBeginFailed).Wrap(err)
	}

	if err := fn(txctx.WithPgx(ctx, tx)); err != nil {
		_ = tx.Rollback(ctx) //nolint:errcheck // callback error takes precedence
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return oops.Code(CodeTxCommitFailed).Wrap(err)
	}
	return nil
}
