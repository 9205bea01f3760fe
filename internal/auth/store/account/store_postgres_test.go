package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clientauth/pkg/errutil"
	"clientauth/pkg/platform/sentinel"
)

var accountRowColumns = []string{"id", "email", "password_hash", "code", "first_name", "last_name", "phone", "address", "created_at"}

func TestPostgresStore_FindByEmail(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	account := newAccount("a@x.com")

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		wantCode  string
	}{
		{
			name: "returns account",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(accountRowColumns).
					AddRow(account.ID.String(), "a@x.com", "$2a$04$hash", "CLIE01", "Ana", "", "", "", created)
				mock.ExpectQuery(`SELECT id::text, email, password_hash`).
					WithArgs("a@x.com").
					WillReturnRows(rows)
			},
		},
		{
			name: "no rows maps to ErrNotFound",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT id::text, email, password_hash`).
					WithArgs("a@x.com").
					WillReturnRows(pgxmock.NewRows(accountRowColumns))
			},
			wantErr:  sentinel.ErrNotFound,
			wantCode: CodeNotFound,
		},
		{
			name: "query failure is wrapped",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT id::text, email, password_hash`).
					WithArgs("a@x.com").
					WillReturnError(errors.New("connection refused"))
			},
			wantCode: CodeQueryFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()
			tt.setupMock(mock)

			store := NewPostgres(mock)
			got, err := store.FindByEmail(context.Background(), "a@x.com")

			if tt.wantCode != "" {
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				errutil.AssertErrorCode(t, err, tt.wantCode)
			} else {
				require.NoError(t, err)
				assert.Equal(t, account.ID, got.ID)
				assert.Equal(t, "a@x.com", got.Email)
				assert.Equal(t, "CLIE01", got.Code)
				assert.Equal(t, created, got.CreatedAt)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresStore_Create(t *testing.T) {
	account := newAccount("a@x.com")
	args := []any{
		account.ID.String(), account.Email, account.PasswordHash, account.Code,
		account.FirstName, account.LastName, account.Phone, account.Address, pgxmock.AnyArg(),
	}

	t.Run("inserts account", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		mock.ExpectExec(`INSERT INTO accounts`).WithArgs(args...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, NewPostgres(mock).Create(context.Background(), account))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation maps to ErrConflict", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		mock.ExpectExec(`INSERT INTO accounts`).WithArgs(args...).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "accounts_email_key"})

		err = NewPostgres(mock).Create(context.Background(), account)
		assert.ErrorIs(t, err, sentinel.ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other errors are not conflicts", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		mock.ExpectExec(`INSERT INTO accounts`).WithArgs(args...).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.NotNullViolation})

		err = NewPostgres(mock).Create(context.Background(), account)
		require.Error(t, err)
		assert.NotErrorIs(t, err, sentinel.ErrConflict)
	})
}

func TestPgxTransactor(t *testing.T) {
	account := newAccount("tx@x.com")

	t.Run("commits and routes writes through the transaction", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO accounts`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		store := NewPostgres(mock)
		err = NewPgxTransactor(mock).InTransaction(context.Background(), func(ctx context.Context) error {
			return store.Create(ctx, account)
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the callback fails", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO accounts`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectRollback()

		boom := errors.New("sign failed")
		store := NewPostgres(mock)
		err = NewPgxTransactor(mock).InTransaction(context.Background(), func(ctx context.Context) error {
			if err := store.Create(ctx, account); err != nil {
				return err
			}
			return boom
		})

		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure is coded", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		mock.ExpectBegin().WillReturnError(errors.New("pool closed"))

		err = NewPgxTransactor(mock).InTransaction(context.Background(), func(context.Context) error {
			t.Fatal("callback must not run")
			return nil
		})

		errutil.AssertErrorCode(t, err, CodeTxBeginFailed)
	})
}
