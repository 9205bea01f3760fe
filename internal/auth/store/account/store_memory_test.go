package account

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"clientauth/internal/auth/models"
	"clientauth/pkg/domain"
	"clientauth/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	tx    *InMemoryTransactor
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.tx = NewInMemoryTransactor()
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func newAccount(email string) *models.Account {
	return &models.Account{
		ID:           domain.NewAccountID(),
		Email:        email,
		PasswordHash: "$2a$04$hash",
		Code:         "CLIE01HZX0000000000000000000",
		FirstName:    "Ana",
		CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *InMemoryStoreSuite) TestLookupBehavior() {
	ctx := context.Background()

	s.Run("returns account by email when exists", func() {
		account := newAccount("lookup@example.com")
		s.Require().NoError(s.store.Create(ctx, account))

		found, err := s.store.FindByEmail(ctx, account.Email)
		s.Require().NoError(err)
		s.Equal(account, found)
	})

	s.Run("returns ErrNotFound for unknown email", func() {
		_, err := s.store.FindByEmail(ctx, "missing@example.com")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned account is a copy", func() {
		account := newAccount("copy@example.com")
		s.Require().NoError(s.store.Create(ctx, account))

		found, err := s.store.FindByEmail(ctx, account.Email)
		s.Require().NoError(err)
		found.PasswordHash = "mutated"

		again, err := s.store.FindByEmail(ctx, account.Email)
		s.Require().NoError(err)
		s.Equal("$2a$04$hash", again.PasswordHash)
	})
}

func (s *InMemoryStoreSuite) TestCreateRejectsDuplicates() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, newAccount("dup@example.com")))

	err := s.store.Create(ctx, newAccount("dup@example.com"))
	s.ErrorIs(err, sentinel.ErrConflict)
	s.Equal(1, s.store.Len())
}

func (s *InMemoryStoreSuite) TestConcurrentDuplicateCreate() {
	ctx := context.Background()
	const workers = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
				return s.store.Create(ctx, newAccount("race@example.com"))
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, sentinel.ErrConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, successes)
	s.Equal(workers-1, conflicts)
	s.Equal(1, s.store.Len())
}

func (s *InMemoryStoreSuite) TestTransactionRollsBackOnError() {
	ctx := context.Background()
	boom := errors.New("token signing failed")

	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, newAccount("rollback@example.com")); err != nil {
			return err
		}
		return boom
	})

	s.ErrorIs(err, boom)
	_, err = s.store.FindByEmail(ctx, "rollback@example.com")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestTransactionCommitsOnSuccess() {
	ctx := context.Background()

	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		return s.store.Create(ctx, newAccount("commit@example.com"))
	})

	s.Require().NoError(err)
	_, err = s.store.FindByEmail(ctx, "commit@example.com")
	s.NoError(err)
}

func (s *InMemoryStoreSuite) TestOpenTransactionIsInvisibleToOthers() {
	ctx := context.Background()
	staged := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- s.tx.InTransaction(ctx, func(txCtx context.Context) error {
			if err := s.store.Create(txCtx, newAccount("pending@example.com")); err != nil {
				return err
			}
			found, err := s.store.FindByEmail(txCtx, "pending@example.com")
			if err != nil {
				return err
			}
			if found.Email != "pending@example.com" {
				return errors.New("own write not visible")
			}
			close(staged)
			<-release
			return nil
		})
	}()

	<-staged
	_, err := s.store.FindByEmail(ctx, "pending@example.com")
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.Equal(0, s.store.Len())

	close(release)
	s.Require().NoError(<-done)
	_, err = s.store.FindByEmail(ctx, "pending@example.com")
	s.NoError(err)
}

func (s *InMemoryStoreSuite) TestPanicInTransactionLeavesStoreUntouched() {
	ctx := context.Background()

	s.Panics(func() {
		_ = s.tx.InTransaction(ctx, func(txCtx context.Context) error {
			s.Require().NoError(s.store.Create(txCtx, newAccount("panic@example.com")))
			panic("boom")
		})
	})

	_, err := s.store.FindByEmail(ctx, "panic@example.com")
	s.ErrorIs(err, sentinel.ErrNotFound)

	// The transactor lock was released.
	s.NoError(s.tx.InTransaction(ctx, func(txCtx context.Context) error {
		return s.store.Create(txCtx, newAccount("panic@example.com"))
	}))
}

func (s *InMemoryStoreSuite) TestCommitDetectsConflictingDirectWrite() {
	ctx := context.Background()

	err := s.tx.InTransaction(ctx, func(txCtx context.Context) error {
		if err := s.store.Create(txCtx, newAccount("late@example.com")); err != nil {
			return err
		}
		return s.store.Create(ctx, newAccount("late@example.com"))
	})

	s.ErrorIs(err, sentinel.ErrConflict)
	s.Equal(1, s.store.Len())
}
