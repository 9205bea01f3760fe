package account

import (
	"context"
	"sync"

	"github.com/samber/oops"

	"clientauth/internal/auth/models"
	"clientauth/pkg/platform/sentinel"
)

// InMemoryStore keeps accounts in a map keyed by email. It backs local runs
// and tests and favors clarity over performance.
type InMemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{accounts: make(map[string]*models.Account)}
}

// FindByEmail sees committed accounts plus any staged by the caller's own
// open transaction.
func (s *InMemoryStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	if tx, ok := ctx.Value(memTxKey{}).(*memTx); ok {
		if staged, ok := tx.lookup(s, email); ok {
			clone := *staged
			return &clone, nil
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[email]
	if !ok {
		return nil, oops.Code(CodeNotFound).With("email", email).Wrap(sentinel.ErrNotFound)
	}
	clone := *account
	return &clone, nil
}

// Create inserts account, failing with sentinel.ErrConflict when the email is
// taken. Inside InMemoryTransactor.InTransaction the insert is staged and only
// becomes visible to other callers on commit.
func (s *InMemoryStore) Create(ctx context.Context, account *models.Account) error {
	clone := *account
	if tx, ok := ctx.Value(memTxKey{}).(*memTx); ok {
		if _, staged := tx.lookup(s, account.Email); staged || s.exists(account.Email) {
			return conflict(account.Email)
		}
		tx.stage(s, &clone)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[account.Email]; exists {
		return conflict(account.Email)
	}
	s.accounts[account.Email] = &clone
	return nil
}

func (s *InMemoryStore) exists(email string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[email]
	return ok
}

// apply inserts staged accounts all or nothing.
func (s *InMemoryStore) apply(staged []*models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range staged {
		if _, exists := s.accounts[account.Email]; exists {
			return conflict(account.Email)
		}
	}
	for _, account := range staged {
		s.accounts[account.Email] = account
	}
	return nil
}

func conflict(email string) error {
	return oops.Code(CodeConflict).With("email", email).Wrap(sentinel.ErrConflict)
}

func (s *InMemoryStore) Ping(context.Context) error {
	return nil
}

// Len reports the number of stored accounts.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

type memTxKey struct{}

// memTx holds writes staged per store until commit.
type memTx struct {
	order  []*InMemoryStore
	staged map[*InMemoryStore][]*models.Account
}

func (tx *memTx) stage(s *InMemoryStore, account *models.Account) {
	if _, ok := tx.staged[s]; !ok {
		tx.order = append(tx.order, s)
	}
	tx.staged[s] = append(tx.staged[s], account)
}

func (tx *memTx) lookup(s *InMemoryStore, email string) (*models.Account, bool) {
	for _, account := range tx.staged[s] {
		if account.Email == email {
			return account, true
		}
	}
	return nil, false
}

func (tx *memTx) commit() error {
	for _, s := range tx.order {
		if err := s.apply(tx.staged[s]); err != nil {
			return err
		}
	}
	return nil
}

// InMemoryTransactor serializes transactions with a coarse lock. Writes are
// staged and applied on commit, so a failed or panicking callback leaves the
// stores untouched.
type InMemoryTransactor struct {
	mu sync.Mutex
}

func NewInMemoryTransactor() *InMemoryTransactor {
	return &InMemoryTransactor{}
}

func (t *InMemoryTransactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tx := &memTx{staged: make(map[*InMemoryStore][]*models.Account)}
	if err := fn(context.WithValue(ctx, memTxKey{}, tx)); err != nil {
		return err
	}
	return tx.commit()
}
