package service

import (
	"context"

	"clientauth/pkg/domain"
)

// LoadIdentity reloads the identity for accountIdentifier. Unknown accounts
// surface as sentinel.ErrNotFound. The returned identity never carries the
// credential hash.
func (s *Service) LoadIdentity(ctx context.Context, accountIdentifier string) (domain.Identity, error) {
	account, err := s.accounts.FindByEmail(ctx, domain.NormalizeEmail(accountIdentifier))
	if err != nil {
		return domain.Identity{}, err
	}
	return account.Identity().Public(), nil
}
