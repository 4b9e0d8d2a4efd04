// Package identity resolves recipient emails to account ids.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fraudshield/internal/logger"
	"fraudshield/internal/repositories"
	"fraudshield/internal/repositories/cache"
)

// DefaultTTL is how long a resolved email stays cached.
const DefaultTTL = 10 * time.Minute

// Service maps an email to the account that owns it.
type Service interface {
	Resolve(ctx context.Context, email string) (accountID uint, ok bool, err error)
}

type service struct {
	accounts repositories.AccountRepository
	cache    cache.Cache
	ttl      time.Duration
}

// NewService creates an identity resolver backed by the account store. Positive lookups
// are cached when c is not nil.
func NewService(accounts repositories.AccountRepository, c cache.Cache, ttl time.Duration) Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &service{accounts: accounts, cache: c, ttl: ttl}
}

func cacheKey(email string) string {
	return cache.GenerateKey("identity", "email", email)
}

func (s *service) Resolve(ctx context.Context, email string) (uint, bool, error) {
	email = repositories.NormalizeEmail(email)
	if email == "" {
		return 0, false, nil
	}
	log := logger.FromContext(ctx)

	if s.cache != nil {
		var id uint
		found, err := s.cache.Get(ctx, cacheKey(email), &id)
		if err != nil {
			log.Warn().Err(err).Msg("identity cache read failed")
		} else if found {
			return id, true, nil
		}
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup account by email: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetWithTTL(ctx, cacheKey(email), account.ID, s.ttl); err != nil {
			log.Warn().Err(err).Msg("identity cache write failed")
		}
	}
	return account.ID, true, nil
}
