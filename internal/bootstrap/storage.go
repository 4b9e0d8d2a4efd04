// Package bootstrap opens the storage backends shared by the server and the seed command.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"fraudshield/internal/config"
	"fraudshield/internal/handlers"
	"fraudshield/internal/repositories"
	"fraudshield/internal/repositories/cache"

	"github.com/rs/zerolog"
)

// DefaultCacheTTL applies to cache writes that do not pass their own TTL.
const DefaultCacheTTL = 15 * time.Minute

// Storage bundles the repositories and cache a process runs against.
type Storage struct {
	Accounts     repositories.AccountRepository
	Ledger       repositories.LedgerRepository
	Transactions repositories.TransactionRepository
	Cases        repositories.CaseRepository
	Cache        cache.Cache

	// InMemory is true when nothing outlives the process
	InMemory bool
	Checks   []handlers.HealthCheck

	closers []func() error
}

// UseMemoryStore reports whether USE_MEMORY_STORE asks for the in-process backends.
func UseMemoryStore() bool {
	return config.GetBoolEnv("USE_MEMORY_STORE", false)
}

// Open connects to postgres and redis, or builds the in-memory store when memory is set.
func Open(ctx context.Context, log zerolog.Logger, memory bool) (*Storage, error) {
	if memory {
		return openMemory(log), nil
	}

	db, err := repositories.Open(repositories.LoadDBConfig(), log)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := repositories.Migrate(db); err != nil {
		_ = repositories.Close(db)
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	log.Info().Msg("database connected and migrated")

	redisClient := cache.NewRedisClient(cache.LoadRedisConfig())
	cacheSvc := cache.NewCacheService(redisClient, DefaultCacheTTL)
	if err := cacheSvc.HealthCheck(ctx); err != nil {
		log.Warn().Err(err).Msg("redis unavailable at startup")
	} else {
		log.Info().Msg("redis connected")
	}

	s := &Storage{
		Accounts:     repositories.NewAccountRepository(db),
		Ledger:       repositories.NewLedgerRepository(db),
		Transactions: repositories.NewTransactionRepository(db),
		Cases:        repositories.NewCaseRepository(db),
		Cache:        cacheSvc,
		Checks: []handlers.HealthCheck{
			{Name: "database", Check: func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			}},
			{Name: "redis", Check: cacheSvc.HealthCheck},
		},
	}
	s.closers = append(s.closers, cacheSvc.Close, func() error { return repositories.Close(db) })
	return s, nil
}

func openMemory(log zerolog.Logger) *Storage {
	store := repositories.NewMemoryStore()
	memCache := cache.NewMemoryCache(DefaultCacheTTL)
	log.Warn().Msg("using in-memory store, data is lost on exit")
	return &Storage{
		Accounts:     store.Accounts(),
		Ledger:       store.Ledger(),
		Transactions: store.Transactions(),
		Cases:        store.Cases(),
		Cache:        memCache,
		InMemory:     true,
		Checks: []handlers.HealthCheck{
			{Name: "store", Check: memCache.HealthCheck},
		},
	}
}

// Close releases every connection, logging failures.
func (s *Storage) Close(log zerolog.Logger) {
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			log.Error().Err(err).Msg("failed to close storage connection")
		}
	}
}
