package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/analytics-middletier/internal/cache"
	"github.com/stemsi/analytics-middletier/internal/config"
	"github.com/stemsi/analytics-middletier/internal/database"
	"github.com/stemsi/analytics-middletier/internal/logger"
	"github.com/stemsi/analytics-middletier/internal/repository"
)

// stores holds the connections a command needs.
type stores struct {
	cfg  *config.Config
	log  zerolog.Logger
	pool *pgxpool.Pool
	rdb  *redis.Client

	orgRepo  repository.EducationOrganizationRepository
	authRepo repository.UserAuthorizationRepository
}

func openStores(ctx context.Context) (*stores, error) {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &stores{
		cfg:      cfg,
		log:      log,
		pool:     pool,
		orgRepo:  repository.NewEducationOrganizationRepository(pool, cfg.AnalyticsSchema),
		authRepo: repository.NewUserAuthorizationRepository(pool, cfg.AnalyticsSchema),
	}, nil
}

// viewCache returns the API's Redis cache so staged rows invalidate it. When
// Redis is unreachable a process-local cache is used and the API keeps
// serving cached rows until they expire.
func (s *stores) viewCache(ctx context.Context) cache.ViewCache {
	rdb, err := database.NewRedisClient(ctx, s.cfg, s.log)
	if err != nil {
		s.log.Warn().Err(err).Msg("Redis unavailable, API cache will not be invalidated")
		return cache.NewMemoryCache()
	}
	s.rdb = rdb
	return cache.NewRedisCache(rdb)
}

func (s *stores) Close() {
	if s.rdb != nil {
		_ = s.rdb.Close()
	}
	s.pool.Close()
}
