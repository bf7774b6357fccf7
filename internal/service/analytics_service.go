package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/analytics-middletier/internal/cache"
	"github.com/stemsi/analytics-middletier/internal/config"
	"github.com/stemsi/analytics-middletier/internal/model"
	"github.com/stemsi/analytics-middletier/internal/repository"
)

// AnalyticsService reads the analytics views through the view cache.
type AnalyticsService struct {
	orgRepo  repository.EducationOrganizationRepository
	authRepo repository.UserAuthorizationRepository
	cache    cache.ViewCache
	ttl      time.Duration
	log      zerolog.Logger
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(
	orgRepo repository.EducationOrganizationRepository,
	authRepo repository.UserAuthorizationRepository,
	viewCache cache.ViewCache,
	ttl time.Duration,
	log zerolog.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		orgRepo:  orgRepo,
		authRepo: authRepo,
		cache:    viewCache,
		ttl:      ttl,
		log:      log.With().Str("component", "analytics_service").Logger(),
	}
}

// readThrough serves key from the cache, loading and storing it on a miss.
// Cache errors are logged and never fail the read.
func readThrough[T any](ctx context.Context, s *AnalyticsService, key string, load func() (T, error)) (T, error) {
	var cached T
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	value, err := load()
	if err != nil {
		return value, err
	}

	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return value, nil
}

// ListEducationOrganizations returns every EPP dimension row.
func (s *AnalyticsService) ListEducationOrganizations(ctx context.Context) ([]model.EducationOrganizationDimension, error) {
	return readThrough(ctx, s, config.CacheKey.EducationOrganizationsKey(), func() ([]model.EducationOrganizationDimension, error) {
		return s.orgRepo.List(ctx)
	})
}

// GetEducationOrganization returns one EPP dimension row or ErrNotFound.
func (s *AnalyticsService) GetEducationOrganization(ctx context.Context, key int) (*model.EducationOrganizationDimension, error) {
	return readThrough(ctx, s, config.CacheKey.EducationOrganizationKey(key), func() (*model.EducationOrganizationDimension, error) {
		d, err := s.orgRepo.GetByKey(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("education organization %d: %w", key, err)
		}
		return d, nil
	})
}

// ListEducationOrganizationsModifiedSince bypasses the cache; the window moves
// with every call.
func (s *AnalyticsService) ListEducationOrganizationsModifiedSince(ctx context.Context, since time.Time) ([]model.EducationOrganizationDimension, error) {
	return s.orgRepo.ListModifiedSince(ctx, since)
}

// ListUserAuthorizations returns every user authorization row.
func (s *AnalyticsService) ListUserAuthorizations(ctx context.Context) ([]model.UserAuthorization, error) {
	return readThrough(ctx, s, config.CacheKey.UserAuthorizationsKey(), func() ([]model.UserAuthorization, error) {
		return s.authRepo.List(ctx)
	})
}

// ListUserAuthorizationsByUser returns the rows of one user.
func (s *AnalyticsService) ListUserAuthorizationsByUser(ctx context.Context, userKey int) ([]model.UserAuthorization, error) {
	return readThrough(ctx, s, config.CacheKey.UserAuthorizationsByUserKey(userKey), func() ([]model.UserAuthorization, error) {
		return s.authRepo.ListByUserKey(ctx, userKey)
	})
}

// ListUserAuthorizationsByDistrict returns the rows scoped to a district.
func (s *AnalyticsService) ListUserAuthorizationsByDistrict(ctx context.Context, districtID int) ([]model.UserAuthorization, error) {
	return readThrough(ctx, s, config.CacheKey.UserAuthorizationsByDistrictKey(districtID), func() ([]model.UserAuthorization, error) {
		return s.authRepo.ListByDistrict(ctx, districtID)
	})
}

// InvalidateCache drops every cached view read.
func (s *AnalyticsService) InvalidateCache(ctx context.Context) error {
	n, err := s.cache.DeletePrefix(ctx, config.CacheKey.ViewPrefix())
	if err != nil {
		return fmt.Errorf("invalidate view cache: %w", err)
	}
	s.log.Debug().Int("keys", n).Msg("view cache invalidated")
	return nil
}
