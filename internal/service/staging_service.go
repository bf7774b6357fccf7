package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/analytics-middletier/internal/fixture"
	"github.com/stemsi/analytics-middletier/internal/repository"
)

// StageResult counts the rows written by a staging run.
type StageResult struct {
	EducationOrganizations int64 `json:"education_organizations"`
	UserAuthorizations     int64 `json:"user_authorizations"`
	Replaced               bool  `json:"replaced"`
}

// StagingService loads fixture rows into the tables behind the views.
type StagingService struct {
	tx        repository.Transactor
	orgRepo   repository.EducationOrganizationRepository
	authRepo  repository.UserAuthorizationRepository
	analytics *AnalyticsService
	log       zerolog.Logger
}

// NewStagingService creates a new StagingService. Cached reads are dropped
// after every run through analytics.
func NewStagingService(
	tx repository.Transactor,
	orgRepo repository.EducationOrganizationRepository,
	authRepo repository.UserAuthorizationRepository,
	analytics *AnalyticsService,
	log zerolog.Logger,
) *StagingService {
	return &StagingService{
		tx:        tx,
		orgRepo:   orgRepo,
		authRepo:  authRepo,
		analytics: analytics,
		log:       log.With().Str("component", "staging_service").Logger(),
	}
}

// Stage copies the fixture's rows into the view tables in one transaction.
// With replace the tables are emptied first. Cached reads are dropped whether
// or not the transaction commits.
func (s *StagingService) Stage(ctx context.Context, f *fixture.Fixture, replace bool) (*StageResult, error) {
	defer s.invalidate(ctx)

	res := &StageResult{Replaced: replace}
	err := s.tx.InTx(ctx, func(tx pgx.Tx) error {
		orgRepo := s.orgRepo.WithTx(tx)
		authRepo := s.authRepo.WithTx(tx)

		if replace {
			if err := orgRepo.Truncate(ctx); err != nil {
				return fmt.Errorf("truncate education organizations: %w", err)
			}
			if err := authRepo.Truncate(ctx); err != nil {
				return fmt.Errorf("truncate user authorizations: %w", err)
			}
		}

		var err error
		res.EducationOrganizations, err = orgRepo.Stage(ctx, f.EducationOrganizationRows())
		if err != nil {
			return fmt.Errorf("stage education organizations: %w", err)
		}
		res.UserAuthorizations, err = authRepo.Stage(ctx, f.UserAuthorizationRows())
		if err != nil {
			return fmt.Errorf("stage user authorizations: %w", err)
		}
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Bool("replaced", replace).Msg("fixture staging rolled back")
		return nil, err
	}

	s.log.Info().
		Int64("education_organizations", res.EducationOrganizations).
		Int64("user_authorizations", res.UserAuthorizations).
		Bool("replaced", replace).
		Msg("fixture staged")
	return res, nil
}

func (s *StagingService) invalidate(ctx context.Context) {
	if err := s.analytics.InvalidateCache(context.WithoutCancel(ctx)); err != nil {
		s.log.Warn().Err(err).Msg("staged rows may be served stale until the cache expires")
	}
}
