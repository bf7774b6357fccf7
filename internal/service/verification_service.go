package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/analytics-middletier/internal/cache"
	"github.com/stemsi/analytics-middletier/internal/compare"
	"github.com/stemsi/analytics-middletier/internal/config"
	"github.com/stemsi/analytics-middletier/internal/fixture"
	"github.com/stemsi/analytics-middletier/internal/model"
	"github.com/stemsi/analytics-middletier/internal/queue"
	"github.com/stemsi/analytics-middletier/internal/repository"
)

// VerificationService compares fixtures against the live views. Reads go
// straight to the repositories so a verification never sees cached rows.
type VerificationService struct {
	orgRepo   repository.EducationOrganizationRepository
	authRepo  repository.UserAuthorizationRepository
	jobs      queue.Queue
	reports   cache.ViewCache
	reportTTL time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewVerificationService creates a new VerificationService.
func NewVerificationService(
	orgRepo repository.EducationOrganizationRepository,
	authRepo repository.UserAuthorizationRepository,
	jobs queue.Queue,
	reports cache.ViewCache,
	reportTTL time.Duration,
	log zerolog.Logger,
) *VerificationService {
	return &VerificationService{
		orgRepo:   orgRepo,
		authRepo:  authRepo,
		jobs:      jobs,
		reports:   reports,
		reportTTL: reportTTL,
		now:       time.Now,
		log:       log.With().Str("component", "verification_service").Logger(),
	}
}

// Verify reads both views and diffs them against f. A view the fixture does
// not mention is not checked.
func (s *VerificationService) Verify(ctx context.Context, f *fixture.Fixture) (*model.VerificationReport, error) {
	report := &model.VerificationReport{
		ID:         uuid.New().String(),
		Status:     model.ReportCompleted,
		Mismatches: make([]model.Mismatch, 0),
	}

	if len(f.EducationOrganizations) > 0 {
		actual, err := s.orgRepo.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("read education organizations: %w", err)
		}
		report.EducationOrganizations = len(actual)
		report.Mismatches = append(report.Mismatches, compare.EducationOrganizations(f.EducationOrganizationRows(), actual)...)
	}

	if len(f.UserAuthorizations) > 0 {
		actual, err := s.authRepo.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("read user authorizations: %w", err)
		}
		report.UserAuthorizations = len(actual)
		report.Mismatches = append(report.Mismatches, compare.UserAuthorizations(f.UserAuthorizationRows(), actual)...)
	}

	report.Passed = len(report.Mismatches) == 0
	report.CheckedAt = s.now().UTC()
	return report, nil
}

// Enqueue checks raw as a fixture and queues it for the verification worker.
// It returns the job ID under which the report will be stored.
func (s *VerificationService) Enqueue(ctx context.Context, raw []byte) (string, error) {
	if _, err := fixture.LoadBytes(raw); err != nil {
		return "", err
	}

	job := model.VerificationJob{
		ID:         uuid.New().String(),
		Fixture:    raw,
		EnqueuedAt: s.now().UTC(),
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("encode job: %w", err)
	}
	if err := s.jobs.Push(ctx, payload); err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}

	s.log.Info().Str("job_id", job.ID).Msg("verification queued")
	return job.ID, nil
}

// Process runs a queued job and stores its report under the job ID. A job
// that cannot run still stores a failed report so Result stops answering
// "not ready" for it.
func (s *VerificationService) Process(ctx context.Context, job model.VerificationJob) (*model.VerificationReport, error) {
	f, err := fixture.LoadBytes(job.Fixture)
	if err != nil {
		return nil, s.fail(ctx, job, err)
	}

	report, err := s.Verify(ctx, f)
	if err != nil {
		return nil, s.fail(ctx, job, err)
	}
	report.ID = job.ID

	if err := s.StoreResult(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *VerificationService) fail(ctx context.Context, job model.VerificationJob, cause error) error {
	report := &model.VerificationReport{
		ID:         job.ID,
		Status:     model.ReportFailed,
		Error:      cause.Error(),
		Mismatches: make([]model.Mismatch, 0),
		CheckedAt:  s.now().UTC(),
	}
	// The job context may already be past its deadline.
	if err := s.StoreResult(context.WithoutCancel(ctx), report); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to store failed report")
	}
	return cause
}

// StoreResult saves report for later retrieval by Result.
func (s *VerificationService) StoreResult(ctx context.Context, report *model.VerificationReport) error {
	if err := s.reports.Set(ctx, config.CacheKey.VerificationReportKey(report.ID), report, s.reportTTL); err != nil {
		return fmt.Errorf("store report %s: %w", report.ID, err)
	}
	return nil
}

// Result fetches a stored report, or ErrReportNotFound while the job is
// still queued or after the report expired.
func (s *VerificationService) Result(ctx context.Context, id string) (*model.VerificationReport, error) {
	var report model.VerificationReport
	err := s.reports.Get(ctx, config.CacheKey.VerificationReportKey(id), &report)
	if errors.Is(err, cache.ErrMiss) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", id, err)
	}
	return &report, nil
}
