package worker

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stemsi/analytics-middletier/internal/model"
	"github.com/stemsi/analytics-middletier/internal/queue"
)

const (
	VerificationPollTimeout = 1 * time.Second
	VerificationJobTimeout  = 2 * time.Minute
)

// JobProcessor runs one queued verification.
type JobProcessor interface {
	Process(ctx context.Context, job model.VerificationJob) (*model.VerificationReport, error)
}

type VerificationWorker struct {
	jobs      queue.Queue
	processor JobProcessor
	log       zerolog.Logger
}

func NewVerificationWorker(jobs queue.Queue, processor JobProcessor, log zerolog.Logger) *VerificationWorker {
	return &VerificationWorker{
		jobs:      jobs,
		processor: processor,
		log:       log.With().Str("component", "verification_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop
// ----------------------------------------------------------------

// Start consumes jobs until ctx is cancelled. A job in flight when ctx is
// cancelled is allowed to finish under its own timeout.
func (w *VerificationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("VerificationWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("VerificationWorker stopped")
			return
		default:
		}

		payload, err := w.jobs.Pop(ctx, VerificationPollTimeout)
		if err != nil {
			if !errors.Is(err, queue.ErrEmpty) && ctx.Err() == nil {
				w.log.Error().Err(err).Msg("queue pop failed")
			}
			continue
		}

		w.handle(payload)
	}
}

func (w *VerificationWorker) handle(payload []byte) {
	var job model.VerificationJob
	if err := json.Unmarshal(payload, &job); err != nil {
		w.log.Error().Err(err).Msg("Invalid JSON payload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), VerificationJobTimeout)
	defer cancel()

	start := time.Now()
	report, err := w.processor.Process(ctx, job)
	if err != nil {
		w.log.Error().Err(err).Str("job_id", job.ID).Msg("verification failed")
		return
	}

	w.log.Info().
		Str("job_id", job.ID).
		Bool("passed", report.Passed).
		Int("mismatches", len(report.Mismatches)).
		Dur("took", time.Since(start)).
		Dur("queued_for", start.Sub(job.EnqueuedAt)).
		Msg("verification finished")
}
