package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ceama-enrollment-api/pkg/jobs"
)

// Background job types.
const (
	JobTypeAccessCodeEmail = "access_code_email"
	JobTypeProofCleanup    = "proof_cleanup"
)

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

type accessCodeNotifier interface {
	AccessCode(ctx context.Context, notice AccessCodeNotice) error
}

type proofFileRemover interface {
	RemoveFiles(paths []string) error
}

// BackgroundJobs dispatches deferred emails and proof file cleanup.
// Without a queue, jobs run inline.
type BackgroundJobs struct {
	queue    jobQueue
	notifier accessCodeNotifier
	files    proofFileRemover
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewBackgroundJobs constructs the dispatcher.
func NewBackgroundJobs(notifier accessCodeNotifier, files proofFileRemover, metrics *MetricsService, logger *zap.Logger) *BackgroundJobs {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackgroundJobs{notifier: notifier, files: files, metrics: metrics, logger: logger}
}

// UseQueue routes subsequent jobs through q.
func (b *BackgroundJobs) UseQueue(q jobQueue) {
	b.queue = q
}

// EnqueueAccessCode schedules an access code email.
func (b *BackgroundJobs) EnqueueAccessCode(notice AccessCodeNotice) error {
	return b.dispatch(jobs.Job{ID: uuid.NewString(), Type: JobTypeAccessCodeEmail, Payload: notice})
}

// EnqueueProofCleanup schedules removal of stored proof files.
func (b *BackgroundJobs) EnqueueProofCleanup(paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	return b.dispatch(jobs.Job{ID: uuid.NewString(), Type: JobTypeProofCleanup, Payload: paths})
}

// Handle executes a job; it is the queue handler.
func (b *BackgroundJobs) Handle(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case JobTypeAccessCodeEmail:
		notice, ok := job.Payload.(AccessCodeNotice)
		if !ok {
			return fmt.Errorf("job %s: unexpected payload %T", job.ID, job.Payload)
		}
		if err := b.notifier.AccessCode(ctx, notice); err != nil {
			b.metrics.RecordNotificationFailure(JobTypeAccessCodeEmail)
			return err
		}
		return nil
	case JobTypeProofCleanup:
		paths, ok := job.Payload.([]string)
		if !ok {
			return fmt.Errorf("job %s: unexpected payload %T", job.ID, job.Payload)
		}
		return b.files.RemoveFiles(paths)
	default:
		b.logger.Warn("unknown job type dropped", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
}

func (b *BackgroundJobs) dispatch(job jobs.Job) error {
	if b.queue != nil {
		return b.queue.Enqueue(job)
	}
	return b.Handle(context.Background(), job)
}
