package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/entity"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/repository"
	pkgErrors "github.com/wekeepgrowing/stripe-cpq-connector/pkg/errors"
	"github.com/wekeepgrowing/stripe-cpq-connector/pkg/logger"
	"github.com/wekeepgrowing/stripe-cpq-connector/pkg/messaging"
	"go.uber.org/zap"
)

const releaseTimeout = 5 * time.Second

// Translator is the translation engine bound to one connection
type Translator interface {
	Translate(ctx context.Context, id string) (*entity.TranslationResult, error)
	ExtractContractStructure(ctx context.Context, orderID string) (*entity.ContractStructure, error)
}

// TranslatorFactory returns the translator of a connection
type TranslatorFactory interface {
	Translator(conn *entity.Connection) Translator
}

// ConnectionRegistry resolves connection ids
type ConnectionRegistry interface {
	Get(id string) (*entity.Connection, error)
}

// RecordLocker grants at most one concurrent translation per record
type RecordLocker interface {
	Acquire(ctx context.Context, connectionID, recordID string) (func(context.Context) error, error)
}

// TranslationService runs translate jobs and keeps their history
type TranslationService struct {
	connections ConnectionRegistry
	translators TranslatorFactory
	locker      RecordLocker
	jobs        repository.TranslationJobRepository
	publisher   messaging.RedisClient
	channel     string
	logger      *zap.Logger
}

// NewTranslationService creates a translation service. publisher may be nil
// when jobs are only run inline.
func NewTranslationService(
	connections ConnectionRegistry,
	translators TranslatorFactory,
	locker RecordLocker,
	jobs repository.TranslationJobRepository,
	publisher messaging.RedisClient,
	channel string,
	logger *zap.Logger,
) *TranslationService {
	return &TranslationService{
		connections: connections,
		translators: translators,
		locker:      locker,
		jobs:        jobs,
		publisher:   publisher,
		channel:     channel,
		logger:      logger.Named("translation"),
	}
}

// Enqueue records a pending job and publishes it on the job channel
func (s *TranslationService) Enqueue(ctx context.Context, connectionID, recordID string) (*entity.TranslationJob, error) {
	if recordID == "" {
		return nil, ClassifyError(ErrMissingRecordID)
	}
	if _, err := s.connections.Get(connectionID); err != nil {
		return nil, ClassifyError(err)
	}
	if s.publisher == nil {
		return nil, pkgErrors.NewAppError(pkgErrors.ErrNotImplemented, "job channel is not configured", nil)
	}

	job := newJob(connectionID, recordID)
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, pkgErrors.Wrap(err, "failed to record translation job")
	}

	message := entity.TranslateJob{
		JobID:        job.JobID,
		ConnectionID: connectionID,
		RecordID:     recordID,
	}
	if err := s.publisher.Publish(ctx, s.channel, message); err != nil {
		if markErr := s.jobs.MarkFailed(ctx, job.JobID, err.Error()); markErr != nil {
			s.logger.Error("Failed to mark job failed", zap.String("job_id", job.JobID), zap.Error(markErr))
		}
		return nil, pkgErrors.NewAppError(pkgErrors.ErrInternal, "failed to publish translation job", err)
	}

	s.logger.Info("Translation job enqueued",
		zap.String("job_id", job.JobID),
		zap.String("connection_id", connectionID),
		zap.String("record_id", recordID))
	return job, nil
}

// TranslateNow records a job and runs it in the calling goroutine
func (s *TranslationService) TranslateNow(ctx context.Context, connectionID, recordID string) (*entity.TranslationResult, error) {
	if recordID == "" {
		return nil, ClassifyError(ErrMissingRecordID)
	}
	conn, err := s.connections.Get(connectionID)
	if err != nil {
		return nil, ClassifyError(err)
	}

	job := newJob(connectionID, recordID)
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, pkgErrors.Wrap(err, "failed to record translation job")
	}
	return s.run(ctx, conn, job.JobID, recordID)
}

// Process runs a job received from the job channel. Jobs published by other
// producers get their history row created here.
func (s *TranslationService) Process(ctx context.Context, message entity.TranslateJob) (*entity.TranslationResult, error) {
	if _, err := uuid.Parse(message.JobID); err != nil {
		message.JobID = uuid.NewString()
	}

	existing, err := s.jobs.GetByJobID(ctx, message.JobID)
	if err != nil {
		return nil, pkgErrors.Wrap(err, "failed to load translation job")
	}
	if existing == nil {
		job := newJob(message.ConnectionID, message.RecordID)
		job.JobID = message.JobID
		if err := s.jobs.Create(ctx, job); err != nil {
			return nil, pkgErrors.Wrap(err, "failed to record translation job")
		}
	}

	conn, err := s.connections.Get(message.ConnectionID)
	if err != nil {
		appErr := ClassifyError(err)
		s.fail(ctx, s.logger, message.JobID, appErr)
		return nil, appErr
	}
	return s.run(ctx, conn, message.JobID, message.RecordID)
}

// ContractStructure resolves the initial order and amendments of an order's contract
func (s *TranslationService) ContractStructure(ctx context.Context, connectionID, orderID string) (*entity.ContractSummary, error) {
	if objectType, err := crm.TypeFromID(orderID); err != nil || objectType != crm.ObjectOrder {
		return nil, ClassifyError(ErrNotAnOrder)
	}
	conn, err := s.connections.Get(connectionID)
	if err != nil {
		return nil, ClassifyError(err)
	}

	ctx, _ = logger.WithConnectionID(ctx, s.logger, conn.ID)
	structure, err := s.translators.Translator(conn).ExtractContractStructure(ctx, orderID)
	if err != nil {
		return nil, ClassifyError(err)
	}
	summary := structure.Summary()
	return &summary, nil
}

func (s *TranslationService) run(ctx context.Context, conn *entity.Connection, jobID, recordID string) (*entity.TranslationResult, error) {
	ctx, log := logger.WithConnectionID(ctx, s.logger, conn.ID)
	log = log.With(zap.String("job_id", jobID), zap.String("record_id", recordID))
	ctx = logger.WithContext(ctx, log)

	release, err := s.locker.Acquire(ctx, conn.ID, recordID)
	if err != nil {
		appErr := ClassifyError(err)
		s.fail(ctx, log, jobID, appErr)
		return nil, appErr
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := release(releaseCtx); err != nil {
			log.Warn("Failed to release record lock", zap.Error(err))
		}
	}()

	if err := s.jobs.MarkProcessing(ctx, jobID); err != nil {
		return nil, pkgErrors.Wrap(err, "failed to mark job processing")
	}

	log.Info("Translating record")
	result, err := s.translators.Translator(conn).Translate(ctx, recordID)
	if err != nil {
		appErr := ClassifyError(err)
		s.fail(ctx, log, jobID, appErr)
		return nil, appErr
	}

	if err := s.jobs.MarkCompleted(ctx, jobID, result.StripeID); err != nil {
		log.Error("Failed to mark job completed", zap.Error(err))
	}
	log.Info("Translation completed",
		zap.String("stripe_object", result.StripeObject),
		zap.String("stripe_id", result.StripeID),
		zap.Bool("skipped", result.Skipped))
	return result, nil
}

func (s *TranslationService) fail(ctx context.Context, log *zap.Logger, jobID string, err error) {
	pkgErrors.LogError(log, err, "Translation failed")
	if markErr := s.jobs.MarkFailed(ctx, jobID, err.Error()); markErr != nil {
		log.Error("Failed to mark job failed", zap.Error(markErr))
	}
}

func newJob(connectionID, recordID string) *entity.TranslationJob {
	job := &entity.TranslationJob{
		JobID:        uuid.NewString(),
		ConnectionID: connectionID,
		RecordID:     recordID,
	}
	if objectType, err := crm.TypeFromID(recordID); err == nil {
		job.RecordType = string(objectType)
	}
	return job
}
