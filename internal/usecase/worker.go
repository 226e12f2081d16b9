package usecase

import (
	"context"
	"sync"

	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/entity"
	"github.com/wekeepgrowing/stripe-cpq-connector/pkg/messaging"
	"go.uber.org/zap"
)

// JobProcessor runs one translate job
type JobProcessor interface {
	Process(ctx context.Context, job entity.TranslateJob) (*entity.TranslationResult, error)
}

// WorkerConfig holds the job channel and the number of jobs run at once
type WorkerConfig struct {
	Channel     string
	Concurrency int
}

// Worker consumes translate jobs from the job channel
type Worker struct {
	subscriber messaging.RedisClient
	processor  JobProcessor
	config     WorkerConfig
	logger     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker creates a worker. Concurrency below one runs jobs one at a time.
func NewWorker(subscriber messaging.RedisClient, processor JobProcessor, config WorkerConfig, logger *zap.Logger) *Worker {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	return &Worker{
		subscriber: subscriber,
		processor:  processor,
		config:     config,
		logger:     logger.Named("worker"),
	}
}

// Start subscribes to the job channel and processes jobs in the background
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	messages, err := w.subscriber.Subscribe(ctx, w.config.Channel)
	if err != nil {
		cancel()
		return err
	}
	w.cancel = cancel

	w.wg.Add(1)
	go w.consume(ctx, messages)

	w.logger.Info("Worker started",
		zap.String("channel", w.config.Channel),
		zap.Int("concurrency", w.config.Concurrency))
	return nil
}

// Stop cancels the subscription and waits for running jobs
func (w *Worker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Worker stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// consume runs every delivered job until the subscription closes the channel.
// Jobs run detached from the subscription context and Stop waits for them.
func (w *Worker) consume(ctx context.Context, messages <-chan messaging.Message) {
	defer w.wg.Done()

	jobCtx := context.WithoutCancel(ctx)
	slots := make(chan struct{}, w.config.Concurrency)
	for message := range messages {
		var job entity.TranslateJob
		if err := message.Decode(&job); err != nil {
			w.logger.Error("Dropping undecodable job", zap.Error(err))
			continue
		}
		if job.ConnectionID == "" || job.RecordID == "" {
			w.logger.Error("Dropping incomplete job",
				zap.String("job_id", job.JobID),
				zap.String("connection_id", job.ConnectionID),
				zap.String("record_id", job.RecordID))
			continue
		}

		slots <- struct{}{}
		w.wg.Add(1)
		go func(job entity.TranslateJob) {
			defer w.wg.Done()
			defer func() { <-slots }()
			w.handle(jobCtx, job)
		}(job)
	}
}

func (w *Worker) handle(ctx context.Context, job entity.TranslateJob) {
	log := w.logger.With(
		zap.String("job_id", job.JobID),
		zap.String("connection_id", job.ConnectionID),
		zap.String("record_id", job.RecordID),
	)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Job panicked", zap.Any("panic", r))
		}
	}()

	if _, err := w.processor.Process(ctx, job); err != nil {
		log.Warn("Job failed", zap.Error(err))
		return
	}
	log.Debug("Job done")
}
