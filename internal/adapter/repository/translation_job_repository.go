package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/entity"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/model"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/repository"
	"gorm.io/gorm"
)

type translationJobRepository struct {
	db *gorm.DB
}

func NewTranslationJobRepository(db *gorm.DB) repository.TranslationJobRepository {
	return &translationJobRepository{
		db: db,
	}
}

func (r *translationJobRepository) modelToEntity(m *model.TranslationJob) *entity.TranslationJob {
	if m == nil {
		return nil
	}
	job := &entity.TranslationJob{
		ID:           m.ID,
		JobID:        m.JobID.String(),
		ConnectionID: m.ConnectionID,
		RecordID:     m.RecordID,
		RecordType:   m.RecordType,
		Status:       string(m.Status),
		Attempts:     m.Attempts,
		StartedAt:    m.StartedAt,
		FinishedAt:   m.FinishedAt,
		CreatedAt:    m.CreatedAt,
	}
	if m.StripeID != nil {
		job.StripeID = *m.StripeID
	}
	if m.LastError != nil {
		job.LastError = *m.LastError
	}
	return job
}

func (r *translationJobRepository) Create(ctx context.Context, job *entity.TranslationJob) error {
	jobID, err := uuid.Parse(job.JobID)
	if err != nil {
		return fmt.Errorf("invalid job id %q: %w", job.JobID, err)
	}

	m := &model.TranslationJob{
		JobID:        jobID,
		ConnectionID: job.ConnectionID,
		RecordID:     job.RecordID,
		RecordType:   job.RecordType,
		Status:       model.JobStatusPending,
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create translation job: %w", err)
	}
	job.ID = m.ID
	job.Status = string(m.Status)
	job.CreatedAt = m.CreatedAt
	return nil
}

func (r *translationJobRepository) GetByJobID(ctx context.Context, jobID string) (*entity.TranslationJob, error) {
	id, err := uuid.Parse(jobID)
	if err != nil {
		return nil, err
	}

	var job model.TranslationJob
	err = r.db.WithContext(ctx).Where("job_id = ?", id).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.modelToEntity(&job), nil
}

func (r *translationJobRepository) MarkProcessing(ctx context.Context, jobID string) error {
	now := time.Now()
	return r.update(ctx, jobID, map[string]interface{}{
		"status":     model.JobStatusProcessing,
		"attempts":   gorm.Expr("attempts + 1"),
		"started_at": &now,
	})
}

func (r *translationJobRepository) MarkCompleted(ctx context.Context, jobID, stripeID string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":      model.JobStatusCompleted,
		"finished_at": &now,
		"last_error":  nil,
	}
	if stripeID != "" {
		updates["stripe_id"] = stripeID
	}
	return r.update(ctx, jobID, updates)
}

func (r *translationJobRepository) MarkFailed(ctx context.Context, jobID, lastError string) error {
	now := time.Now()
	return r.update(ctx, jobID, map[string]interface{}{
		"status":      model.JobStatusFailed,
		"finished_at": &now,
		"last_error":  lastError,
	})
}

func (r *translationJobRepository) update(ctx context.Context, jobID string, updates map[string]interface{}) error {
	id, err := uuid.Parse(jobID)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Model(&model.TranslationJob{}).
		Where("job_id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update translation job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("translation job %s not found", jobID)
	}
	return nil
}
