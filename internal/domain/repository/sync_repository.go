package repository

import (
	"context"

	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/entity"
)

type SyncRecordRepository interface {
	// Upsert creates or replaces the record keyed by connection and compound id
	Upsert(ctx context.Context, record *entity.SyncRecord) error
	ListByPrimary(ctx context.Context, connectionID, primaryRecordID string) ([]*entity.SyncRecord, error)
}

type TranslationLinkRepository interface {
	Save(ctx context.Context, link *entity.TranslationLink) error
	// Find returns nil when no link exists
	Find(ctx context.Context, connectionID, salesforceID, stripeObject string) (*entity.TranslationLink, error)
}

type TranslationJobRepository interface {
	Create(ctx context.Context, job *entity.TranslationJob) error
	GetByJobID(ctx context.Context, jobID string) (*entity.TranslationJob, error)
	MarkProcessing(ctx context.Context, jobID string) error
	MarkCompleted(ctx context.Context, jobID, stripeID string) error
	MarkFailed(ctx context.Context, jobID, lastError string) error
}
