package repository

import (
	"context"
	"fmt"

	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/entity"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/model"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type syncRecordRepository struct {
	db *gorm.DB
}

func NewSyncRecordRepository(db *gorm.DB) repository.SyncRecordRepository {
	return &syncRecordRepository{
		db: db,
	}
}

func (r *syncRecordRepository) modelToEntity(m *model.SyncRecord) *entity.SyncRecord {
	if m == nil {
		return nil
	}
	return &entity.SyncRecord{
		ID:                  m.ID,
		ConnectionID:        m.ConnectionID,
		CompoundID:          m.CompoundID,
		PrimaryRecordID:     m.PrimaryRecordID,
		PrimaryObjectType:   m.PrimaryObjectType,
		SecondaryRecordID:   m.SecondaryRecordID,
		SecondaryObjectType: m.SecondaryObjectType,
		ResolutionMessage:   m.ResolutionMessage,
		ResolutionStatus:    m.ResolutionStatus,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

func (r *syncRecordRepository) entityToModel(e *entity.SyncRecord) *model.SyncRecord {
	return &model.SyncRecord{
		ID:                  e.ID,
		ConnectionID:        e.ConnectionID,
		CompoundID:          e.CompoundID,
		PrimaryRecordID:     e.PrimaryRecordID,
		PrimaryObjectType:   e.PrimaryObjectType,
		SecondaryRecordID:   e.SecondaryRecordID,
		SecondaryObjectType: e.SecondaryObjectType,
		ResolutionMessage:   e.ResolutionMessage,
		ResolutionStatus:    e.ResolutionStatus,
	}
}

func (r *syncRecordRepository) Upsert(ctx context.Context, record *entity.SyncRecord) error {
	m := r.entityToModel(record)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "connection_id"}, {Name: "compound_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"secondary_record_id",
				"secondary_object_type",
				"resolution_message",
				"resolution_status",
				"updated_at",
			}),
		}).
		Create(m).Error
	if err != nil {
		return fmt.Errorf("failed to upsert sync record: %w", err)
	}
	return nil
}

func (r *syncRecordRepository) ListByPrimary(ctx context.Context, connectionID, primaryRecordID string) ([]*entity.SyncRecord, error) {
	var records []model.SyncRecord
	err := r.db.WithContext(ctx).
		Where("connection_id = ? AND primary_record_id = ?", connectionID, primaryRecordID).
		Order("updated_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	result := make([]*entity.SyncRecord, 0, len(records))
	for i := range records {
		result = append(result, r.modelToEntity(&records[i]))
	}
	return result, nil
}
