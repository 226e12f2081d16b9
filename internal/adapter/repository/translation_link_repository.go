package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/entity"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/model"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type translationLinkRepository struct {
	db *gorm.DB
}

func NewTranslationLinkRepository(db *gorm.DB) repository.TranslationLinkRepository {
	return &translationLinkRepository{
		db: db,
	}
}

func (r *translationLinkRepository) modelToEntity(m *model.TranslationLink) *entity.TranslationLink {
	if m == nil {
		return nil
	}
	return &entity.TranslationLink{
		ID:             m.ID,
		ConnectionID:   m.ConnectionID,
		SalesforceID:   m.SalesforceID,
		SalesforceType: m.SalesforceType,
		StripeObject:   m.StripeObject,
		StripeID:       m.StripeID,
		CreatedAt:      m.CreatedAt,
	}
}

// Save records the link, replacing the Stripe id of an existing one
func (r *translationLinkRepository) Save(ctx context.Context, link *entity.TranslationLink) error {
	m := &model.TranslationLink{
		ConnectionID:   link.ConnectionID,
		SalesforceID:   link.SalesforceID,
		SalesforceType: link.SalesforceType,
		StripeObject:   link.StripeObject,
		StripeID:       link.StripeID,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "connection_id"}, {Name: "salesforce_id"}, {Name: "stripe_object"}},
			DoUpdates: clause.AssignmentColumns([]string{"stripe_id", "updated_at"}),
		}).
		Create(m).Error
	if err != nil {
		return fmt.Errorf("failed to save translation link: %w", err)
	}
	return nil
}

func (r *translationLinkRepository) Find(ctx context.Context, connectionID, salesforceID, stripeObject string) (*entity.TranslationLink, error) {
	var link model.TranslationLink
	err := r.db.WithContext(ctx).
		Where("connection_id = ? AND salesforce_id = ? AND stripe_object = ?", connectionID, salesforceID, stripeObject).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.modelToEntity(&link), nil
}
