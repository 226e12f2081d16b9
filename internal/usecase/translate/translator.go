package translate

import (
	"context"

	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/errors"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/provider"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/repository"
	"github.com/wekeepgrowing/stripe-cpq-connector/pkg/logger"
	"go.uber.org/zap"
)

// Dependencies are the collaborators of a Translator bound to one connection.
// SyncRecords and Links are optional.
type Dependencies struct {
	Connection  *entity.Connection
	CRM         provider.CRMProvider
	CPQ         repository.CPQRepository
	Billing     provider.BillingProvider
	SyncRecords repository.SyncRecordRepository
	Links       repository.TranslationLinkRepository
}

// Translator turns Salesforce CPQ records into Stripe billing objects for one connection
type Translator struct {
	conn        *entity.Connection
	crm         provider.CRMProvider
	cpq         repository.CPQRepository
	billing     provider.BillingProvider
	syncRecords repository.SyncRecordRepository
	links       repository.TranslationLinkRepository
	logger      *zap.Logger
}

// NewTranslator creates a translator
func NewTranslator(deps Dependencies, logger *zap.Logger) *Translator {
	return &Translator{
		conn:        deps.Connection,
		crm:         deps.CRM,
		cpq:         deps.CPQ,
		billing:     deps.Billing,
		syncRecords: deps.SyncRecords,
		links:       deps.Links,
		logger:      logger.Named("translator").With(zap.String("connection_id", deps.Connection.ID)),
	}
}

// Translate loads the record with the given Salesforce id and translates it
func (t *Translator) Translate(ctx context.Context, id string) (*entity.TranslationResult, error) {
	objectType, err := crm.TypeFromID(id)
	if err != nil {
		return nil, domainErrors.NewUnsupportedTypeError(crm.ObjectType(id))
	}
	switch objectType {
	case crm.ObjectOrder, crm.ObjectProduct, crm.ObjectPricebookEntry, crm.ObjectAccount:
	default:
		return nil, domainErrors.NewUnsupportedTypeError(objectType)
	}

	record, err := t.crm.Find(ctx, objectType, id)
	if err != nil {
		return nil, err
	}
	return t.TranslateRecord(ctx, record)
}

// TranslateRecord translates an already loaded record. Orders produce a
// subscription schedule or invoice, products a product, pricebook entries a
// price and accounts a customer.
func (t *Translator) TranslateRecord(ctx context.Context, record *crm.Record) (*entity.TranslationResult, error) {
	log := logger.FromContext(ctx, t.logger).With(
		zap.String("salesforce_id", record.ID),
		zap.String("salesforce_type", string(record.Type)),
	)
	s := t.newSession(log)

	var result *entity.TranslationResult
	err := s.withPrimary(ctx, record, func() error {
		var err error
		switch record.Type {
		case crm.ObjectOrder:
			result, err = s.translateOrder(ctx, record)
		case crm.ObjectProduct:
			product, perr := s.translateProduct(ctx, record)
			if perr != nil {
				return perr
			}
			result = stripeResult(record, provider.StripeProduct, product.ID)
		case crm.ObjectPricebookEntry:
			resolution, perr := s.createPriceFromPricebook(ctx, record)
			if perr != nil {
				return perr
			}
			if resolution.Skipped {
				result = &entity.TranslationResult{RecordID: record.ID, RecordType: string(record.Type), Skipped: true}
			} else {
				result = stripeResult(record, provider.StripePrice, resolution.Price.ID)
			}
		case crm.ObjectAccount:
			customer, perr := s.translateAccount(ctx, record)
			if perr != nil {
				return perr
			}
			result = stripeResult(record, provider.StripeCustomer, customer.ID)
		default:
			err = domainErrors.NewUnsupportedTypeError(record.Type)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info("Translation completed",
		zap.String("stripe_object", result.StripeObject),
		zap.String("stripe_id", result.StripeID),
		zap.Bool("skipped", result.Skipped))
	return result, nil
}

// ExtractContractStructure returns the initial order and amendments of the
// contract the order belongs to
func (t *Translator) ExtractContractStructure(ctx context.Context, orderID string) (*entity.ContractStructure, error) {
	order, err := t.crm.Find(ctx, crm.ObjectOrder, orderID)
	if err != nil {
		return nil, err
	}
	s := t.newSession(logger.FromContext(ctx, t.logger).With(zap.String("salesforce_id", orderID)))
	return s.contractStructure(ctx, order)
}

func stripeResult(record *crm.Record, object provider.StripeObject, id string) *entity.TranslationResult {
	return &entity.TranslationResult{
		RecordID:     record.ID,
		RecordType:   string(record.Type),
		StripeObject: string(object),
		StripeID:     id,
	}
}
