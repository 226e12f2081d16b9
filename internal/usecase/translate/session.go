package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/errors"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/provider"
	"go.uber.org/zap"
)

const (
	missingFieldsMessage = "The following required fields are missing from this Salesforce record: "
	dataErrorPrefix      = "Data Error: "
)

// session is the state of a single translate call: the origin record,
// the nested records currently being processed and the mapper cache.
type session struct {
	*Translator

	mapper   *Mapper
	metadata metadataBuilder
	logger   *zap.Logger

	primary   *crm.Record
	secondary []*crm.Record
}

func (t *Translator) newSession(logger *zap.Logger) *session {
	return &session{
		Translator: t,
		mapper:     newMapper(t.conn, t.crm, logger),
		metadata:   metadataBuilder{conn: t.conn},
		logger:     logger,
	}
}

// withPrimary runs fn with record as the origin of every failure raised in it.
// User-facing failures are recorded on the Salesforce side before returning.
func (s *session) withPrimary(ctx context.Context, record *crm.Record, fn func() error) error {
	if s.primary != nil {
		return domainErrors.NewImpossibleInternalError("origin object already set, exiting")
	}
	s.primary = record
	defer func() { s.primary = nil }()

	if err := fn(); err != nil {
		return s.reportFailure(ctx, err)
	}
	return nil
}

// withSecondary attributes failures raised in fn to record unless a nested
// scope already attributed them
func (s *session) withSecondary(record *crm.Record, fn func() error) error {
	s.secondary = append(s.secondary, record)
	defer func() { s.secondary = s.secondary[:len(s.secondary)-1] }()

	return domainErrors.WithRecord(fn(), record)
}

func (s *session) reportFailure(ctx context.Context, err error) error {
	record := domainErrors.RecordOf(err)
	if record == nil {
		record = s.primary
	}

	te, typed := domainErrors.AsTranslationError(err)
	var message string
	switch {
	case typed && te.Kind == domainErrors.KindMissingRequiredFields:
		message = missingFieldsMessage + strings.Join(te.MissingFields, ", ")
	case typed && te.Kind == domainErrors.KindRawUserError:
		te.Kind = domainErrors.KindUserError
		te.Record = record
		message = dataErrorPrefix + te.Message
	case typed && te.Kind == domainErrors.KindBillingAPI:
		message = strings.TrimSpace(te.Message + " " + te.RequestID)
	case typed && (te.Kind == domainErrors.KindUserError || te.Kind == domainErrors.KindUnhandledEdgeCase):
		message = te.Message
	case typed && te.Kind == domainErrors.KindCRMAPI:
		message = te.Message
		if te.Cause != nil {
			message += ": " + te.Cause.Error()
		}
	case s.conn.FeatureEnabled(entity.FeatureCatchAllErrors):
		message = err.Error()
	default:
		s.logger.Error("Translation failed", zap.Error(err), zap.Stringer("salesforce_record", record))
		return err
	}

	s.createSyncFailure(ctx, record, message)
	return err
}

// createSyncFailure upserts the Sync_Record__c for the origin and failing record
// and mirrors it locally. Failures to record are logged, never returned.
func (s *session) createSyncFailure(ctx context.Context, record *crm.Record, message string) {
	compoundID := s.primary.ID + "-" + record.ID

	s.logger.Error("Translation failed",
		zap.String("metric", "error.user"),
		zap.String("secondary_salesforce_id", record.ID),
		zap.String("secondary_salesforce_type", string(record.Type)),
		zap.String("error_message", message))

	field := s.conn.PrefixedField
	fields := map[string]interface{}{
		field(entity.FieldPrimaryRecordID):   s.primary.ID,
		field(entity.FieldPrimaryObjectType): string(s.primary.Type),
		field(entity.FieldSecondaryRecordID): record.ID,
		field(entity.FieldSecondaryType):     string(record.Type),
		field(entity.FieldResolutionMessage): message,
		field(entity.FieldResolutionStatus):  entity.SyncStatusError,
	}
	err := s.crm.Upsert(ctx,
		crm.ObjectType(field(entity.ObjectSyncRecord)),
		field(entity.FieldCompoundID),
		compoundID,
		fields,
	)
	if err != nil {
		s.logger.Error("Failed to create sync record", zap.String("compound_id", compoundID), zap.Error(err))
	}

	if s.syncRecords == nil {
		return
	}
	err = s.syncRecords.Upsert(ctx, &entity.SyncRecord{
		ConnectionID:        s.conn.ID,
		CompoundID:          compoundID,
		PrimaryRecordID:     s.primary.ID,
		PrimaryObjectType:   string(s.primary.Type),
		SecondaryRecordID:   record.ID,
		SecondaryObjectType: string(record.Type),
		ResolutionMessage:   message,
		ResolutionStatus:    entity.SyncStatusError,
	})
	if err != nil {
		s.logger.Error("Failed to mirror sync record", zap.String("compound_id", compoundID), zap.Error(err))
	}
}

// linkedID returns the Stripe id linked to record, reading the cross-reference
// field first and the local ledger second
func (s *session) linkedID(ctx context.Context, record *crm.Record, object provider.StripeObject) (string, error) {
	if id := record.GetString(s.conn.PrefixedField(entity.FieldStripeID)); id != "" {
		return id, nil
	}
	if s.links == nil {
		return "", nil
	}
	link, err := s.links.Find(ctx, s.conn.ID, record.ID, string(object))
	if err != nil {
		return "", err
	}
	if link == nil {
		return "", nil
	}
	s.logger.Info("Stripe id missing on Salesforce record, using ledger link",
		zap.String("salesforce_id", record.ID),
		zap.String("stripe_object", string(object)),
		zap.String("stripe_id", link.StripeID))
	return link.StripeID, nil
}

// healMetadata adds or corrects the cross-reference metadata of a linked object
func (s *session) healMetadata(ctx context.Context, object provider.StripeObject, id string, current map[string]string, record *crm.Record) error {
	missing := s.metadata.missingFrom(record, current)
	if len(missing) == 0 {
		return nil
	}
	for k, v := range missing {
		if old, ok := current[k]; ok {
			s.logger.Warn("Overwriting metadata value",
				zap.String("metadata_key", k),
				zap.String("old_value", old),
				zap.String("new_value", v))
		}
	}
	s.logger.Info("Cross-reference metadata missing on linked Stripe object, adding",
		zap.String("stripe_object", string(object)),
		zap.String("stripe_id", id))
	return s.billing.UpdateMetadata(ctx, object, id, missing)
}

// linkCreated records a newly created Stripe object in the local ledger
func (s *session) linkCreated(ctx context.Context, record *crm.Record, object provider.StripeObject, stripeID string) {
	if s.links == nil {
		return
	}
	err := s.links.Save(ctx, &entity.TranslationLink{
		ConnectionID:   s.conn.ID,
		SalesforceID:   record.ID,
		SalesforceType: string(record.Type),
		StripeObject:   string(object),
		StripeID:       stripeID,
	})
	if err != nil {
		s.logger.Warn("Failed to save translation link",
			zap.String("salesforce_id", record.ID),
			zap.String("stripe_id", stripeID),
			zap.Error(err))
	}
}

// writeBack stores the Stripe id, plus any extra fields, on the Salesforce record
func (s *session) writeBack(ctx context.Context, record *crm.Record, stripeID string, extra map[string]interface{}) error {
	field := s.conn.PrefixedField(entity.FieldStripeID)
	if old := record.GetString(field); old != "" && old != stripeID {
		s.logger.Info("Stripe id already exists on object, overwriting",
			zap.String("old_stripe_id", old),
			zap.String("new_stripe_id", stripeID),
			zap.String("field_name", field))
	}

	fields := map[string]interface{}{field: stripeID}
	for k, v := range extra {
		fields[k] = v
	}
	if err := s.crm.Update(ctx, record.Type, record.ID, fields); err != nil {
		return err
	}
	record.Merge(fields)

	s.logger.Info("Updated with stripe id",
		zap.String("salesforce_id", record.ID),
		zap.String("salesforce_type", string(record.Type)),
		zap.String("stripe_id", stripeID))
	return nil
}

// findRecord loads a related record through the session cache
func (s *session) findRecord(ctx context.Context, objectType crm.ObjectType, id string) (*crm.Record, error) {
	if id == "" {
		return nil, domainErrors.NewImpossibleStateError(fmt.Sprintf("missing %s reference", objectType))
	}
	return s.mapper.find(ctx, objectType, id)
}
