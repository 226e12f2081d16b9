package translate

import (
	"context"

	"github.com/stripe/stripe-go/v79"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/provider"
	"go.uber.org/zap"
)

// translateAccount finds or creates the customer linked to an account
func (s *session) translateAccount(ctx context.Context, account *crm.Record) (*stripe.Customer, error) {
	var customer *stripe.Customer
	err := s.withSecondary(account, func() error {
		s.logger.Info("Translating customer", zap.String("salesforce_id", account.ID))

		id, err := s.linkedID(ctx, account, provider.StripeCustomer)
		if err != nil {
			return err
		}
		if id != "" {
			existing, err := s.billing.RetrieveCustomer(ctx, id)
			if err != nil {
				return err
			}
			if existing != nil {
				customer = existing
				s.logger.Info("Existing stripe record found", zap.String("stripe_id", existing.ID))
				return s.healMetadata(ctx, provider.StripeCustomer, existing.ID, existing.Metadata, account)
			}
		}

		values, err := s.mapper.Map(ctx, account, TargetCustomer)
		if err != nil {
			return err
		}

		params := &stripe.CustomerParams{Metadata: s.metadata.forRecord(account)}
		logUnknownFields(s.logger, TargetCustomer, assignCustomer(params, values))
		if sanitizeCustomer(params) {
			s.logger.Info("No address on shipping hash, removing")
		}

		customer, err = s.billing.CreateCustomer(ctx, params)
		if err != nil {
			return err
		}
		s.linkCreated(ctx, account, provider.StripeCustomer, customer.ID)
		return s.writeBack(ctx, account, customer.ID, nil)
	})
	return customer, err
}
