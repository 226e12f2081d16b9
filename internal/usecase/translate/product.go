package translate

import (
	"context"

	"github.com/stripe/stripe-go/v79"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/provider"
	"go.uber.org/zap"
)

// translateProduct finds or creates the product linked to a Product2
func (s *session) translateProduct(ctx context.Context, product *crm.Record) (*stripe.Product, error) {
	var stripeProduct *stripe.Product
	err := s.withSecondary(product, func() error {
		s.logger.Info("Translating product", zap.String("salesforce_id", product.ID))

		id, err := s.linkedID(ctx, product, provider.StripeProduct)
		if err != nil {
			return err
		}
		if id != "" {
			existing, err := s.billing.RetrieveProduct(ctx, id)
			if err != nil {
				return err
			}
			if existing != nil {
				stripeProduct = existing
				return s.healMetadata(ctx, provider.StripeProduct, existing.ID, existing.Metadata, product)
			}
		}

		values, err := s.mapper.Map(ctx, product, TargetProduct)
		if err != nil {
			return err
		}

		params := &stripe.ProductParams{Metadata: s.metadata.forRecord(product)}
		logUnknownFields(s.logger, TargetProduct, assignProduct(params, values))

		stripeProduct, err = s.billing.CreateProduct(ctx, params)
		if err != nil {
			return err
		}
		s.linkCreated(ctx, product, provider.StripeProduct, stripeProduct.ID)
		return s.writeBack(ctx, product, stripeProduct.ID, nil)
	})
	return stripeProduct, err
}
