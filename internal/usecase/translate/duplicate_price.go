package translate

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
	domainErrors "github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/errors"
	"go.uber.org/zap"
)

// dedupePrices makes every price id in items unique. Stripe rejects a phase
// listing the same price twice, so repeats are billed through a cloned price.
func (s *session) dedupePrices(ctx context.Context, items []*phaseItem) error {
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if !seen[item.Price] {
			seen[item.Price] = true
			continue
		}

		clone, err := s.duplicatePrice(ctx, item)
		if err != nil {
			return err
		}
		s.logger.Info("Duplicate price in phase, using cloned price",
			zap.String("original_stripe_price_id", item.Price),
			zap.String("stripe_id", clone.ID))

		item.Price = clone.ID
		seen[clone.ID] = true
	}
	return nil
}

func (s *session) duplicatePrice(ctx context.Context, item *phaseItem) (*stripe.Price, error) {
	original, err := s.billing.RetrievePrice(ctx, item.Price)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, domainErrors.NewImpossibleStateError(fmt.Sprintf("price %s referenced by a phase does not exist", item.Price))
	}
	if original.Product == nil {
		return nil, domainErrors.NewImpossibleStateError(fmt.Sprintf("price %s has no product", original.ID))
	}

	params := specFromPrice(original).params(original.Product.ID)
	params.Metadata = mergeMetadata(original.Metadata, map[string]string{
		s.metadata.key(metadataAutoArchive):           "true",
		s.metadata.key(metadataDuplicate):             "true",
		s.metadata.key(metadataOriginalStripePriceID): original.ID,
	})
	params.SetIdempotencyKey(s.duplicateKeySource(item) + "-" + original.ID)

	return s.billing.CreatePrice(ctx, params)
}

// duplicateKeySource is the order line behind item, read from metadata for
// items rebuilt from Stripe
func (s *session) duplicateKeySource(item *phaseItem) string {
	if item.OrderLine != nil {
		return item.OrderLine.ID
	}
	return item.Metadata[s.metadata.idKey(crm.ObjectOrderItem)]
}
