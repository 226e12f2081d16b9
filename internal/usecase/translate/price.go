package translate

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
	domainErrors "github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/errors"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/provider"
	"go.uber.org/zap"
)

const subscriptionTermDecimalMessage = "Subscription term is specified as a decimal value"

// PriceResolution is the outcome of resolving a catalog line into a price:
// either a price to bill with or a skip for lines that cannot be priced yet.
type PriceResolution struct {
	Price   *stripe.Price
	Skipped bool
}

func resolvedPrice(price *stripe.Price) PriceResolution {
	return PriceResolution{Price: price}
}

func skippedPrice() PriceResolution {
	return PriceResolution{Skipped: true}
}

// createPriceFromPricebook returns the price linked to a pricebook entry,
// creating it and its product when missing
func (s *session) createPriceFromPricebook(ctx context.Context, entry *crm.Record) (PriceResolution, error) {
	var resolution PriceResolution
	err := s.withSecondary(entry, func() error {
		price, err := s.retrievePrice(ctx, entry)
		if err != nil || price != nil {
			resolution = resolvedPrice(price)
			return err
		}

		product, err := s.findRecord(ctx, crm.ObjectProduct, entry.GetString(crm.FieldPricebookEntryProduct))
		if err != nil {
			return err
		}
		stripeProduct, err := s.translateProduct(ctx, product)
		if err != nil {
			return err
		}

		spec, err := s.generatePriceSpec(ctx, entry, product)
		if err != nil {
			return err
		}
		resolution, err = s.createPriceFromSpec(ctx, entry, spec, stripeProduct.ID)
		return err
	})
	return resolution, err
}

// createPriceForOrderLine reuses the pricebook entry's price when the order line
// does not change what is billed, and creates a line-scoped price otherwise
func (s *session) createPriceForOrderLine(ctx context.Context, line *crm.Record) (PriceResolution, error) {
	var resolution PriceResolution
	err := s.withSecondary(line, func() error {
		s.logger.Info("Translating price from an order line", zap.String("salesforce_id", line.ID))

		product, err := s.findRecord(ctx, crm.ObjectProduct, line.GetString(crm.FieldOrderItemProduct))
		if err != nil {
			return err
		}
		stripeProduct, err := s.translateProduct(ctx, product)
		if err != nil {
			return err
		}
		entry, err := s.findRecord(ctx, crm.ObjectPricebookEntry, line.GetString(crm.FieldOrderItemPricebook))
		if err != nil {
			return err
		}

		entrySpec, err := s.withSecondarySpec(ctx, entry, product)
		if err != nil {
			return err
		}
		lineSpec, err := s.generatePriceSpec(ctx, line, product)
		if err != nil {
			return err
		}

		target, spec := line, lineSpec
		if billingEqual(entrySpec, lineSpec) {
			target, spec = entry, entrySpec
			s.logger.Info("Pricebook and order line prices are identical, creating or reusing pricebook price",
				zap.String("pricebook_entry_id", entry.ID),
				zap.String("product_id", product.ID))
		} else {
			s.logger.Info("Pricebook and order line prices differ, creating or reusing order line price",
				zap.String("pricebook_entry_id", entry.ID),
				zap.String("product_id", product.ID))
		}

		existing, err := s.retrievePrice(ctx, target)
		if err != nil {
			return err
		}
		if existing != nil {
			if !billingEqual(specFromPrice(existing), spec) {
				return domainErrors.NewUnhandledEdgeCaseError("expected generated prices to be equal, but they differed")
			}
			s.logger.Info("Using existing stripe price", zap.String("stripe_id", existing.ID))
			resolution = resolvedPrice(existing)
			return nil
		}

		s.logger.Info("Existing price not found, creating new")
		resolution, err = s.createPriceFromSpec(ctx, target, spec, stripeProduct.ID)
		return err
	})
	return resolution, err
}

func (s *session) withSecondarySpec(ctx context.Context, record, product *crm.Record) (*priceSpec, error) {
	var spec *priceSpec
	err := s.withSecondary(record, func() error {
		var err error
		spec, err = s.generatePriceSpec(ctx, record, product)
		return err
	})
	return spec, err
}

// retrievePrice returns the price linked to record, healing its metadata
func (s *session) retrievePrice(ctx context.Context, record *crm.Record) (*stripe.Price, error) {
	id, err := s.linkedID(ctx, record, provider.StripePrice)
	if err != nil || id == "" {
		return nil, err
	}
	price, err := s.billing.RetrievePrice(ctx, id)
	if err != nil || price == nil {
		return nil, err
	}
	if err := s.healMetadata(ctx, provider.StripePrice, price.ID, price.Metadata, record); err != nil {
		return nil, err
	}
	return price, nil
}

// createPriceFromSpec creates the price for record and links it back.
// Negative amounts are skipped until discounts are supported.
func (s *session) createPriceFromSpec(ctx context.Context, record *crm.Record, spec *priceSpec, productID string) (PriceResolution, error) {
	if spec.UnitAmount != nil && spec.UnitAmount.IsNegative() {
		s.logger.Error("Negative line item encountered, skipping",
			zap.String("salesforce_id", record.ID),
			zap.String("unit_amount", spec.UnitAmount.String()))
		return skippedPrice(), nil
	}

	s.logger.Info("Creating price", zap.String("salesforce_id", record.ID), zap.String("salesforce_type", string(record.Type)))

	params := spec.params(productID)
	params.Metadata = mergeMetadata(spec.Metadata, s.metadata.forRecord(record))
	params.SetIdempotencyKey(record.ID)

	price, err := s.billing.CreatePrice(ctx, params)
	if err != nil {
		return PriceResolution{}, err
	}
	s.linkCreated(ctx, record, provider.StripePrice, price.ID)

	if err := s.writeBack(ctx, record, price.ID, nil); err != nil {
		return PriceResolution{}, err
	}
	return resolvedPrice(price), nil
}

// generatePriceSpec builds the price a pricebook entry or order line would create.
// product supplies the recurring definition of pricebook entries.
func (s *session) generatePriceSpec(ctx context.Context, record, product *crm.Record) (*priceSpec, error) {
	var (
		tiers  *tierSet
		target Target
		err    error
	)
	switch record.Type {
	case crm.ObjectPricebookEntry:
		target = TargetPrice
		tiers, err = s.pricebookTiers(ctx, record)
	case crm.ObjectOrderItem:
		target = TargetPriceOrderItem
		tiers, err = s.orderLineTiers(ctx, record)
	default:
		return nil, domainErrors.NewImpossibleInternalError("price can only be created from an order line or pricebook entry")
	}
	if err != nil {
		return nil, err
	}

	values, err := s.mapper.Map(ctx, record, target)
	if err != nil {
		return nil, err
	}

	spec := &priceSpec{
		Currency: s.conn.Currency,
		Nickname: values.String("nickname"),
		Metadata: values.Metadata(),
	}
	if tiers != nil {
		spec.Metadata = mergeMetadata(tiers.Metadata, spec.Metadata)
	}
	if record.Type == crm.ObjectOrderItem {
		spec.Metadata[s.metadata.key(metadataAutoArchive)] = "true"
	}

	amount, _, err := values.Decimal(fieldUnitAmountDecimal)
	if err != nil {
		return nil, err
	}
	amount = toMinorUnits(amount, spec.Currency)

	if tiers != nil {
		tiers.apply(spec)
		sortTiers(spec.Tiers)
	}

	recurringSource := record
	if record.Type == crm.ObjectPricebookEntry {
		recurringSource = product
	}
	if recurringItem(recurringSource) {
		if spec.Recurring, err = s.recurring(values); err != nil {
			return nil, err
		}
	}

	licensedLine := record.Type == crm.ObjectOrderItem && spec.Recurring != nil && !spec.tiered() && !spec.metered()
	if licensedLine && !s.usesCustomOrderLinePrice() {
		s.logger.Info("Custom price not used, adjusting unit_amount_decimal", zap.String("salesforce_id", record.ID))

		term, err := s.subscriptionTerm(ctx, record)
		if err != nil {
			return nil, err
		}
		multiplier, err := termMultiplier(s.primary, term, spec.Recurring.IntervalCount)
		if err != nil {
			return nil, err
		}
		amount = amount.Div(decimal.NewFromInt(multiplier))
	}

	if !spec.tiered() {
		amount = roundPrecision(amount)
		spec.UnitAmount = &amount
	}
	return spec, nil
}

func (s *session) recurring(values Values) (*priceRecurring, error) {
	if s.conn.TermUnit() != string(stripe.PriceRecurringIntervalMonth) {
		return nil, domainErrors.NewUnhandledEdgeCaseError("only monthly terms are currently supported")
	}

	billingType := values.String(fieldUsageType)
	if billingType == "" {
		s.logger.Warn("Usage type not defined, defaulting to advance (licensed)")
		billingType = billingTypeAdvance
	}
	usageType, err := usageTypeFromBillingType(billingType)
	if err != nil {
		return nil, err
	}

	intervalCount, err := s.intervalCount(values)
	if err != nil {
		return nil, err
	}

	return &priceRecurring{
		Interval:      string(stripe.PriceRecurringIntervalMonth),
		IntervalCount: intervalCount,
		UsageType:     usageType,
	}, nil
}

// intervalCount accepts a CPQ billing frequency picklist value or an integer month count
func (s *session) intervalCount(values Values) (int64, error) {
	switch raw := values[fieldIntervalCount].(type) {
	case nil:
		s.logger.Warn("Interval count not defined via mapping, using monthly fallback")
		return billingFrequencyMonths["Monthly"], nil
	case string:
		if count, err := decimal.NewFromString(raw); err == nil && count.IsInteger() {
			return count.IntPart(), nil
		}
		return intervalCountFromBillingFrequency(raw)
	default:
		count, err := toDecimal(raw)
		if err != nil || !count.IsInteger() {
			return 0, domainErrors.NewRawUserError(fmt.Sprintf("Unexpected billing frequency %v. Must use default CPQ billing frequencies.", raw))
		}
		return count.IntPart(), nil
	}
}

// usesCustomOrderLinePrice reports whether the user replaced the order line
// amount source, in which case the amount is used as is
func (s *session) usesCustomOrderLinePrice() bool {
	if _, ok := s.conn.FieldDefaults[string(TargetPriceOrderItem)][fieldUnitAmountDecimal]; ok {
		return true
	}
	custom := s.conn.FieldMappings[string(TargetPriceOrderItem)][fieldUnitAmountDecimal]
	return custom != "" && custom != requiredMappings[TargetPriceOrderItem][fieldUnitAmountDecimal]
}

// subscriptionTerm reads the subscription term of the order owning line
func (s *session) subscriptionTerm(ctx context.Context, line *crm.Record) (int64, error) {
	order, err := s.findRecord(ctx, crm.ObjectOrder, line.GetString(crm.FieldOrderItemOrder))
	if err != nil {
		return 0, err
	}

	path := s.mapper.RequiredPath(TargetSubscriptionSchedule, fieldIterations)
	raw, err := s.mapper.Resolve(ctx, order, path)
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return 0, domainErrors.NewMissingRequiredFieldsError(order, []string{path})
	}
	return integerTerm(raw)
}

func integerTerm(raw interface{}) (int64, error) {
	term, err := toDecimal(raw)
	if err != nil || !term.IsInteger() {
		return 0, domainErrors.NewRawUserError(subscriptionTermDecimalMessage)
	}
	return term.IntPart(), nil
}

// recurringItem reports whether an order line or product is billed as a subscription
func recurringItem(record *crm.Record) bool {
	return record.GetString(crm.FieldSubscriptionPricing) != ""
}
