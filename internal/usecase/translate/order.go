package translate

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/errors"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/provider"
	"go.uber.org/zap"
)

const decimalQuantityMessage = "Quantity specified as a decimal value. Only integers are supported."

// transaction is the Stripe object an initial order was translated into
type transaction struct {
	Object provider.StripeObject
	ID     string
}

// translateOrder creates the transaction of the contract's initial order and
// applies every amendment to it
func (s *session) translateOrder(ctx context.Context, order *crm.Record) (*entity.TranslationResult, error) {
	structure, err := s.contractStructure(ctx, order)
	if err != nil {
		return nil, err
	}

	txn, err := s.createInitialTransaction(ctx, structure.Initial)
	if err != nil {
		return nil, err
	}

	if err := s.applyAmendments(ctx, structure); err != nil {
		return nil, err
	}

	if txn.ID != "" && order.GetString(s.conn.PrefixedField(entity.FieldStripeID)) == "" {
		if err := s.writeBack(ctx, order, txn.ID, nil); err != nil {
			return nil, err
		}
	}

	return &entity.TranslationResult{
		RecordID:     order.ID,
		RecordType:   string(order.Type),
		StripeObject: string(txn.Object),
		StripeID:     txn.ID,
	}, nil
}

// createInitialTransaction creates a subscription schedule when the order has
// recurring lines and a finalized invoice otherwise. An order that is already
// linked to either is left as is.
func (s *session) createInitialTransaction(ctx context.Context, order *crm.Record) (transaction, error) {
	var txn transaction
	err := s.withSecondary(order, func() error {
		s.logger.Info("Translating order", zap.String("salesforce_id", order.ID))

		if order.GetString(crm.FieldOrderType) != crm.OrderTypeNew {
			return domainErrors.NewImpossibleStateError(fmt.Sprintf("only new orders should be passed for transaction generation %s", order.ID))
		}

		existing, err := s.existingTransaction(ctx, order)
		if err != nil {
			return err
		}
		if existing.ID != "" {
			s.logger.Info("Order already translated",
				zap.String("stripe_id", existing.ID),
				zap.String("stripe_object", string(existing.Object)))
			txn = existing
			return nil
		}

		account, err := s.findRecord(ctx, crm.ObjectAccount, order.GetString(crm.FieldOrderAccount))
		if err != nil {
			return err
		}
		customer, err := s.translateAccount(ctx, account)
		if err != nil {
			return err
		}

		lines, err := s.orderLines(ctx, order)
		if err != nil {
			return err
		}
		invoiceItems, subscriptionItems, err := s.phaseItemsFromOrderLines(ctx, lines)
		if err != nil {
			return err
		}

		if len(subscriptionItems) > 0 {
			s.logger.Info("Recurring items found, creating subscription schedule")
			txn, err = s.createSubscriptionSchedule(ctx, order, customer, invoiceItems, subscriptionItems)
		} else {
			s.logger.Info("No recurring items found, creating a one-time invoice")
			txn, err = s.createInvoice(ctx, order, customer, invoiceItems)
		}
		return err
	})
	return txn, err
}

func (s *session) existingTransaction(ctx context.Context, order *crm.Record) (transaction, error) {
	id, err := s.linkedID(ctx, order, provider.StripeSubscriptionSchedule)
	if err != nil {
		return transaction{}, err
	}
	if id != "" {
		schedule, err := s.billing.RetrieveSubscriptionSchedule(ctx, id)
		if err != nil {
			return transaction{}, err
		}
		if schedule != nil {
			err := s.healMetadata(ctx, provider.StripeSubscriptionSchedule, schedule.ID, schedule.Metadata, order)
			return transaction{Object: provider.StripeSubscriptionSchedule, ID: schedule.ID}, err
		}
	}

	id, err = s.linkedID(ctx, order, provider.StripeInvoice)
	if err != nil || id == "" {
		return transaction{}, err
	}
	invoice, err := s.billing.RetrieveInvoice(ctx, id)
	if err != nil || invoice == nil {
		return transaction{}, err
	}
	err = s.healMetadata(ctx, provider.StripeInvoice, invoice.ID, invoice.Metadata, order)
	return transaction{Object: provider.StripeInvoice, ID: invoice.ID}, err
}

func (s *session) createSubscriptionSchedule(ctx context.Context, order *crm.Record, customer *stripe.Customer, invoiceItems, subscriptionItems []*phaseItem) (transaction, error) {
	values, err := s.mapper.Map(ctx, order, TargetSubscriptionSchedule)
	if err != nil {
		return transaction{}, err
	}
	startDate, err := salesforceDateToUnix(values[fieldStartDate])
	if err != nil {
		return transaction{}, err
	}
	term, err := integerTerm(values[fieldIterations])
	if err != nil {
		return transaction{}, err
	}
	iterations, err := s.phaseIterations(ctx, term, subscriptionItems[0].Price)
	if err != nil {
		return transaction{}, err
	}

	if err := s.dedupePrices(ctx, subscriptionItems); err != nil {
		return transaction{}, err
	}
	if err := s.dedupePrices(ctx, invoiceItems); err != nil {
		return transaction{}, err
	}

	initial := &phase{
		Iterations:   iterations,
		Items:        subscriptionItems,
		InvoiceItems: invoiceItems,
		Metadata:     s.metadata.forRecord(order),
	}
	params := &stripe.SubscriptionScheduleParams{
		Customer:    stripe.String(customer.ID),
		StartDate:   stripe.Int64(startDate),
		EndBehavior: stripe.String(string(stripe.SubscriptionScheduleEndBehaviorCancel)),
		Phases:      []*stripe.SubscriptionSchedulePhaseParams{initial.params()},
		Metadata:    mergeMetadata(values.Metadata(), s.metadata.forRecord(order)),
	}
	logUnknownFields(s.logger, TargetSubscriptionSchedule, scheduleFields(values))
	params.SetIdempotencyKey(order.ID)

	schedule, err := s.billing.CreateSubscriptionSchedule(ctx, params)
	if err != nil {
		return transaction{}, err
	}
	s.logger.Info("Stripe subscription schedule created", zap.String("stripe_id", schedule.ID))
	s.linkCreated(ctx, order, provider.StripeSubscriptionSchedule, schedule.ID)

	if err := s.writeBack(ctx, order, schedule.ID, nil); err != nil {
		return transaction{}, err
	}
	return transaction{Object: provider.StripeSubscriptionSchedule, ID: schedule.ID}, nil
}

func (s *session) createInvoice(ctx context.Context, order *crm.Record, customer *stripe.Customer, invoiceItems []*phaseItem) (transaction, error) {
	for _, item := range invoiceItems {
		params := &stripe.InvoiceItemParams{
			Customer: stripe.String(customer.ID),
			Price:    stripe.String(item.Price),
			Quantity: stripe.Int64(item.Quantity),
		}
		if item.OrderLine != nil {
			params.SetIdempotencyKey(item.OrderLine.ID + "-invoice-item")
		}
		if _, err := s.billing.CreateInvoiceItem(ctx, params); err != nil {
			return transaction{}, err
		}
	}

	values, err := s.mapper.Map(ctx, order, TargetInvoice)
	if err != nil {
		return transaction{}, err
	}
	params := &stripe.InvoiceParams{
		Customer:                    stripe.String(customer.ID),
		PendingInvoiceItemsBehavior: stripe.String("include"),
		Metadata:                    s.metadata.forRecord(order),
	}
	logUnknownFields(s.logger, TargetInvoice, assignInvoice(params, values))

	invoice, err := s.billing.CreateInvoice(ctx, params)
	if err != nil {
		return transaction{}, err
	}
	s.linkCreated(ctx, order, provider.StripeInvoice, invoice.ID)

	finalized, err := s.billing.FinalizeInvoice(ctx, invoice.ID)
	if err != nil {
		return transaction{}, err
	}
	s.logger.Info("Stripe invoice created", zap.String("stripe_id", finalized.ID))

	extra := map[string]interface{}{
		s.conn.PrefixedField(entity.FieldInvoiceLink): finalized.HostedInvoiceURL,
	}
	if err := s.writeBack(ctx, order, finalized.ID, extra); err != nil {
		return transaction{}, err
	}
	return transaction{Object: provider.StripeInvoice, ID: finalized.ID}, nil
}

// applyAmendments appends one phase per amendment to the initial order's
// schedule. Amendments whose phase already exists are skipped.
func (s *session) applyAmendments(ctx context.Context, structure *entity.ContractStructure) error {
	if len(structure.Amendments) == 0 {
		return nil
	}

	// the schedule id may have been written back earlier in this call
	initial, err := s.crm.Find(ctx, crm.ObjectOrder, structure.Initial.ID)
	if err != nil {
		return err
	}
	scheduleID, err := s.linkedID(ctx, initial, provider.StripeSubscriptionSchedule)
	if err != nil {
		return err
	}
	var schedule *stripe.SubscriptionSchedule
	if scheduleID != "" {
		if schedule, err = s.billing.RetrieveSubscriptionSchedule(ctx, scheduleID); err != nil {
			return err
		}
	}
	if schedule == nil {
		return domainErrors.NewImpossibleStateError("initial order should always be present")
	}
	if schedule.Status == stripe.SubscriptionScheduleStatusCanceled {
		s.logger.Warn("Subscription schedule is canceled, it cannot be modified",
			zap.String("metric", "edge_case"),
			zap.String("stripe_id", schedule.ID))
		return nil
	}

	phases := phasesFromStripe(schedule)
	for index, amendment := range structure.Amendments {
		err := s.withSecondary(amendment, func() error {
			updated, err := s.applyAmendment(ctx, schedule, phases, structure.Amendments, index)
			if err != nil || updated == nil {
				return err
			}
			schedule = updated
			phases = phasesFromStripe(schedule)
			return s.writeBack(ctx, amendment, schedule.ID, nil)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// applyAmendment returns the updated schedule, or nil when the amendment was already applied
func (s *session) applyAmendment(ctx context.Context, schedule *stripe.SubscriptionSchedule, phases []*phase, amendments []*crm.Record, index int) (*stripe.SubscriptionSchedule, error) {
	amendment := amendments[index]
	logger := s.logger.With(zap.String("salesforce_id", amendment.ID), zap.Int("amendment_index", index))

	// phases holds the initial phase plus one phase per applied amendment
	if len(phases)-1 > index {
		logger.Info("Phase already exists, skipping")
		return nil, nil
	}

	previous := phases[len(phases)-1]

	lines, err := s.orderLines(ctx, amendment)
	if err != nil {
		return nil, err
	}
	invoiceItems, subscriptionItems, err := s.phaseItemsFromOrderLines(ctx, lines)
	if err != nil {
		return nil, err
	}

	aggregate, err := s.mergePhaseItems(previous.Items, subscriptionItems)
	if err != nil {
		return nil, err
	}
	if len(aggregate) == 0 {
		return nil, domainErrors.NewUnhandledEdgeCaseError("order amendments representing all one-time invoices")
	}

	active, terminatedItems := activeItems(aggregate)
	terminated := len(active) == 0
	if terminated && len(invoiceItems) > 0 {
		return nil, domainErrors.NewUnhandledEdgeCaseError("one-time invoice items but terminated order")
	}
	if terminated && index != len(amendments)-1 {
		return nil, domainErrors.NewUnhandledEdgeCaseError("order terminated, but there's more amendmends")
	}

	values, err := s.mapper.Map(ctx, amendment, TargetSubscriptionSchedule)
	if err != nil {
		return nil, err
	}
	startDate, err := salesforceDateToUnix(values[fieldStartDate])
	if err != nil {
		return nil, err
	}

	next := &phase{
		StartDate:    startDate,
		Items:        active,
		InvoiceItems: invoiceItems,
		Metadata:     s.metadata.forRecord(amendment),
	}
	if !terminated {
		term, err := integerTerm(values[fieldIterations])
		if err != nil {
			return nil, err
		}
		if next.Iterations, err = s.phaseIterations(ctx, term, active[0].Price); err != nil {
			return nil, err
		}
		if err := s.dedupePrices(ctx, next.Items); err != nil {
			return nil, err
		}
		if err := s.dedupePrices(ctx, next.InvoiceItems); err != nil {
			return nil, err
		}
	}

	// phases must meet without gaps or overlap
	previous.EndDate = next.StartDate
	previous.Iterations = 0
	s.markTerminated(previous, terminatedItems, values.String(fieldStartDate))

	if terminated && previous.StartDate == previous.EndDate && len(amendments) == 1 {
		logger.Info("Order terminated on the day it started, cancelling subscription schedule")
		return s.billing.CancelSubscriptionSchedule(ctx, schedule.ID, &stripe.SubscriptionScheduleCancelParams{
			InvoiceNow: stripe.Bool(false),
			Prorate:    stripe.Bool(false),
		})
	}

	if !terminated {
		phases = append(phases, next)
	}
	logger.Info("Adding phase", zap.Int("phases", len(phases)), zap.Bool("terminated", terminated))

	return s.billing.UpdateSubscriptionSchedule(ctx, schedule.ID, &stripe.SubscriptionScheduleParams{
		ProrationBehavior: stripe.String(prorationBehaviorNone),
		Phases:            phaseParams(phases),
	})
}

// phaseIterations is the number of billing cycles of price in a term of months
func (s *session) phaseIterations(ctx context.Context, term int64, priceID string) (int64, error) {
	price, err := s.billing.RetrievePrice(ctx, priceID)
	if err != nil {
		return 0, err
	}
	if price == nil {
		return 0, domainErrors.NewImpossibleStateError(fmt.Sprintf("price %s referenced by a phase does not exist", priceID))
	}
	frequency, err := billingFrequencyInMonths(price)
	if err != nil {
		return 0, err
	}
	return termMultiplier(s.primary, term, frequency)
}

// orderLines loads the lines of an order, dropping lines flagged to be skipped
func (s *session) orderLines(ctx context.Context, order *crm.Record) ([]*crm.Record, error) {
	lines, err := s.cpq.FindOrderLines(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	skipField := s.conn.PrefixedField(entity.FieldOrderLineSkip)
	kept := make([]*crm.Record, 0, len(lines))
	for _, line := range lines {
		if line.GetBool(crm.FieldIsDeleted) || !line.GetBool(crm.FieldOrderItemActivated) {
			s.logger.Warn("Order line is deleted or not activated",
				zap.String("metric", "edge_case"),
				zap.String("salesforce_id", line.ID))
		}
		if line.GetBool(skipField) {
			s.logger.Info("Order line marked as skipped", zap.String("salesforce_id", line.ID))
			continue
		}
		kept = append(kept, line)
	}
	return kept, nil
}

// phaseItemsFromOrderLines prices each line and splits the items into
// one-time invoice items and recurring subscription items
func (s *session) phaseItemsFromOrderLines(ctx context.Context, lines []*crm.Record) (invoiceItems, subscriptionItems []*phaseItem, err error) {
	for _, line := range lines {
		err = s.withSecondary(line, func() error {
			resolution, err := s.createPriceForOrderLine(ctx, line)
			if err != nil || resolution.Skipped {
				return err
			}

			values, err := s.mapper.Map(ctx, line, TargetSubscriptionItem)
			if err != nil {
				return err
			}
			quantity, _, err := values.Decimal(fieldQuantity)
			if err != nil || !quantity.IsInteger() {
				return domainErrors.NewUserError(line, decimalQuantityMessage)
			}

			price := resolution.Price
			item := &phaseItem{
				Price:               price.ID,
				Quantity:            quantity.IntPart(),
				Metered:             price.Recurring != nil && price.Recurring.UsageType == stripe.PriceRecurringUsageTypeMetered,
				Metadata:            mergeMetadata(values.Metadata(), s.metadata.forRecord(line)),
				OrderLine:           line,
				OriginalOrderLineID: line.GetString(crm.FieldOrderItemRevised),
			}

			if recurringItem(line) {
				subscriptionItems = append(subscriptionItems, item)
			} else {
				item.Metadata = nil
				invoiceItems = append(invoiceItems, item)
			}
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
	}
	return invoiceItems, subscriptionItems, nil
}

// scheduleFields returns mapped schedule fields other than the ones the translator reads
func scheduleFields(values Values) []string {
	var unknown []string
	for _, field := range values.fields() {
		if field != fieldStartDate && field != fieldIterations {
			unknown = append(unknown, field)
		}
	}
	return unknown
}
