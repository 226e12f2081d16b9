package stripe

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	domainErrors "github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/errors"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/provider"
	"go.uber.org/zap"
)

// StripeProvider implements the BillingProvider interface over the Stripe API
type StripeProvider struct {
	api    *client.API
	logger *zap.Logger
}

// NewStripeProvider creates a provider bound to one Stripe account
func NewStripeProvider(secretKey string, logger *zap.Logger) *StripeProvider {
	api := &client.API{}
	api.Init(secretKey, nil)
	return NewStripeProviderWithClient(api, logger)
}

// NewStripeProviderWithClient wraps an initialized client, e.g. one pointed at stripe-mock
func NewStripeProviderWithClient(api *client.API, logger *zap.Logger) *StripeProvider {
	return &StripeProvider{
		api:    api,
		logger: logger.Named("stripe"),
	}
}

func (s *StripeProvider) RetrieveCustomer(ctx context.Context, id string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	customer, err := s.api.Customers.Get(id, params)
	return retrieved(customer, err, s, "retrieve customer")
}

func (s *StripeProvider) CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	params.Context = ctx
	customer, err := s.api.Customers.New(params)
	if err != nil {
		return nil, s.wrap("create customer", err)
	}
	s.logger.Info("Customer created", zap.String("stripe_id", customer.ID))
	return customer, nil
}

func (s *StripeProvider) RetrieveProduct(ctx context.Context, id string) (*stripe.Product, error) {
	params := &stripe.ProductParams{}
	params.Context = ctx
	product, err := s.api.Products.Get(id, params)
	return retrieved(product, err, s, "retrieve product")
}

func (s *StripeProvider) CreateProduct(ctx context.Context, params *stripe.ProductParams) (*stripe.Product, error) {
	params.Context = ctx
	product, err := s.api.Products.New(params)
	if err != nil {
		return nil, s.wrap("create product", err)
	}
	s.logger.Info("Product created", zap.String("stripe_id", product.ID))
	return product, nil
}

func (s *StripeProvider) RetrievePrice(ctx context.Context, id string) (*stripe.Price, error) {
	params := &stripe.PriceParams{}
	params.Context = ctx
	params.AddExpand("tiers")
	price, err := s.api.Prices.Get(id, params)
	return retrieved(price, err, s, "retrieve price")
}

func (s *StripeProvider) CreatePrice(ctx context.Context, params *stripe.PriceParams) (*stripe.Price, error) {
	params.Context = ctx
	price, err := s.api.Prices.New(params)
	if err != nil {
		return nil, s.wrap("create price", err)
	}
	s.logger.Info("Price created", zap.String("stripe_id", price.ID))
	return price, nil
}

func (s *StripeProvider) RetrieveSubscriptionSchedule(ctx context.Context, id string) (*stripe.SubscriptionSchedule, error) {
	params := &stripe.SubscriptionScheduleParams{}
	params.Context = ctx
	params.AddExpand("phases.items.price")
	schedule, err := s.api.SubscriptionSchedules.Get(id, params)
	return retrieved(schedule, err, s, "retrieve subscription schedule")
}

func (s *StripeProvider) CreateSubscriptionSchedule(ctx context.Context, params *stripe.SubscriptionScheduleParams) (*stripe.SubscriptionSchedule, error) {
	params.Context = ctx
	params.AddExpand("phases.items.price")
	schedule, err := s.api.SubscriptionSchedules.New(params)
	if err != nil {
		return nil, s.wrap("create subscription schedule", err)
	}
	s.logger.Info("Subscription schedule created", zap.String("stripe_id", schedule.ID))
	return schedule, nil
}

func (s *StripeProvider) UpdateSubscriptionSchedule(ctx context.Context, id string, params *stripe.SubscriptionScheduleParams) (*stripe.SubscriptionSchedule, error) {
	params.Context = ctx
	params.AddExpand("phases.items.price")
	schedule, err := s.api.SubscriptionSchedules.Update(id, params)
	if err != nil {
		return nil, s.wrap("update subscription schedule", err)
	}
	s.logger.Info("Subscription schedule updated",
		zap.String("stripe_id", schedule.ID),
		zap.Int("phases", len(schedule.Phases)))
	return schedule, nil
}

func (s *StripeProvider) CancelSubscriptionSchedule(ctx context.Context, id string, params *stripe.SubscriptionScheduleCancelParams) (*stripe.SubscriptionSchedule, error) {
	params.Context = ctx
	schedule, err := s.api.SubscriptionSchedules.Cancel(id, params)
	if err != nil {
		return nil, s.wrap("cancel subscription schedule", err)
	}
	s.logger.Info("Subscription schedule canceled", zap.String("stripe_id", schedule.ID))
	return schedule, nil
}

func (s *StripeProvider) RetrieveInvoice(ctx context.Context, id string) (*stripe.Invoice, error) {
	params := &stripe.InvoiceParams{}
	params.Context = ctx
	invoice, err := s.api.Invoices.Get(id, params)
	return retrieved(invoice, err, s, "retrieve invoice")
}

func (s *StripeProvider) CreateInvoice(ctx context.Context, params *stripe.InvoiceParams) (*stripe.Invoice, error) {
	params.Context = ctx
	invoice, err := s.api.Invoices.New(params)
	if err != nil {
		return nil, s.wrap("create invoice", err)
	}
	s.logger.Info("Invoice created", zap.String("stripe_id", invoice.ID))
	return invoice, nil
}

func (s *StripeProvider) FinalizeInvoice(ctx context.Context, id string) (*stripe.Invoice, error) {
	params := &stripe.InvoiceFinalizeInvoiceParams{}
	params.Context = ctx
	invoice, err := s.api.Invoices.FinalizeInvoice(id, params)
	if err != nil {
		return nil, s.wrap("finalize invoice", err)
	}
	return invoice, nil
}

func (s *StripeProvider) CreateInvoiceItem(ctx context.Context, params *stripe.InvoiceItemParams) (*stripe.InvoiceItem, error) {
	params.Context = ctx
	item, err := s.api.InvoiceItems.New(params)
	if err != nil {
		return nil, s.wrap("create invoice item", err)
	}
	return item, nil
}

func (s *StripeProvider) UpdateMetadata(ctx context.Context, object provider.StripeObject, id string, metadata map[string]string) error {
	var err error
	switch object {
	case provider.StripeCustomer:
		params := &stripe.CustomerParams{Metadata: metadata}
		params.Context = ctx
		_, err = s.api.Customers.Update(id, params)
	case provider.StripeProduct:
		params := &stripe.ProductParams{Metadata: metadata}
		params.Context = ctx
		_, err = s.api.Products.Update(id, params)
	case provider.StripePrice:
		params := &stripe.PriceParams{Metadata: metadata}
		params.Context = ctx
		_, err = s.api.Prices.Update(id, params)
	case provider.StripeSubscriptionSchedule:
		params := &stripe.SubscriptionScheduleParams{Metadata: metadata}
		params.Context = ctx
		_, err = s.api.SubscriptionSchedules.Update(id, params)
	case provider.StripeInvoice:
		params := &stripe.InvoiceParams{Metadata: metadata}
		params.Context = ctx
		_, err = s.api.Invoices.Update(id, params)
	default:
		return fmt.Errorf("unsupported stripe object %s", object)
	}
	return s.wrap(fmt.Sprintf("update %s metadata", object), err)
}

// wrap converts Stripe API failures into billing API translation errors
func (s *StripeProvider) wrap(action string, err error) error {
	if err == nil {
		return nil
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		s.logger.Warn("Stripe API error",
			zap.String("action", action),
			zap.String("code", string(stripeErr.Code)),
			zap.Int("status", stripeErr.HTTPStatusCode),
			zap.String("request_id", stripeErr.RequestID),
			zap.String("message", stripeErr.Msg))
		return domainErrors.NewBillingAPIError(stripeErr.Msg, stripeErr.RequestID, err)
	}
	return domainErrors.NewBillingAPIError(fmt.Sprintf("failed to %s", action), "", err)
}

func isResourceMissing(err error) bool {
	var stripeErr *stripe.Error
	return errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing
}

// retrieved maps resource_missing to (nil, nil)
func retrieved[T any](obj *T, err error, s *StripeProvider, action string) (*T, error) {
	if isResourceMissing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, s.wrap(action, err)
	}
	return obj, nil
}
