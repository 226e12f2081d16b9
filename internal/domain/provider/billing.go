package provider

import (
	"context"

	"github.com/stripe/stripe-go/v79"
)

// StripeObject names a Stripe object kind the translator creates
type StripeObject string

const (
	StripeCustomer             StripeObject = "customer"
	StripeProduct              StripeObject = "product"
	StripePrice                StripeObject = "price"
	StripeSubscriptionSchedule StripeObject = "subscription_schedule"
	StripeInvoice              StripeObject = "invoice"
)

// BillingProvider is the subset of the Stripe API the translator uses.
// Retrieve methods return (nil, nil) when the object does not exist.
type BillingProvider interface {
	RetrieveCustomer(ctx context.Context, id string) (*stripe.Customer, error)
	CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error)

	RetrieveProduct(ctx context.Context, id string) (*stripe.Product, error)
	CreateProduct(ctx context.Context, params *stripe.ProductParams) (*stripe.Product, error)

	// RetrievePrice expands tiers
	RetrievePrice(ctx context.Context, id string) (*stripe.Price, error)
	CreatePrice(ctx context.Context, params *stripe.PriceParams) (*stripe.Price, error)

	// RetrieveSubscriptionSchedule expands the prices of phase items
	RetrieveSubscriptionSchedule(ctx context.Context, id string) (*stripe.SubscriptionSchedule, error)
	CreateSubscriptionSchedule(ctx context.Context, params *stripe.SubscriptionScheduleParams) (*stripe.SubscriptionSchedule, error)
	UpdateSubscriptionSchedule(ctx context.Context, id string, params *stripe.SubscriptionScheduleParams) (*stripe.SubscriptionSchedule, error)
	CancelSubscriptionSchedule(ctx context.Context, id string, params *stripe.SubscriptionScheduleCancelParams) (*stripe.SubscriptionSchedule, error)

	RetrieveInvoice(ctx context.Context, id string) (*stripe.Invoice, error)
	CreateInvoice(ctx context.Context, params *stripe.InvoiceParams) (*stripe.Invoice, error)
	FinalizeInvoice(ctx context.Context, id string) (*stripe.Invoice, error)
	CreateInvoiceItem(ctx context.Context, params *stripe.InvoiceItemParams) (*stripe.InvoiceItem, error)

	// UpdateMetadata merges metadata into an existing object
	UpdateMetadata(ctx context.Context, object StripeObject, id string, metadata map[string]string) error
}
