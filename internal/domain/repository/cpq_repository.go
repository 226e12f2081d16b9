package repository

import (
	"context"

	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
)

// CPQRepository exposes the CPQ relationship traversals the translator needs
type CPQRepository interface {
	// FindInitialOrderForAmendment follows Opportunity.AmendedContract.Quote back to the original order
	FindInitialOrderForAmendment(ctx context.Context, amendment *crm.Record) (*crm.Record, error)
	// FindContractForQuote returns nil when no contract exists yet
	FindContractForQuote(ctx context.Context, quoteID string) (*crm.Record, error)
	// FindAmendmentsForContract returns amendment orders sorted by quote start date.
	// Each record carries the quote start date at crm.QuoteStartDatePath.
	FindAmendmentsForContract(ctx context.Context, contractID string) ([]*crm.Record, error)
	FindOrderLines(ctx context.Context, orderID string) ([]*crm.Record, error)

	// FindConsumptionSchedulesForProduct returns standard schedules joined to a product
	FindConsumptionSchedulesForProduct(ctx context.Context, productID string) ([]*crm.Record, error)
	FindConsumptionRates(ctx context.Context, scheduleID string) ([]*crm.Record, error)
	// FindOrderLineConsumptionSchedules returns CPQ schedules attached to an order line
	FindOrderLineConsumptionSchedules(ctx context.Context, orderLineID string) ([]*crm.Record, error)
	FindOrderLineConsumptionRates(ctx context.Context, scheduleID string) ([]*crm.Record, error)
}
