package provider

import (
	"net/http"

	"github.com/wekeepgrowing/stripe-cpq-connector/internal/config"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/entity"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/provider"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/infrastructure/provider/salesforce"
	stripeProvider "github.com/wekeepgrowing/stripe-cpq-connector/internal/infrastructure/provider/stripe"
	"go.uber.org/zap"
)

// Factory creates the Stripe and Salesforce clients of a connection
type Factory struct {
	config     *config.SalesforceConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewFactory creates a new provider factory
func NewFactory(cfg *config.SalesforceConfig, logger *zap.Logger) *Factory {
	return &Factory{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// BillingProvider returns a Stripe provider using the connection's secret key
func (f *Factory) BillingProvider(conn *entity.Connection) provider.BillingProvider {
	return stripeProvider.NewStripeProvider(
		conn.StripeSecretKey,
		f.logger.With(zap.String("connection_id", conn.ID)),
	)
}

// CRMProvider returns a retrying Salesforce REST client for the connection's org
func (f *Factory) CRMProvider(conn *entity.Connection) provider.CRMProvider {
	logger := f.logger.With(zap.String("connection_id", conn.ID))
	client := salesforce.NewClient(
		conn.SalesforceInstanceURL,
		conn.SalesforceAccessToken,
		f.config.APIVersion,
		f.httpClient,
		logger,
	)
	return salesforce.NewRetryingClient(client, f.config.RetryAttempts, logger)
}
