package provider

import (
	"context"

	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
)

// CRMProvider is the Salesforce data API used by the translator
type CRMProvider interface {
	// Find returns every field of a single record
	Find(ctx context.Context, objectType crm.ObjectType, id string) (*crm.Record, error)
	// Query runs a SOQL query and returns all rows, following pagination
	Query(ctx context.Context, soql string) ([]*crm.Record, error)
	Update(ctx context.Context, objectType crm.ObjectType, id string, fields map[string]interface{}) error
	Upsert(ctx context.Context, objectType crm.ObjectType, externalIDField, externalID string, fields map[string]interface{}) error
}
