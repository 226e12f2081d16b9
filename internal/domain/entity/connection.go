package entity

import (
	"fmt"
	"strings"
)

// Salesforce package namespaces the connector can be installed under
const (
	NamespaceDefault    = "c"
	NamespaceProduction = "stripeConnector"
	NamespaceQA         = "QaStripeConnect"
)

// Feature flags
const (
	FeatureCatchAllErrors = "catch_all_errors"
)

const defaultMetadataPrefix = "salesforce_"

// Connection is the per-call configuration of one Salesforce org linked to one Stripe account
type Connection struct {
	ID                    string `json:"id" mapstructure:"id"`
	SalesforceInstanceURL string `json:"salesforce_instance_url" mapstructure:"salesforce_instance_url"`
	SalesforceAccessToken string `json:"-" mapstructure:"salesforce_access_token"`
	Namespace             string `json:"namespace" mapstructure:"namespace"`
	StripeSecretKey       string `json:"-" mapstructure:"stripe_secret_key"`
	Currency              string `json:"currency" mapstructure:"currency"`
	CPQTermUnit           string `json:"cpq_term_unit" mapstructure:"cpq_term_unit"`
	MetadataPrefix        string `json:"metadata_prefix" mapstructure:"metadata_prefix"`

	Features map[string]bool `json:"features" mapstructure:"features"`

	// FieldMappings are user mappings: target object -> target field path -> source field path
	FieldMappings map[string]map[string]string `json:"field_mappings" mapstructure:"field_mappings"`
	// FieldDefaults are static values: target object -> target field path -> value
	FieldDefaults map[string]map[string]interface{} `json:"field_defaults" mapstructure:"field_defaults"`
	// DefaultMappings override the built-in default mappings per target object
	DefaultMappings map[string]map[string]string `json:"default_mappings" mapstructure:"default_mappings"`
}

// Validate checks the settings the translator relies on and fills defaults
func (c *Connection) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("connection id is required")
	}
	if c.SalesforceInstanceURL == "" {
		return fmt.Errorf("connection %s: salesforce_instance_url is required", c.ID)
	}
	if c.StripeSecretKey == "" {
		return fmt.Errorf("connection %s: stripe_secret_key is required", c.ID)
	}
	switch c.Namespace {
	case "", NamespaceDefault, NamespaceProduction, NamespaceQA:
	default:
		return fmt.Errorf("connection %s: invalid namespace provided %s", c.ID, c.Namespace)
	}

	c.SalesforceInstanceURL = strings.TrimRight(c.SalesforceInstanceURL, "/")
	if c.Currency == "" {
		c.Currency = "usd"
	}
	c.Currency = strings.ToLower(c.Currency)
	if c.CPQTermUnit == "" {
		c.CPQTermUnit = "month"
	}
	if c.MetadataPrefix == "" {
		c.MetadataPrefix = defaultMetadataPrefix
	}
	return nil
}

// FeatureEnabled reports whether a feature flag is on
func (c *Connection) FeatureEnabled(name string) bool {
	return c.Features[name]
}

// PrefixedField returns the connector custom field name for the installed namespace
func (c *Connection) PrefixedField(name string) string {
	switch c.Namespace {
	case NamespaceProduction, NamespaceQA:
		return c.Namespace + "__" + name
	default:
		return name
	}
}

// TermUnit returns the normalized CPQ subscription term unit
func (c *Connection) TermUnit() string {
	return strings.ToLower(c.CPQTermUnit)
}

// Connector custom fields and objects, before namespace prefixing
const (
	FieldStripeID          = "Stripe_ID__c"
	FieldInvoiceLink       = "Stripe_Invoice_Link__c"
	FieldOrderLineSkip     = "Order_Line_Skip__c"
	ObjectSyncRecord       = "Sync_Record__c"
	FieldCompoundID        = "Compound_ID__c"
	FieldPrimaryRecordID   = "Primary_Record_ID__c"
	FieldPrimaryObjectType = "Primary_Object_Type__c"
	FieldSecondaryRecordID = "Secondary_Record_ID__c"
	FieldSecondaryType     = "Secondary_Object_Type__c"
	FieldResolutionMessage = "Resolution_Message__c"
	FieldResolutionStatus  = "Resolution_Status__c"
)
