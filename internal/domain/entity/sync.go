package entity

import "time"

// SyncStatus values of Resolution_Status__c
const (
	SyncStatusError   = "Error"
	SyncStatusSuccess = "Success"
)

// SyncRecord is a user-visible translation failure
type SyncRecord struct {
	ID                  int64     `json:"id"`
	ConnectionID        string    `json:"connection_id"`
	CompoundID          string    `json:"compound_id"`
	PrimaryRecordID     string    `json:"primary_record_id"`
	PrimaryObjectType   string    `json:"primary_object_type"`
	SecondaryRecordID   string    `json:"secondary_record_id"`
	SecondaryObjectType string    `json:"secondary_object_type"`
	ResolutionMessage   string    `json:"resolution_message"`
	ResolutionStatus    string    `json:"resolution_status"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TranslationLink maps a Salesforce record to the Stripe object created for it
type TranslationLink struct {
	ID             int64     `json:"id"`
	ConnectionID   string    `json:"connection_id"`
	SalesforceID   string    `json:"salesforce_id"`
	SalesforceType string    `json:"salesforce_type"`
	StripeObject   string    `json:"stripe_object"`
	StripeID       string    `json:"stripe_id"`
	CreatedAt      time.Time `json:"created_at"`
}
