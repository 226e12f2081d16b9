package model

import "time"

// TranslationLink records which Stripe object was created for a Salesforce record
type TranslationLink struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ConnectionID   string    `gorm:"not null;size:100;uniqueIndex:idx_translation_links_record" json:"connection_id"`
	SalesforceID   string    `gorm:"not null;size:18;uniqueIndex:idx_translation_links_record" json:"salesforce_id"`
	SalesforceType string    `gorm:"not null;size:100" json:"salesforce_type"`
	StripeObject   string    `gorm:"not null;size:50;uniqueIndex:idx_translation_links_record" json:"stripe_object"`
	StripeID       string    `gorm:"not null;size:255;index" json:"stripe_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (TranslationLink) TableName() string {
	return "translation_links"
}
