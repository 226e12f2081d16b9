package model

import "time"

// SyncRecord mirrors the Sync_Record__c failure written to Salesforce
type SyncRecord struct {
	ID                  int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ConnectionID        string    `gorm:"not null;size:100;uniqueIndex:idx_sync_records_compound" json:"connection_id"`
	CompoundID          string    `gorm:"not null;size:64;uniqueIndex:idx_sync_records_compound" json:"compound_id"`
	PrimaryRecordID     string    `gorm:"not null;size:18;index" json:"primary_record_id"`
	PrimaryObjectType   string    `gorm:"size:100" json:"primary_object_type"`
	SecondaryRecordID   string    `gorm:"size:18" json:"secondary_record_id"`
	SecondaryObjectType string    `gorm:"size:100" json:"secondary_object_type"`
	ResolutionMessage   string    `gorm:"type:text" json:"resolution_message"`
	ResolutionStatus    string    `gorm:"size:20;not null" json:"resolution_status"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (SyncRecord) TableName() string {
	return "sync_records"
}
