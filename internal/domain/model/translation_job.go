package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the processing status of a translation job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Scan implements sql.Scanner interface
func (s *JobStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = JobStatus(v)
	case []byte:
		*s = JobStatus(v)
	default:
		*s = JobStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (s JobStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// TranslationJob tracks one translate request from trigger to outcome
type TranslationJob struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	JobID        uuid.UUID  `gorm:"type:uuid;unique;not null" json:"job_id"`
	ConnectionID string     `gorm:"not null;size:100;index" json:"connection_id"`
	RecordID     string     `gorm:"not null;size:18;index" json:"record_id"`
	RecordType   string     `gorm:"size:100" json:"record_type"`
	Status       JobStatus  `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	Attempts     int        `gorm:"default:0" json:"attempts"`
	StripeID     *string    `gorm:"size:255" json:"stripe_id,omitempty"`
	LastError    *string    `gorm:"type:text" json:"last_error,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (TranslationJob) TableName() string {
	return "translation_jobs"
}
