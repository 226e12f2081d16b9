package entity

import "time"

// TranslateJob is the message published on the job channel
type TranslateJob struct {
	JobID        string `json:"job_id"`
	ConnectionID string `json:"connection_id"`
	RecordID     string `json:"record_id"`
}

// TranslationJob is the stored state of a TranslateJob
type TranslationJob struct {
	ID           int64      `json:"id"`
	JobID        string     `json:"job_id"`
	ConnectionID string     `json:"connection_id"`
	RecordID     string     `json:"record_id"`
	RecordType   string     `json:"record_type"`
	Status       string     `json:"status"`
	Attempts     int        `json:"attempts"`
	StripeID     string     `json:"stripe_id,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TranslationResult describes the Stripe object a translate call produced or found
type TranslationResult struct {
	RecordID     string `json:"record_id"`
	RecordType   string `json:"record_type"`
	StripeObject string `json:"stripe_object,omitempty"`
	StripeID     string `json:"stripe_id,omitempty"`
	// Skipped is set when the record produced no Stripe object, such as a negative price
	Skipped bool `json:"skipped,omitempty"`
}
