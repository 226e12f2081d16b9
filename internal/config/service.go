package config

import "time"

const (
	defaultLockTTL           = 5 * time.Minute
	defaultSalesforceTimeout = 30 * time.Second
	defaultWorkerConcurrency = 4
)

type ServiceConfig struct {
	Name        string `yaml:"name" validate:"required"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	JWTSecret   string `yaml:"jwt_secret" validate:"required"`
	// ConnectionsFile points at the connector.yaml holding per-connection settings
	ConnectionsFile string `yaml:"connections_file"`
}

// RedisConfig configures the job channel and record locks
type RedisConfig struct {
	Addr       string        `yaml:"addr" validate:"required"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	LockTTL    time.Duration `yaml:"lock_ttl"`
	JobChannel string        `yaml:"job_channel"`

	// WorkerConcurrency caps the jobs a worker runs at once
	WorkerConcurrency int `yaml:"worker_concurrency" validate:"min=0,max=64"`
}

// SalesforceConfig holds settings shared by every Salesforce connection
type SalesforceConfig struct {
	APIVersion    string        `yaml:"api_version"`
	RetryAttempts int           `yaml:"retry_attempts" validate:"min=0,max=20"`
	Timeout       time.Duration `yaml:"timeout"`
}
