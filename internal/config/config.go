package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/wekeepgrowing/stripe-cpq-connector/pkg/logger"
)

type Config struct {
	Service    ServiceConfig    `yaml:"service"`
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	Redis      RedisConfig      `yaml:"redis"`
	Salesforce SalesforceConfig `yaml:"salesforce"`
	Log        logger.Config    `yaml:"log"`
}

func LoadConfig() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/translator.yaml"
	}
	return LoadConfigFile(configPath)
}

// LoadConfigFile reads, defaults and validates the config at path
func LoadConfigFile(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Redis.JobChannel == "" {
		c.Redis.JobChannel = "translate.jobs"
	}
	if c.Redis.LockTTL == 0 {
		c.Redis.LockTTL = defaultLockTTL
	}
	if c.Redis.WorkerConcurrency == 0 {
		c.Redis.WorkerConcurrency = defaultWorkerConcurrency
	}
	if c.Salesforce.APIVersion == "" {
		c.Salesforce.APIVersion = "v58.0"
	}
	if c.Salesforce.RetryAttempts == 0 {
		c.Salesforce.RetryAttempts = 5
	}
	if c.Salesforce.Timeout == 0 {
		c.Salesforce.Timeout = defaultSalesforceTimeout
	}
	c.Log.Service = c.Service.Name
}
