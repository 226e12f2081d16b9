// Package config loads layered YAML configuration with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config gives read access to configuration values
type Config interface {
	GetString(key string) string
	IsSet(key string) bool
	// UnmarshalKey decodes the subtree at key into out
	UnmarshalKey(key string, out interface{}) error
}

type viperConfig struct {
	v *viper.Viper
}

func (c *viperConfig) GetString(key string) string {
	return c.v.GetString(key)
}

func (c *viperConfig) IsSet(key string) bool {
	return c.v.IsSet(key)
}

func (c *viperConfig) UnmarshalKey(key string, out interface{}) error {
	return c.v.UnmarshalKey(key, out)
}

const configDir = "configs"

// Load reads configs/<env>/<name>.yaml, falling back to configs/example.
// APP_ENV selects the environment (default dev) and CONFIG_DIR overrides the
// directory. Values can be overridden by NAME_SECTION_KEY environment variables.
func Load(name string) (Config, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	configPath := os.Getenv("CONFIG_DIR")
	if configPath == "" {
		configPath = filepath.Join(configDir, env)
	}

	v := newViper(name)
	v.SetConfigName(name)
	v.AddConfigPath(configPath)

	if err := v.ReadInConfig(); err != nil {
		v.AddConfigPath(filepath.Join(configDir, "example"))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to load config %q: %w", name, err)
		}
	}

	return &viperConfig{v: v}, nil
}

// LoadFile reads a single YAML file, still honoring environment overrides
func LoadFile(name, path string) (Config, error) {
	v := newViper(name)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return &viperConfig{v: v}, nil
}

func newViper(name string) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(strings.ToUpper(name))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}
