package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/config"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/infrastructure/connection"
	"github.com/wekeepgrowing/stripe-cpq-connector/pkg/logger"
	"go.uber.org/zap"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = "dev"

// app carries the flags and lazily loaded state shared by every command
type app struct {
	configPath      string
	connectionsPath string
	verbose         bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "connector",
		Short: "Translate Salesforce CPQ records into Stripe billing objects",
		Long: `connector runs single translations against a configured connection
without going through the HTTP API or the job channel.

  connector translate 8015e00000InitAAA --connection acme
  connector contract 8015e00000AmndAAA --connection acme
  connector migrate`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "service config file (default $CONFIG_PATH or ./configs/translator.yaml)")
	root.PersistentFlags().StringVar(&a.connectionsPath, "connections", "", "connector.yaml holding the connections (default resolved by APP_ENV)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newTranslateCmd(a),
		newContractCmd(a),
		newMigrateCmd(a),
		newVersionCmd(),
	)
	return root
}

// load reads the service config and builds the logger once
func (a *app) load() error {
	if a.cfg != nil {
		return nil
	}

	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadConfigFile(a.configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return err
	}

	if a.verbose {
		cfg.Log.Level = "debug"
	}
	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.cfg = cfg
	a.logger = zapLogger
	return nil
}

func (a *app) registry() (*connection.Registry, error) {
	path := a.connectionsPath
	if path == "" {
		path = a.cfg.Service.ConnectionsFile
	}
	return connection.Load(path, a.logger)
}

func printJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
