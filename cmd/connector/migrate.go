package main

import (
	"github.com/spf13/cobra"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/infrastructure/database"
	"go.uber.org/zap"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the ledger tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			defer a.logger.Sync()

			db, err := database.NewConnection(&a.cfg.Database, a.logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := database.Close(db, a.logger); err != nil {
					a.logger.Error("Failed to close database connection", zap.Error(err))
				}
			}()

			return database.Migrate(db, a.logger)
		},
	}
}
