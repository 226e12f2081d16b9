package main

import (
	"github.com/spf13/cobra"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/bootstrap"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/infrastructure/database"
	"go.uber.org/zap"
)

func newTranslateCmd(a *app) *cobra.Command {
	var (
		connectionID string
		enqueue      bool
	)

	cmd := &cobra.Command{
		Use:   "translate <record-id>",
		Short: "Translate an order, product, pricebook entry or account",
		Long: `translate takes the record lock and translates the record in this process,
recording the run in translation_jobs. With --enqueue the job is published on
the job channel for a running server instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			defer a.logger.Sync()

			registry, err := a.registry()
			if err != nil {
				return err
			}

			db, err := database.NewConnection(&a.cfg.Database, a.logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := database.Close(db, a.logger); err != nil {
					a.logger.Error("Failed to close database connection", zap.Error(err))
				}
			}()

			redisClient, err := bootstrap.NewRedisClient(&a.cfg.Redis)
			if err != nil {
				return err
			}
			defer redisClient.Close()

			useCases := bootstrap.NewUseCases(a.cfg, registry, database.NewRepositories(db), redisClient, a.logger)

			if enqueue {
				job, err := useCases.Translation.Enqueue(cmd.Context(), connectionID, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), job)
			}

			result, err := useCases.Translation.TranslateNow(cmd.Context(), connectionID, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVarP(&connectionID, "connection", "c", "", "connection id from connector.yaml")
	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "publish a job instead of translating in this process")
	_ = cmd.MarkFlagRequired("connection")
	return cmd
}
