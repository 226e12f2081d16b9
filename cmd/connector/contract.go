package main

import (
	"github.com/spf13/cobra"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/bootstrap"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/infrastructure/provider"
)

func newContractCmd(a *app) *cobra.Command {
	var connectionID string

	cmd := &cobra.Command{
		Use:   "contract <order-id>",
		Short: "Print the initial order and amendments of an order's contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			defer a.logger.Sync()

			registry, err := a.registry()
			if err != nil {
				return err
			}
			conn, err := registry.Get(connectionID)
			if err != nil {
				return err
			}

			// read only, so neither the ledger nor redis is needed
			translators := bootstrap.NewTranslatorFactory(provider.NewFactory(&a.cfg.Salesforce, a.logger), nil, a.logger)
			structure, err := translators.Translator(conn).ExtractContractStructure(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), structure.Summary())
		},
	}

	cmd.Flags().StringVarP(&connectionID, "connection", "c", "", "connection id from connector.yaml")
	_ = cmd.MarkFlagRequired("connection")
	return cmd
}
