package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"tripbudget/internal/ratesfile"
	"tripbudget/internal/storage"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.DataBackend != "sqlite" {
				return errors.New("migrate requires DATA_BACKEND=sqlite")
			}

			if err := storage.RunMigrations(cfg.SQLiteDBPath); err != nil {
				return err
			}
			version, dirty, err := storage.MigrationVersion(cfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			logger.Info("Migrations applied", "path", cfg.SQLiteDBPath, "version", version, "dirty", dirty)
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
			return nil
		},
	}
}

func newCurrenciesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "currencies",
		Short: "Manage currency reference data",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Import currencies and rates from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, cfg, err := opts.load()
			if err != nil {
				return err
			}
			currencies, err := ratesfile.Load(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(logger, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.budget.RefreshCurrencies(cmd.Context(), currencies); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d currencies\n", len(currencies))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List currencies and their rate per 1 USD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, cfg, err := opts.load()
			if err != nil {
				return err
			}
			a, err := newApp(logger, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			currencies, err := a.budget.ListCurrencies(cmd.Context())
			if err != nil {
				return err
			}
			if len(currencies) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No currencies found.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), RenderCurrencies(currencies))
			return nil
		},
	})

	return cmd
}

func newBudgetCmd(opts *rootOptions) *cobra.Command {
	var userID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "budget <tripID>",
		Short: "Show the budget of one trip in the user's currency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, cfg, err := opts.load()
			if err != nil {
				return err
			}
			a, err := newApp(logger, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			snapshot, err := a.budget.ComputeBudget(ctx, args[0], userID)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), snapshot)
			}

			name := args[0]
			if header, err := a.store.GetTripHeader(ctx, args[0]); err == nil && header.Name != "" {
				name = header.Name
			}
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprint(cmd.OutOrStdout(), RenderBudget(name, snapshot))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user whose preferred currency is used")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the snapshot as JSON")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newTripsCmd(opts *rootOptions) *cobra.Command {
	var userID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "trips",
		Short: "List a user's trips with their budget status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, cfg, err := opts.load()
			if err != nil {
				return err
			}
			a, err := newApp(logger, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			summaries, err := a.budget.ListTripBudgetSummaries(cmd.Context(), userID)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), summaries)
			}
			if len(summaries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No trips found.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), RenderSummaries(summaries))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "owner of the trips")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the list as JSON")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
