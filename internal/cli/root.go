package cli

import (
	"os"

	"github.com/spf13/cobra"

	"tripbudget/internal/config"
	"tripbudget/internal/log"
)

type rootOptions struct {
	dbPath string
}

// load reads .env, the environment and the flag overrides, then builds the logger.
func (o *rootOptions) load() (*log.Logger, *config.Config, error) {
	LoadEnvFile()
	cfg, err := LoadAndValidateConfig(o.dbPath)
	if err != nil {
		return nil, nil, err
	}
	return SetupLogger(cfg), cfg, nil
}

// NewRootCmd builds the tripbudget command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "tripbudget",
		Short:        "Multi-currency trip budget engine",
		Long:         "Aggregate trip costs from every source into one budget view in the traveller's currency.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides SQLITE_DB_PATH)")

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newCurrenciesCmd(opts),
		newBudgetCmd(opts),
		newTripsCmd(opts),
	)
	return root
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
