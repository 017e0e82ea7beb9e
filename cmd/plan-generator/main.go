// cmd/plan-generator/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mcp-plan-generator/internal/config"
	"mcp-plan-generator/internal/logger"
	"mcp-plan-generator/internal/storage"
)

const version = "1.0.0"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configDir string
	cfg       *config.Config
	logger    *zap.Logger
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "plan-generator",
		Short:         "MCP server that turns model output into stored training and nutrition plans",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configDir)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configDir, "config", ".", "Directory containing config.yaml")

	root.AddCommand(
		newServeCommand(a),
		newMigrateCommand(a),
		newCatalogCommand(a),
	)
	return root
}

func (a *app) openStorage() (*storage.SQLStorage, error) {
	store, err := storage.NewSQLStorage(a.cfg.Database.Driver, a.cfg.Database.DSN,
		a.logger.Named("storage"),
		storage.WithPlanDays(a.cfg.Plans.DurationDays))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Opening the store applies the schema.
			store, err := a.openStorage()
			if err != nil {
				return err
			}
			defer store.Close()

			a.logger.Info("schema is up to date", zap.String("driver", a.cfg.Database.Driver))
			return nil
		},
	}
}
