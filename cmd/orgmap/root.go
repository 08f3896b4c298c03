package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"orgmap/application/editor"
	"orgmap/infrastructure/config"
	"orgmap/infrastructure/di"
)

var version = "0.3.0"

// Output styles
var (
	brand  = color.New(color.FgHiCyan, color.Bold)
	subtle = color.New(color.FgHiBlack)
	good   = color.New(color.FgGreen)
	warn   = color.New(color.FgYellow)
	bad    = color.New(color.FgRed)
)

var (
	configDir string
	envName   string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:           "orgmap",
	Short:         "orgmap keeps a graph of organizations, people and projects",
	Long:          brand.Sprint("orgmap") + " edits a relationship graph kept in a spreadsheet, Supabase or DynamoDB",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", config.DirFromEnv(), "Directory holding base and environment config files")
	rootCmd.PersistentFlags().StringVar(&envName, "env", string(config.EnvironmentFromEnv()), "Environment: development, staging, production or test")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log adapter activity to stderr")

	rootCmd.AddCommand(
		serveCmd(),
		exportCmd(),
		filterCmd(),
		checkCmd(),
	)
}

func newLoader() *config.Loader {
	return config.NewLoader(configDir, config.Environment(envName))
}

func cliLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// openEditor loads the configured store into a fresh editor
func openEditor(ctx context.Context, cfg *config.Config) (*editor.Editor, *editor.ReloadResult, error) {
	logger := cliLogger()
	store, err := di.ProvideStore(ctx, cfg, nil, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.Store.Adapter, err)
	}
	ed := editor.New(store, logger, editor.WithRules(cfg.DomainRules()), editor.WithGraphName(cfg.Store.GraphName))
	result, err := ed.Reload(ctx, false)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", store.Name(), err)
	}
	return ed, result, nil
}
