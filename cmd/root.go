package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/feelmint/feelmint-go/feelmint"
)

var (
	cfgPath string

	buildVersion = "dev"
	buildCommit  = "unknown"
)

var rootCmd = &cobra.Command{
	Use:           "feelmint",
	Short:         "FeelMint emotion-labeling agent",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.toml", "path to config")
}

// Execute runs the CLI with signal-aware context cancellation.
func Execute(version, commit string) {
	buildVersion = version
	buildCommit = commit

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("Command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// newApp wires the application container from the config file. Callers own
// the returned App and must Close it.
func newApp(ctx context.Context) (*feelmint.App, error) {
	cfg, err := feelmint.LoadConfig(cfgPath)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		return nil, err
	}

	app, err := feelmint.New(ctx, *cfg, buildVersion, buildCommit)
	if err != nil {
		slog.Error("Failed to initialize application", slog.Any("error", err))
		return nil, err
	}
	app.Start(ctx)
	return app, nil
}

// bootstrappedApp additionally pulls the signed-in profile, daily task list
// and reward balances before returning.
func bootstrappedApp(ctx context.Context) (*feelmint.App, error) {
	app, err := newApp(ctx)
	if err != nil {
		return nil, err
	}
	if err := app.Bootstrap(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}
