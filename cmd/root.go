// Package cmd provides the CLI commands for cadence.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/guilhermegouw/cadence/internal/app"
	"github.com/guilhermegouw/cadence/internal/config"
	"github.com/guilhermegouw/cadence/internal/debug"
	"github.com/guilhermegouw/cadence/internal/tui"
)

// shutdownTimeout bounds how long running syncs may delay exit.
const shutdownTimeout = 10 * time.Second

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cadence",
		Short: "Background sync for reminders and notifications",
		Long: `cadence keeps a local store of reminders and notifications in sync
with a remote server while you work.

It runs periodic syncs, listens on a realtime channel for pushed
notifications, notices when you come back after being idle and catches
up, and records deferred syncs to run when no session is open.`,
		SilenceUsage: true,
		RunE:         runTUI,
	}

	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging to the cadence data directory")
	cmd.AddCommand(
		newStatusCmd(),
		newWatchCmd(),
		newSyncCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newVersionCmd(),
	)

	return cmd
}

// loadConfig loads the configuration and turns on debug logging when
// requested by flag or config. The returned func undoes the latter.
func loadConfig(cmd *cobra.Command) (*config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, func() {}, fmt.Errorf("loading config: %w", err)
	}

	debugMode, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return nil, func() {}, fmt.Errorf("getting debug flag: %w", err)
	}
	if !debugMode && !cfg.Options.Debug {
		return cfg, func() {}, nil
	}

	logPath := cfg.LogPath()
	if debugErr := debug.Enable(logPath); debugErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to enable debug logging: %v\n", debugErr)
		return cfg, func() {}, nil
	}
	fmt.Fprintf(os.Stderr, "Debug: %s\n", logPath)
	return cfg, debug.Disable, nil
}

// signalContext is cancelled on interrupt or termination.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// shutdown stops a with a bounded timeout, reporting failures on stderr.
func shutdown(a *app.App) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: shutdown: %v\n", err)
	}
}

func runTUI(cmd *cobra.Command, _ []string) error {
	if config.IsFirstRun() {
		fmt.Fprintf(os.Stderr, "No config at %s, running without a server.\n", config.GlobalConfigPath())
	}

	cfg, cleanup, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer shutdown(a)

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}

	return tui.Run(ctx, a, a.Bus, a.Feed)
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
