package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guilhermegouw/cadence/internal/app"
	"github.com/guilhermegouw/cadence/internal/events"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync with the server once and exit",
		Long: `Sync reminders and notifications with the server once.

With --deferred, perform the syncs registered while no session was running
instead. This is meant to be run from cron or a login hook.`,
		RunE: runSync,
	}
	cmd.Flags().Bool("deferred", false, "Run pending deferred syncs")
	cmd.Flags().String("category", events.CategoryAll, "Category to sync: all, reminders or notifications")
	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	deferredOnly, err := cmd.Flags().GetBool("deferred")
	if err != nil {
		return fmt.Errorf("getting deferred flag: %w", err)
	}
	category, err := cmd.Flags().GetString("category")
	if err != nil {
		return fmt.Errorf("getting category flag: %w", err)
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

	out := cmd.OutOrStdout()
	if deferredOnly {
		n, err := a.DrainDeferred(ctx)
		fmt.Fprintf(out, "Ran %d deferred syncs\n", n)
		return err
	}

	if err := a.Syncer.SyncCategory(ctx, category); err != nil {
		return err
	}
	if a.Remote == nil {
		fmt.Fprintln(out, "No server configured, nothing to sync")
		return nil
	}
	fmt.Fprintf(out, "Synced %s\n", category)
	return nil
}
