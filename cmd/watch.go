package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/guilhermegouw/cadence/internal/app"
	"github.com/guilhermegouw/cadence/internal/tui/page/dashboard"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the background sync without the dashboard and print events",
		Long: `Run the scheduler, realtime channel and sync tasks headless, printing
every event until interrupted. Useful without a terminal or for debugging.`,
		RunE: runWatch,
	}
	cmd.Flags().Bool("json", false, "Print one JSON object per event")
	return cmd
}

type watchLine struct {
	Time    time.Time `json:"time"`
	Kind    string    `json:"kind"`
	Seq     uint64    `json:"seq"`
	Payload any       `json:"payload"`
}

func runWatch(cmd *cobra.Command, _ []string) error {
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("getting json flag: %w", err)
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

	stream := a.Bus.Stream(ctx)
	if err := a.Start(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	for env := range stream {
		if asJSON {
			line := watchLine{Time: env.Timestamp, Kind: string(env.Kind), Seq: env.Seq, Payload: env.Payload}
			if err := enc.Encode(line); err != nil {
				return fmt.Errorf("encoding event: %w", err)
			}
			continue
		}
		fmt.Fprintf(out, "%s %-22s %s\n", env.Timestamp.Format("15:04:05"), env.Kind, dashboard.Describe(env.Payload))
	}
	return nil
}
