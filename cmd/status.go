package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/guilhermegouw/cadence/internal/app"
	"github.com/guilhermegouw/cadence/internal/config"
	"github.com/guilhermegouw/cadence/internal/tui/styles"
)

const defaultReportWidth = 80

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration, local data and sync state",
		Long: `Display the current cadence status including:
  - Config file and server
  - Token source
  - Realtime transport
  - Local reminders and pending notifications
  - Last sync per category and deferred syncs waiting to run`,
		RunE: runStatus,
	}
	cmd.Flags().Bool("plain", false, "Print markdown without rendering")
	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
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

	report, err := statusReport(cmd.Context(), a)
	if err != nil {
		return err
	}

	plain, err := cmd.Flags().GetBool("plain")
	if err != nil {
		return fmt.Errorf("getting plain flag: %w", err)
	}
	out := cmd.OutOrStdout()
	if plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprint(out, report)
		return nil
	}

	width := defaultReportWidth
	if w, _, sizeErr := term.GetSize(int(os.Stdout.Fd())); sizeErr == nil && w > 0 {
		width = min(w, 120)
	}

	styles.NewManager()
	rendered, err := styles.NewMarkdownRenderer(termenv.EnvColorProfile()).Render(report, width)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: rendering status: %v\n", err)
	}
	fmt.Fprint(out, rendered)
	return nil
}

// statusReport builds the status as markdown.
func statusReport(ctx context.Context, a *app.App) (string, error) {
	cfg := a.Config
	var b strings.Builder

	b.WriteString("# cadence status\n\n")

	b.WriteString("## Configuration\n\n")
	fmt.Fprintf(&b, "- **Config file:** `%s`\n", config.GlobalConfigPath())
	fmt.Fprintf(&b, "- **Database:** `%s`\n", cfg.DatabasePath())
	server := "_none, local only_"
	if cfg.Server.URL != "" {
		server = "`" + cfg.Server.URL + "`"
	}
	fmt.Fprintf(&b, "- **Server:** %s\n", server)

	_, origin, err := a.Credentials.Lookup()
	token := "found in " + string(origin)
	if err != nil {
		token = "not found"
	}
	fmt.Fprintf(&b, "- **Token:** %s\n", token)
	fmt.Fprintf(&b, "- **Realtime:** %s\n", transportSummary(cfg))
	if cfg.Scheduler.NightlySchedule != "" {
		fmt.Fprintf(&b, "- **Nightly sync:** `%s`\n", cfg.Scheduler.NightlySchedule)
	}
	if v, verr := a.DB.Version(); verr == nil {
		fmt.Fprintf(&b, "- **Schema version:** %d\n", v)
	}
	b.WriteString("\n")

	counts, err := a.Store.Counts(ctx)
	if err != nil {
		return "", fmt.Errorf("counting local data: %w", err)
	}
	b.WriteString("## Local data\n\n")
	fmt.Fprintf(&b, "- %d reminders, %d open\n", counts.Reminders, counts.OpenReminders)
	fmt.Fprintf(&b, "- %d notifications waiting\n\n", counts.PendingNotifications)

	records, err := a.Store.SyncRecords(ctx)
	if err != nil {
		return "", fmt.Errorf("reading sync state: %w", err)
	}
	b.WriteString("## Last sync\n\n")
	if len(records) == 0 {
		b.WriteString("Never synced.\n\n")
	} else {
		b.WriteString("| Category | When | Result |\n|---|---|---|\n")
		for _, r := range records {
			result := "ok"
			if r.LastError != "" {
				result = strings.ReplaceAll(r.LastError, "|", "/")
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n", r.Category, r.LastSynced.Local().Format(time.DateTime), result)
		}
		b.WriteString("\n")
	}

	pending, err := a.Spool.Pending()
	if err != nil {
		return "", fmt.Errorf("reading deferred syncs: %w", err)
	}
	b.WriteString("## Deferred syncs\n\n")
	switch {
	case !cfg.Deferred.IsEnabled():
		b.WriteString("Disabled.\n")
	case len(pending) == 0:
		b.WriteString("Nothing waiting.\n")
	default:
		for _, in := range pending {
			fmt.Fprintf(&b, "- `%s` registered %s (%d times)\n", in.Tag, in.RegisteredAt.Local().Format(time.DateTime), in.Count)
		}
		b.WriteString("\nRun `cadence sync --deferred` to perform them.\n")
	}

	return b.String(), nil
}

func transportSummary(cfg *config.Config) string {
	rt := cfg.Realtime
	switch rt.Transport {
	case config.TransportOff:
		return "off"
	case config.TransportRedis:
		return fmt.Sprintf("redis `%s` (in `%s`, out `%s`)", redactAddr(rt.RedisAddr), rt.Inbox, rt.Outbox)
	default:
		if rt.URL == "" {
			return "websocket, no url configured"
		}
		return fmt.Sprintf("websocket `%s`", rt.URL)
	}
}

// redactAddr hides credentials in a redis:// URL.
func redactAddr(addr string) string {
	u, err := url.Parse(addr)
	if err != nil || u.User == nil {
		return addr
	}
	return u.Redacted()
}
