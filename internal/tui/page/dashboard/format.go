package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/guilhermegouw/cadence/internal/events"
	"github.com/guilhermegouw/cadence/internal/realtime"
	"github.com/guilhermegouw/cadence/internal/scheduler"
)

// Describe renders an event as one log line.
func Describe(ev events.Event) string {
	switch e := ev.(type) {
	case events.TaskEvent:
		switch e.Type {
		case events.TaskEventError:
			return fmt.Sprintf("task %s failed after %s: %v", e.Name, round(e.Duration), e.Error)
		case events.TaskEventComplete:
			return fmt.Sprintf("task %s done in %s", e.Name, round(e.Duration))
		default:
			return fmt.Sprintf("task %s started", e.Name)
		}
	case events.SyncStartEvent:
		return "sync " + e.Category
	case events.NotificationReceivedEvent:
		return fmt.Sprintf("notification %q from %s", e.Title, e.Source)
	case events.DialogOpenEvent:
		return fmt.Sprintf("showing %q", e.Title)
	case events.ReminderEvent:
		return fmt.Sprintf("%s %s", e.Type, shortID(e.ReminderID))
	case events.ActivityEvent:
		if e.Source != "" {
			return fmt.Sprintf("%s (%s)", e.Type, e.Source)
		}
		return string(e.Type)
	case events.VisibilityEvent:
		if e.Visible {
			return "dashboard visible"
		}
		return "dashboard hidden"
	case events.ChannelStateEvent:
		line := "channel " + e.State
		if e.RetryIn > 0 {
			line += fmt.Sprintf(", retry %d in %s", e.Attempt, round(e.RetryIn))
		}
		if e.Error != nil {
			line += ": " + e.Error.Error()
		}
		return line
	case events.ChannelMessageEvent:
		return fmt.Sprintf("message %s (%d bytes)", e.Type, len(e.Data))
	case events.ReconnectExhaustedEvent:
		return fmt.Sprintf("channel gave up after %d attempts", e.Attempts)
	case events.HealthWarningEvent:
		return fmt.Sprintf("task %s overdue by %s", e.Name, round(e.Overdue))
	case nil:
		return ""
	default:
		return string(ev.Kind())
	}
}

func round(d time.Duration) time.Duration {
	switch {
	case d >= time.Second:
		return d.Round(100 * time.Millisecond)
	case d >= time.Millisecond:
		return d.Round(time.Millisecond)
	default:
		return d
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// relative formats t relative to now, e.g. "12s ago" or "in 3m".
func relative(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	if d >= 0 {
		return compact(d) + " ago"
	}
	return "in " + compact(-d)
}

func compact(d time.Duration) string {
	switch {
	case d < time.Second:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

func cadence(st scheduler.Status) string {
	if st.Schedule != "" {
		return st.Schedule
	}
	return st.Interval.String()
}

// Report renders a plain-text status summary, used for the clipboard.
func Report(s Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "cadence status at %s\n", s.Taken.Format(time.RFC3339))

	fmt.Fprintf(&b, "channel: %s", s.Channel.State)
	if s.Channel.Exhausted {
		b.WriteString(" (gave up)")
	}
	if s.Channel.Queued > 0 {
		fmt.Fprintf(&b, ", %d queued", s.Channel.Queued)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "deferred sync: supported=%t tags=%s permission=%s\n",
		s.Deferred.Supported, strings.Join(s.Deferred.Tags, ","), s.Deferred.NotificationPermission)

	for _, st := range s.Tasks {
		fmt.Fprintf(&b, "task %s every %s, last run %s, runs %d, failures %d\n",
			st.ID, cadence(st), relative(st.LastRun, s.Taken), st.Runs, st.Failures)
	}
	fmt.Fprintf(&b, "reminders: %d\n", len(s.Reminders))
	return b.String()
}

func channelState(st realtime.Status) string {
	switch {
	case st.Exhausted:
		return "gave up"
	case st.Manual && st.State == realtime.StateClosed:
		return "disconnected"
	default:
		return st.State.String()
	}
}
