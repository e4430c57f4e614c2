// Package dashboard is the main cadence screen: scheduled tasks, channel
// and deferred-sync status, reminders and a live event log.
package dashboard

import (
	"context"
	"time"

	"github.com/guilhermegouw/cadence/internal/deferred"
	"github.com/guilhermegouw/cadence/internal/realtime"
	"github.com/guilhermegouw/cadence/internal/scheduler"
	"github.com/guilhermegouw/cadence/internal/store"
)

// Backend is what the dashboard reads and drives.
type Backend interface {
	Tasks() []scheduler.Status
	Channel() realtime.Status
	Deferred() deferred.Status
	Reminders(ctx context.Context) ([]store.Reminder, error)
	CreateReminder(ctx context.Context, title string, due time.Time) error
	CompleteReminder(ctx context.Context, id string) error
	SendMessage(text string) error
	SyncNow(ctx context.Context) bool
	Reconnect(ctx context.Context)
}

// Snapshot is everything the dashboard renders from the backend.
type Snapshot struct {
	Taken     time.Time
	Channel   realtime.Status
	Deferred  deferred.Status
	Tasks     []scheduler.Status
	Reminders []store.Reminder
	Err       error
}

func takeSnapshot(ctx context.Context, b Backend, now time.Time) Snapshot {
	s := Snapshot{
		Taken:    now,
		Tasks:    b.Tasks(),
		Channel:  b.Channel(),
		Deferred: b.Deferred(),
	}
	s.Reminders, s.Err = b.Reminders(ctx)
	return s
}
