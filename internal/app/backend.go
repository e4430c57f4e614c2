package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/guilhermegouw/cadence/internal/deferred"
	"github.com/guilhermegouw/cadence/internal/events"
	"github.com/guilhermegouw/cadence/internal/realtime"
	"github.com/guilhermegouw/cadence/internal/scheduler"
	"github.com/guilhermegouw/cadence/internal/store"
)

// MessageTypeChat is the type of free-text messages sent from the dashboard.
const MessageTypeChat = "chat"

type chatMessage struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Tasks returns the scheduler snapshot.
func (a *App) Tasks() []scheduler.Status {
	return a.Scheduler.Statuses()
}

// Channel returns the realtime channel snapshot.
func (a *App) Channel() realtime.Status {
	if a.Realtime == nil {
		return realtime.Status{State: realtime.StateIdle, Manual: true}
	}
	return a.Realtime.Status()
}

// Deferred returns the deferred-sync snapshot.
func (a *App) Deferred() deferred.Status {
	return a.Registrar.Status()
}

// Reminders lists the local reminders.
func (a *App) Reminders(ctx context.Context) ([]store.Reminder, error) {
	return a.Store.ListReminders(ctx)
}

// CreateReminder stores a reminder; the orchestrator registers a deferred
// reminder sync when it is announced.
func (a *App) CreateReminder(ctx context.Context, title string, due time.Time) error {
	_, err := a.Syncer.CreateReminder(ctx, title, due)
	return err
}

// CompleteReminder marks a reminder done.
func (a *App) CompleteReminder(ctx context.Context, id string) error {
	return a.Syncer.CompleteReminder(ctx, id)
}

// SendMessage sends text over the realtime channel. It is queued while the
// channel is not open.
func (a *App) SendMessage(text string) error {
	if a.Realtime == nil {
		return ErrChannelOff
	}
	msg, err := realtime.NewMessage(MessageTypeChat, chatMessage{ID: uuid.NewString(), Text: text})
	if err != nil {
		return err
	}
	return a.Realtime.Send(msg)
}

// SyncNow requests a full sync, subject to the debounce window.
func (a *App) SyncNow(ctx context.Context) bool {
	return a.Orchestrator.TriggerSync(ctx, events.CategoryAll)
}

// Reconnect dials the channel again, also after it gave up.
func (a *App) Reconnect(ctx context.Context) {
	if a.Realtime != nil {
		a.Realtime.Connect(ctx)
	}
}
