package orchestrator

import (
	"context"

	"github.com/guilhermegouw/cadence/internal/deferred"
	"github.com/guilhermegouw/cadence/internal/events"
	"github.com/guilhermegouw/cadence/internal/scheduler"
)

// Scheduler is the part of *scheduler.Scheduler the orchestrator drives.
type Scheduler interface {
	Register(task scheduler.Task) (func(), error)
	Start(ctx context.Context)
	TriggerNow(id string) bool
	Statuses() []scheduler.Status
}

// Channel is the part of *realtime.Client the orchestrator drives.
type Channel interface {
	Connect(ctx context.Context)
	CheckHealth(ctx context.Context) bool
	Disconnect()
}

// DeferredSync is the part of *deferred.Registrar the orchestrator drives.
type DeferredSync interface {
	RegisterReminderSync(ctx context.Context) bool
	RegisterFullSync(ctx context.Context) bool
	RegisterAllDataSync(ctx context.Context) bool
	RequestNotificationPermission(ctx context.Context) deferred.Permission
	Notify(ctx context.Context, title, body string) bool
}

// Syncer performs the data syncs behind the scheduled tasks.
type Syncer interface {
	// ProbeNotifications returns notifications that still need handling.
	// It may return some notifications together with an error.
	ProbeNotifications(ctx context.Context) ([]events.NotificationReceivedEvent, error)
	SyncAll(ctx context.Context) error
	SyncCategory(ctx context.Context, category string) error
}

// Acknowledger marks a notification handled at its source.
type Acknowledger interface {
	Acknowledge(ctx context.Context, id string) error
}

type nopChannel struct{}

func (nopChannel) Connect(context.Context)          {}
func (nopChannel) CheckHealth(context.Context) bool { return false }
func (nopChannel) Disconnect()                      {}

type nopSyncer struct{}

func (nopSyncer) ProbeNotifications(context.Context) ([]events.NotificationReceivedEvent, error) {
	return nil, nil
}
func (nopSyncer) SyncAll(context.Context) error              { return nil }
func (nopSyncer) SyncCategory(context.Context, string) error { return nil }
