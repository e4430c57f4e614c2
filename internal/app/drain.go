package app

import (
	"context"
	"fmt"

	"github.com/guilhermegouw/cadence/internal/debug"
	"github.com/guilhermegouw/cadence/internal/deferred"
	"github.com/guilhermegouw/cadence/internal/events"
)

// DrainDeferred performs the syncs registered while no session was
// running and clears them from the spool.
func (a *App) DrainDeferred(ctx context.Context) (int, error) {
	n, err := a.Spool.Drain(ctx, a.runIntent)
	if n > 0 {
		debug.Event("app", "deferred-drained", fmt.Sprintf("%d intents", n))
	}
	return n, err
}

func (a *App) runIntent(ctx context.Context, intent deferred.Intent) error {
	switch intent.Tag {
	case deferred.TagReminderSync:
		return a.Syncer.SyncCategory(ctx, events.CategoryReminders)
	case deferred.TagFullSync, deferred.TagAllDataSync:
		return a.Syncer.SyncAll(ctx)
	default:
		return fmt.Errorf("unknown deferred sync %q", intent.Tag)
	}
}
