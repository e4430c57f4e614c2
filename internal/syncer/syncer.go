// Package syncer moves reminders and notifications between the sync
// server and the local store.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/guilhermegouw/cadence/internal/debug"
	"github.com/guilhermegouw/cadence/internal/events"
	"github.com/guilhermegouw/cadence/internal/pubsub"
	"github.com/guilhermegouw/cadence/internal/remote"
	"github.com/guilhermegouw/cadence/internal/store"
)

// Source labels notifications surfaced by the syncer.
const Source = "sync"

// Remote is the part of *remote.Client the syncer uses.
type Remote interface {
	FetchReminders(ctx context.Context, since time.Time) ([]remote.Reminder, error)
	PutReminder(ctx context.Context, r remote.Reminder) (remote.Reminder, error)
	FetchNotifications(ctx context.Context) ([]remote.Notification, error)
	AcknowledgeNotification(ctx context.Context, id string) error
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) {
		s.now = now
	}
}

// Syncer implements the sync operations the scheduled tasks run. A nil
// Remote makes it local-only.
type Syncer struct {
	store   *store.Store
	remote  Remote
	emitter pubsub.Emitter
	now     func() time.Time

	mu       sync.Mutex
	lastPull time.Time
}

// New creates a syncer.
func New(st *store.Store, rm Remote, emitter pubsub.Emitter, opts ...Option) *Syncer {
	s := &Syncer{
		store:   st,
		remote:  rm,
		emitter: emitter,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncAll syncs every category.
func (s *Syncer) SyncAll(ctx context.Context) error {
	return s.SyncCategory(ctx, events.CategoryAll)
}

// SyncCategory syncs one category and records the outcome.
func (s *Syncer) SyncCategory(ctx context.Context, category string) error {
	switch category {
	case events.CategoryReminders:
		return s.record(ctx, category, s.syncReminders(ctx))
	case events.CategoryNotifications:
		return s.record(ctx, category, s.syncNotifications(ctx))
	case events.CategoryAll:
		return errors.Join(
			s.SyncCategory(ctx, events.CategoryReminders),
			s.SyncCategory(ctx, events.CategoryNotifications),
		)
	default:
		return fmt.Errorf("unknown sync category %q", category)
	}
}

func (s *Syncer) record(ctx context.Context, category string, syncErr error) error {
	if err := s.store.RecordSync(ctx, category, s.now(), syncErr); err != nil {
		debug.Error("syncer", err, "recording sync state")
	}
	if syncErr != nil {
		return fmt.Errorf("syncing %s: %w", category, syncErr)
	}
	return nil
}

// syncReminders pushes local changes, then pulls remote changes newer
// than the last pull. The newest UpdatedAt wins.
func (s *Syncer) syncReminders(ctx context.Context) error {
	if s.remote == nil {
		return nil
	}

	dirty, err := s.store.DirtyReminders(ctx)
	if err != nil {
		return err
	}
	var pushErrs []error
	for _, r := range dirty {
		saved, err := s.remote.PutReminder(ctx, toRemote(r))
		if err != nil {
			pushErrs = append(pushErrs, err)
			continue
		}
		if err := s.store.MarkReminderSynced(ctx, r.ID, latest(saved.UpdatedAt, r.UpdatedAt)); err != nil {
			pushErrs = append(pushErrs, err)
		}
	}

	s.mu.Lock()
	since := s.lastPull
	s.mu.Unlock()

	pulledAt := s.now()
	pulled, err := s.remote.FetchReminders(ctx, since)
	if err != nil {
		return errors.Join(append(pushErrs, err)...)
	}
	for _, rr := range pulled {
		if err := s.applyRemote(ctx, rr); err != nil {
			pushErrs = append(pushErrs, err)
		}
	}

	s.mu.Lock()
	s.lastPull = pulledAt
	s.mu.Unlock()

	return errors.Join(pushErrs...)
}

func (s *Syncer) applyRemote(ctx context.Context, rr remote.Reminder) error {
	local, err := s.store.GetReminder(ctx, rr.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return err
	case local.UpdatedAt.After(rr.UpdatedAt):
		return nil
	}

	r := fromRemote(rr)
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = s.now()
	}
	r.SyncedAt = r.UpdatedAt
	return s.store.UpsertReminder(ctx, &r)
}

// syncNotifications stores pending server notifications and announces the
// new ones.
func (s *Syncer) syncNotifications(ctx context.Context) error {
	if s.remote == nil {
		return nil
	}

	fresh, err := s.pullNotifications(ctx)
	for _, n := range fresh {
		s.emitter.Emit(ctx, events.NewNotificationReceivedEvent(n.ID, n.Title, n.Body, Source))
	}
	return err
}

func (s *Syncer) pullNotifications(ctx context.Context) ([]store.Notification, error) {
	remoteNotes, err := s.remote.FetchNotifications(ctx)
	if err != nil {
		return nil, err
	}

	var fresh []store.Notification
	for _, rn := range remoteNotes {
		n := store.Notification{ID: rn.ID, Title: rn.Title, Body: rn.Body, Source: Source, ReceivedAt: rn.CreatedAt}
		inserted, err := s.store.InsertNotification(ctx, n)
		if err != nil {
			return fresh, err
		}
		if inserted {
			fresh = append(fresh, n)
		}
	}
	return fresh, nil
}

// ProbeNotifications refreshes notifications from the server and returns
// every unacknowledged one. Local results are returned even when the
// server cannot be reached.
func (s *Syncer) ProbeNotifications(ctx context.Context) ([]events.NotificationReceivedEvent, error) {
	var remoteErr error
	if s.remote != nil {
		_, remoteErr = s.pullNotifications(ctx)
	}

	pending, err := s.store.PendingNotifications(ctx)
	if err != nil {
		return nil, errors.Join(remoteErr, err)
	}

	out := make([]events.NotificationReceivedEvent, 0, len(pending))
	for _, n := range pending {
		ev := events.NewNotificationReceivedEvent(n.ID, n.Title, n.Body, n.Source)
		out = append(out, ev)
	}
	return out, remoteErr
}

// Acknowledge marks a notification handled locally and on the server.
// Notifications unknown to either side are not an error.
func (s *Syncer) Acknowledge(ctx context.Context, id string) error {
	var errs []error
	if err := s.store.Acknowledge(ctx, id, s.now()); err != nil && !errors.Is(err, store.ErrNotFound) {
		errs = append(errs, err)
	}
	if s.remote != nil {
		if err := s.remote.AcknowledgeNotification(ctx, id); err != nil && !remote.IsNotFound(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CreateReminder stores a new reminder and announces it.
func (s *Syncer) CreateReminder(ctx context.Context, title string, due time.Time) (store.Reminder, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return store.Reminder{}, errors.New("reminder title is empty")
	}

	r := store.Reminder{Title: title, DueAt: due, UpdatedAt: s.now()}
	if err := s.store.UpsertReminder(ctx, &r); err != nil {
		return store.Reminder{}, err
	}
	s.emitter.Emit(ctx, events.NewReminderCreatedEvent(r.ID))
	return r, nil
}

// CompleteReminder marks a reminder done and announces the change.
func (s *Syncer) CompleteReminder(ctx context.Context, id string) error {
	r, err := s.store.GetReminder(ctx, id)
	if err != nil {
		return err
	}
	r.Done = true
	r.UpdatedAt = s.now()
	if err := s.store.UpsertReminder(ctx, &r); err != nil {
		return err
	}
	s.emitter.Emit(ctx, events.NewReminderUpdatedEvent(r.ID))
	return nil
}

func toRemote(r store.Reminder) remote.Reminder {
	return remote.Reminder{ID: r.ID, Title: r.Title, Notes: r.Notes, DueAt: r.DueAt, UpdatedAt: r.UpdatedAt, Done: r.Done}
}

func fromRemote(r remote.Reminder) store.Reminder {
	return store.Reminder{ID: r.ID, Title: r.Title, Notes: r.Notes, DueAt: r.DueAt, UpdatedAt: r.UpdatedAt, Done: r.Done}
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
