package syncer

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guilhermegouw/cadence/internal/db"
	"github.com/guilhermegouw/cadence/internal/events"
	"github.com/guilhermegouw/cadence/internal/remote"
	"github.com/guilhermegouw/cadence/internal/store"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Emit(_ context.Context, ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Kind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind())
	}
	return out
}

type fakeRemote struct {
	mu            sync.Mutex
	reminders     []remote.Reminder
	notifications []remote.Notification
	put           []remote.Reminder
	acked         []string
	sinces        []time.Time
	fetchErr      error
	ackErr        error
}

func (f *fakeRemote) FetchReminders(_ context.Context, since time.Time) ([]remote.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinces = append(f.sinces, since)
	return f.reminders, f.fetchErr
}

func (f *fakeRemote) PutReminder(_ context.Context, r remote.Reminder) (remote.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.put = append(f.put, r)
	return r, nil
}

func (f *fakeRemote) FetchNotifications(context.Context) ([]remote.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notifications, f.fetchErr
}

func (f *fakeRemote) AcknowledgeNotification(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, id)
	return f.ackErr
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return store.New(database)
}

func TestCreateReminderEmitsEvent(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	rec := &recorder{}
	s := New(st, nil, rec)
	ctx := context.Background()

	r, err := s.CreateReminder(ctx, "  Stretch  ", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "Stretch", r.Title)
	assert.Equal(t, []events.Kind{events.KindReminderCreated}, rec.kinds())

	require.NoError(t, s.CompleteReminder(ctx, r.ID))
	got, err := st.GetReminder(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, got.Done)
	assert.Equal(t, []events.Kind{events.KindReminderCreated, events.KindReminderUpdated}, rec.kinds())

	_, err = s.CreateReminder(ctx, " ", time.Now())
	require.Error(t, err)
	require.ErrorIs(t, s.CompleteReminder(ctx, "missing"), store.ErrNotFound)
}

func TestSyncRemindersPushesAndPulls(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	rm := &fakeRemote{
		reminders: []remote.Reminder{
			{ID: "remote-1", Title: "From server", UpdatedAt: time.Now()},
		},
	}
	s := New(st, rm, &recorder{})
	ctx := context.Background()

	local, err := s.CreateReminder(ctx, "Local", time.Now())
	require.NoError(t, err)

	require.NoError(t, s.SyncCategory(ctx, events.CategoryReminders))

	require.Len(t, rm.put, 1)
	assert.Equal(t, local.ID, rm.put[0].ID)

	dirty, err := st.DirtyReminders(ctx)
	require.NoError(t, err)
	assert.Empty(t, dirty)

	pulled, err := st.GetReminder(ctx, "remote-1")
	require.NoError(t, err)
	assert.Equal(t, "From server", pulled.Title)

	t.Run("second pull asks for newer changes only", func(t *testing.T) {
		require.NoError(t, s.SyncCategory(ctx, events.CategoryReminders))
		require.Len(t, rm.sinces, 2)
		assert.True(t, rm.sinces[0].IsZero())
		assert.False(t, rm.sinces[1].IsZero())
	})
}

func TestNewerLocalReminderWins(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	old := time.Now().Add(-time.Hour)
	rm := &fakeRemote{reminders: []remote.Reminder{{ID: "r-1", Title: "stale", UpdatedAt: old}}}
	s := New(st, rm, &recorder{})
	ctx := context.Background()

	require.NoError(t, st.UpsertReminder(ctx, &store.Reminder{ID: "r-1", Title: "fresh", UpdatedAt: time.Now()}))
	require.NoError(t, s.SyncCategory(ctx, events.CategoryReminders))

	got, err := st.GetReminder(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.Title)
}

func TestSyncNotificationsAnnouncesNewOnes(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	rm := &fakeRemote{notifications: []remote.Notification{{ID: "n-1", Title: "Hello", CreatedAt: time.Now()}}}
	rec := &recorder{}
	s := New(st, rm, rec)
	ctx := context.Background()

	require.NoError(t, s.SyncCategory(ctx, events.CategoryNotifications))
	require.NoError(t, s.SyncCategory(ctx, events.CategoryNotifications))

	assert.Equal(t, []events.Kind{events.KindNotificationReceived}, rec.kinds())

	recs, err := st.SyncRecords(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, events.CategoryNotifications, recs[0].Category)
}

func TestSyncAllRecordsFailures(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	rm := &fakeRemote{fetchErr: errors.New("offline")}
	s := New(st, rm, &recorder{})
	ctx := context.Background()

	err := s.SyncAll(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offline")

	recs, err := st.SyncRecords(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, rec := range recs {
		assert.Equal(t, "offline", rec.LastError)
	}

	require.Error(t, s.SyncCategory(ctx, "weather"))
}

func TestProbeNotifications(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	rm := &fakeRemote{notifications: []remote.Notification{{ID: "n-1", Title: "One"}}}
	s := New(st, rm, &recorder{})
	ctx := context.Background()

	found, err := s.ProbeNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "n-1", found[0].ID)

	t.Run("returns local results when the server fails", func(t *testing.T) {
		rm.mu.Lock()
		rm.fetchErr = errors.New("offline")
		rm.mu.Unlock()

		found, err := s.ProbeNotifications(ctx)
		require.Error(t, err)
		assert.Len(t, found, 1)
	})

	t.Run("acknowledged notifications are no longer pending", func(t *testing.T) {
		require.NoError(t, s.Acknowledge(ctx, "n-1"))
		assert.Equal(t, []string{"n-1"}, rm.acked)

		found, _ := s.ProbeNotifications(ctx)
		assert.Empty(t, found)
	})
}

func TestAcknowledgeIgnoresUnknownIDs(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	rm := &fakeRemote{ackErr: &remote.HTTPError{StatusCode: 404, Status: "404 Not Found"}}
	s := New(st, rm, &recorder{})

	require.NoError(t, s.Acknowledge(context.Background(), "ghost"))

	rm.ackErr = errors.New("boom")
	require.Error(t, s.Acknowledge(context.Background(), "ghost"))
}

func TestLocalOnly(t *testing.T) {
	t.Parallel()

	s := New(newStore(t), nil, &recorder{})
	require.NoError(t, s.SyncAll(context.Background()))
	found, err := s.ProbeNotifications(context.Background())
	require.NoError(t, err)
	assert.Empty(t, found)
}
