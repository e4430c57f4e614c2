// Package store persists reminders, notifications and sync bookkeeping in
// the local SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/guilhermegouw/cadence/internal/db"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Reminder is a user reminder mirrored from the remote store.
type Reminder struct {
	DueAt     time.Time `json:"dueAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	SyncedAt  time.Time `json:"-"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Notes     string    `json:"notes,omitempty"`
	Done      bool      `json:"done"`
}

// Dirty reports whether the reminder changed locally since its last sync.
func (r Reminder) Dirty() bool {
	return r.SyncedAt.IsZero() || r.UpdatedAt.After(r.SyncedAt)
}

// Notification is a message addressed to the user.
type Notification struct {
	ReceivedAt     time.Time
	AcknowledgedAt time.Time
	ID             string
	Title          string
	Body           string
	Source         string
}

// Acknowledged reports whether the notification was handled.
func (n Notification) Acknowledged() bool {
	return !n.AcknowledgedAt.IsZero()
}

// SyncRecord is the outcome of the last sync of a category.
type SyncRecord struct {
	LastSynced time.Time
	Category   string
	LastError  string
}

// Counts summarizes the store contents.
type Counts struct {
	Reminders            int
	OpenReminders        int
	PendingNotifications int
}

// Store reads and writes the cadence tables.
type Store struct {
	db *db.DB
}

// New creates a store over an open database.
func New(database *db.DB) *Store {
	return &Store{db: database}
}

// UpsertReminder inserts or replaces a reminder. An empty ID gets a new
// UUID and a zero UpdatedAt is stamped with the current time.
func (s *Store) UpsertReminder(ctx context.Context, r *Reminder) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reminders (id, title, notes, due_at, done, updated_at, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			notes = excluded.notes,
			due_at = excluded.due_at,
			done = excluded.done,
			updated_at = excluded.updated_at,
			synced_at = excluded.synced_at`,
		r.ID, r.Title, r.Notes, r.DueAt.UnixMilli(), boolInt(r.Done), r.UpdatedAt.UnixMilli(), nullTime(r.SyncedAt))
	if err != nil {
		return fmt.Errorf("upserting reminder: %w", err)
	}
	return nil
}

// GetReminder returns one reminder.
func (s *Store) GetReminder(ctx context.Context, id string) (Reminder, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, notes, due_at, done, updated_at, synced_at
		FROM reminders WHERE id = ?`, id)

	r, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Reminder{}, ErrNotFound
	}
	if err != nil {
		return Reminder{}, fmt.Errorf("getting reminder: %w", err)
	}
	return r, nil
}

// ListReminders returns every reminder ordered by due time.
func (s *Store) ListReminders(ctx context.Context) ([]Reminder, error) {
	return s.queryReminders(ctx, `
		SELECT id, title, notes, due_at, done, updated_at, synced_at
		FROM reminders ORDER BY due_at, id`)
}

// DirtyReminders returns reminders changed locally since their last sync.
func (s *Store) DirtyReminders(ctx context.Context) ([]Reminder, error) {
	return s.queryReminders(ctx, `
		SELECT id, title, notes, due_at, done, updated_at, synced_at
		FROM reminders
		WHERE synced_at IS NULL OR updated_at > synced_at
		ORDER BY updated_at, id`)
}

// DueReminders returns open reminders due before the given time.
func (s *Store) DueReminders(ctx context.Context, before time.Time) ([]Reminder, error) {
	return s.queryReminders(ctx, `
		SELECT id, title, notes, due_at, done, updated_at, synced_at
		FROM reminders
		WHERE done = 0 AND due_at <= ?
		ORDER BY due_at, id`, before.UnixMilli())
}

// MarkReminderSynced records that the reminder matches the remote copy.
func (s *Store) MarkReminderSynced(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE reminders SET synced_at = ? WHERE id = ?`, at.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("marking reminder synced: %w", err)
	}
	return requireRow(res)
}

func (s *Store) queryReminders(ctx context.Context, query string, args ...any) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing reminders: %w", err)
	}
	defer rows.Close()

	var out []Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reminder: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing reminders: %w", err)
	}
	return out, nil
}

// InsertNotification stores n unless a notification with the same ID
// exists. It reports whether a row was inserted.
func (s *Store) InsertNotification(ctx context.Context, n Notification) (bool, error) {
	if n.ReceivedAt.IsZero() {
		n.ReceivedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO notifications (id, title, body, source, received_at, acknowledged_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.Title, n.Body, n.Source, n.ReceivedAt.UnixMilli(), nullTime(n.AcknowledgedAt))
	if err != nil {
		return false, fmt.Errorf("inserting notification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting notification: %w", err)
	}
	return affected > 0, nil
}

// PendingNotifications returns unacknowledged notifications, oldest first.
func (s *Store) PendingNotifications(ctx context.Context) ([]Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, body, source, received_at, acknowledged_at
		FROM notifications
		WHERE acknowledged_at IS NULL
		ORDER BY received_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var (
			n          Notification
			receivedAt int64
			ackedAt    sql.NullInt64
		)
		if err := rows.Scan(&n.ID, &n.Title, &n.Body, &n.Source, &receivedAt, &ackedAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		n.ReceivedAt = time.UnixMilli(receivedAt)
		n.AcknowledgedAt = fromNull(ackedAt)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return out, nil
}

// Acknowledge marks a notification handled. Acknowledging twice keeps the
// first timestamp.
func (s *Store) Acknowledge(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET acknowledged_at = COALESCE(acknowledged_at, ?) WHERE id = ?`,
		at.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("acknowledging notification: %w", err)
	}
	return requireRow(res)
}

// RecordSync stores the outcome of a category sync.
func (s *Store) RecordSync(ctx context.Context, category string, at time.Time, syncErr error) error {
	msg := ""
	if syncErr != nil {
		msg = syncErr.Error()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (category, last_synced, last_error) VALUES (?, ?, ?)
		ON CONFLICT(category) DO UPDATE SET last_synced = excluded.last_synced, last_error = excluded.last_error`,
		category, at.UnixMilli(), msg)
	if err != nil {
		return fmt.Errorf("recording sync: %w", err)
	}
	return nil
}

// SyncRecords returns the last sync outcome per category.
func (s *Store) SyncRecords(ctx context.Context) ([]SyncRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, last_synced, last_error FROM sync_state ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("listing sync state: %w", err)
	}
	defer rows.Close()

	var out []SyncRecord
	for rows.Next() {
		var (
			rec  SyncRecord
			last int64
		)
		if err := rows.Scan(&rec.Category, &last, &rec.LastError); err != nil {
			return nil, fmt.Errorf("scanning sync state: %w", err)
		}
		rec.LastSynced = time.UnixMilli(last)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Counts returns row counts for the status views.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM reminders),
			(SELECT COUNT(*) FROM reminders WHERE done = 0),
			(SELECT COUNT(*) FROM notifications WHERE acknowledged_at IS NULL)`).
		Scan(&c.Reminders, &c.OpenReminders, &c.PendingNotifications)
	if err != nil {
		return Counts{}, fmt.Errorf("counting rows: %w", err)
	}
	return c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReminder(row scanner) (Reminder, error) {
	var (
		r                Reminder
		dueAt, updatedAt int64
		done             int64
		syncedAt         sql.NullInt64
	)
	if err := row.Scan(&r.ID, &r.Title, &r.Notes, &dueAt, &done, &updatedAt, &syncedAt); err != nil {
		return Reminder{}, err
	}
	r.DueAt = time.UnixMilli(dueAt)
	r.UpdatedAt = time.UnixMilli(updatedAt)
	r.SyncedAt = fromNull(syncedAt)
	r.Done = done != 0
	return r, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func nullTime(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromNull(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.UnixMilli(v.Int64)
}
