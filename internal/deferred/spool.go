package deferred

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockFileName   = ".lock"
	intentSuffix   = ".json"
	lockRetryDelay = 25 * time.Millisecond
)

// Intent is a pending deferred sync in the spool.
type Intent struct {
	RegisteredAt time.Time `json:"registeredAt"`
	Tag          string    `json:"tag"`
	Count        int       `json:"count"`
}

// Spool is a Capability backed by a directory of intent files. Repeated
// registrations of a tag coalesce into one intent. `cadence sync --deferred`
// drains it outside the interactive session. A file lock serializes access
// between processes.
type Spool struct {
	dir     string
	enabled bool
}

// NewSpool creates a spool in dir. A disabled spool reports itself
// supported but rejects registrations with ErrCapabilityDisabled.
func NewSpool(dir string, enabled bool) *Spool {
	return &Spool{dir: dir, enabled: enabled}
}

// Dir returns the spool directory.
func (s *Spool) Dir() string { return s.dir }

// Supported implements Capability.
func (s *Spool) Supported() bool {
	if s.dir == "" {
		return false
	}
	return os.MkdirAll(s.dir, 0o750) == nil
}

// Register implements Capability.
func (s *Spool) Register(ctx context.Context, tag string) error {
	if !s.enabled {
		return ErrCapabilityDisabled
	}
	if !validTag(tag) {
		return fmt.Errorf("unknown tag %q", tag)
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	path := s.intentPath(tag)
	intent := Intent{Tag: tag}
	if data, err := os.ReadFile(path); err == nil { //nolint:gosec // path built from a known tag
		_ = json.Unmarshal(data, &intent)
	}
	intent.Count++
	intent.RegisteredAt = time.Now().UTC()

	data, err := json.MarshalIndent(intent, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding intent: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing intent: %w", err)
	}
	return nil
}

// Pending lists spooled intents ordered by tag.
func (s *Spool) Pending() ([]Intent, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading spool: %w", err)
	}

	var intents []Intent
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, intentSuffix) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading intent %s: %w", name, err)
		}
		var intent Intent
		if err := json.Unmarshal(data, &intent); err != nil || !validTag(intent.Tag) {
			continue
		}
		intents = append(intents, intent)
	}

	slices.SortFunc(intents, func(a, b Intent) int { return strings.Compare(a.Tag, b.Tag) })
	return intents, nil
}

// Drain runs fn for every pending intent and removes the ones that
// succeed. It returns how many were drained and the joined failures.
func (s *Spool) Drain(ctx context.Context, fn func(context.Context, Intent) error) (int, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	intents, err := s.Pending()
	if err != nil {
		return 0, err
	}

	var (
		drained int
		errs    []error
	)
	for _, intent := range intents {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := fn(ctx, intent); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", intent.Tag, err))
			continue
		}
		if err := os.Remove(s.intentPath(intent.Tag)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("removing %s: %w", intent.Tag, err))
			continue
		}
		drained++
	}
	return drained, errors.Join(errs...)
}

func (s *Spool) lock(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating spool: %w", err)
	}

	fl := flock.New(filepath.Join(s.dir, lockFileName))
	ok, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("locking spool: %w", err)
	}
	if !ok {
		return nil, errors.New("locking spool: lock not acquired")
	}
	return func() { _ = fl.Unlock() }, nil
}

func (s *Spool) intentPath(tag string) string {
	return filepath.Join(s.dir, tag+intentSuffix)
}

func validTag(tag string) bool {
	switch tag {
	case TagReminderSync, TagFullSync, TagAllDataSync:
		return true
	}
	return false
}
