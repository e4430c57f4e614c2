// Package scheduler runs named periodic tasks on their own timers.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	// ErrInvalidTask is returned for a task without a callback or cadence.
	ErrInvalidTask = errors.New("invalid task")
	// ErrDuplicateTask is returned when a task ID is already registered.
	ErrDuplicateTask = errors.New("task already registered")
	// ErrTaskPanic wraps a panic recovered from a callback.
	ErrTaskPanic = errors.New("task panicked")
)

// Callback performs one run of a task. A returned error or a panic marks the
// run as failed; the task keeps its cadence either way.
type Callback func(ctx context.Context) error

// Task describes a periodic job. Either Interval or Schedule must be set;
// Schedule is a standard five-field cron expression and wins when both are.
type Task struct { //nolint:govet // fieldalignment: preserving logical field order
	ID       string
	Name     string
	Interval time.Duration
	Schedule string
	Enabled  bool
	Callback Callback

	// LastRun seeds the time of the previous run so the first delay only
	// covers the remainder of the interval.
	LastRun time.Time
}

// Status is a snapshot of a registered task.
type Status struct { //nolint:govet // fieldalignment: preserving logical field order
	ID        string
	Name      string
	Interval  time.Duration
	Schedule  string
	Enabled   bool
	Running   bool
	LastRun   time.Time // zero until the first run
	NextRun   time.Time // zero when no timer is armed
	Runs      int
	Failures  int
	LastError string
}

// HasRun reports whether the task completed at least one run.
func (s Status) HasRun() bool {
	return !s.LastRun.IsZero()
}

func (t Task) validate() (cron.Schedule, error) {
	if t.Callback == nil {
		return nil, fmt.Errorf("%w: missing callback", ErrInvalidTask)
	}
	if t.Schedule != "" {
		sched, err := cron.ParseStandard(t.Schedule)
		if err != nil {
			return nil, fmt.Errorf("%w: schedule %q: %w", ErrInvalidTask, t.Schedule, err)
		}
		return sched, nil
	}
	if t.Interval <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive", ErrInvalidTask)
	}
	return nil, nil
}
