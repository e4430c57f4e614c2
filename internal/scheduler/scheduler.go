package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/guilhermegouw/cadence/internal/debug"
	"github.com/guilhermegouw/cadence/internal/events"
	"github.com/guilhermegouw/cadence/internal/pubsub"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

type entry struct { //nolint:govet // fieldalignment: preserving logical field order
	task  Task
	sched cron.Schedule

	lastRun time.Time
	nextRun time.Time
	timer   *time.Timer
	gen     uint64

	running bool
	rerun   bool
	removed bool

	runs     int
	failures int
	lastErr  string
}

// Scheduler owns one timer per enabled task. A task never overlaps itself:
// its next timer is armed only after the current run returns.
type Scheduler struct { //nolint:govet // fieldalignment: preserving logical field order
	emitter pubsub.Emitter
	now     func() time.Time

	mu      sync.Mutex
	tasks   map[string]*entry
	order   []string
	running bool
	ctx     context.Context //nolint:containedctx // handed to callbacks fired by timers

	inflight sync.WaitGroup
}

// New creates a stopped scheduler that reports runs to emitter.
func New(emitter pubsub.Emitter, opts ...Option) *Scheduler {
	s := &Scheduler{
		emitter: emitter,
		now:     time.Now,
		tasks:   make(map[string]*entry),
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a task and returns a function that removes it. If the
// scheduler is running and the task enabled, its timer is armed right away.
func (s *Scheduler) Register(task Task) (func(), error) {
	sched, err := task.validate()
	if err != nil {
		return nil, err
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Name == "" {
		task.Name = task.ID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateTask, task.ID)
	}

	e := &entry{task: task, sched: sched, lastRun: task.LastRun}
	s.tasks[task.ID] = e
	s.order = append(s.order, task.ID)

	if s.running && task.Enabled {
		s.armLocked(e, s.initialDelayLocked(e))
	}

	return func() { s.unregisterEntry(e) }, nil
}

// Unregister removes a task, cancelling its timer. A run in progress
// finishes but is not rescheduled.
func (s *Scheduler) Unregister(id string) bool {
	s.mu.Lock()
	e, ok := s.tasks[id]
	s.mu.Unlock()
	if !ok {
		return false
	}
	return s.unregisterEntry(e)
}

func (s *Scheduler) unregisterEntry(e *entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.removed || s.tasks[e.task.ID] != e {
		return false
	}
	e.removed = true
	s.stopTimerLocked(e)
	delete(s.tasks, e.task.ID)
	for i, id := range s.order {
		if id == e.task.ID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Start arms every enabled task. Callbacks receive ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.ctx = ctx

	for _, id := range s.order {
		e := s.tasks[id]
		// A run still in flight re-arms itself on completion.
		if e.task.Enabled && !e.running {
			s.armLocked(e, s.initialDelayLocked(e))
		}
	}
	debug.Event("scheduler", "start", fmt.Sprintf("%d tasks", len(s.order)))
}

// Stop cancels every pending timer without waiting for runs in progress.
// Nothing fires again until Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	for _, e := range s.tasks {
		s.stopTimerLocked(e)
		e.rerun = false
	}
	debug.Event("scheduler", "stop", "")
}

// Shutdown stops the scheduler and waits for runs in progress, or for ctx.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.Stop()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running tasks: %w", ctx.Err())
	}
}

// IsRunning reports whether Start was called without a matching Stop.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// TriggerNow forgets the last run and fires the task as soon as possible.
// If the task is running, the extra run happens right after it returns.
func (s *Scheduler) TriggerNow(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tasks[id]
	if !ok {
		return false
	}

	e.lastRun = time.Time{}
	if e.running {
		e.rerun = true
		return true
	}
	if s.running && e.task.Enabled {
		s.armLocked(e, 0)
	}
	return true
}

// SetEnabled turns a task on or off. Disabling cancels its timer.
func (s *Scheduler) SetEnabled(id string, enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tasks[id]
	if !ok {
		return false
	}

	e.task.Enabled = enabled
	if !enabled {
		s.stopTimerLocked(e)
		e.rerun = false
		return true
	}
	if s.running && !e.running && e.timer == nil {
		s.armLocked(e, s.initialDelayLocked(e))
	}
	return true
}

// Status returns a snapshot of one task.
func (s *Scheduler) Status(id string) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tasks[id]
	if !ok {
		return Status{}, false
	}
	return e.status(), true
}

// Statuses returns snapshots of every task in registration order.
func (s *Scheduler) Statuses() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Status, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tasks[id].status())
	}
	return out
}

func (e *entry) status() Status {
	return Status{
		ID:        e.task.ID,
		Name:      e.task.Name,
		Interval:  e.task.Interval,
		Schedule:  e.task.Schedule,
		Enabled:   e.task.Enabled,
		Running:   e.running,
		LastRun:   e.lastRun,
		NextRun:   e.nextRun,
		Runs:      e.runs,
		Failures:  e.failures,
		LastError: e.lastErr,
	}
}

func (s *Scheduler) initialDelayLocked(e *entry) time.Duration {
	now := s.now()
	if e.sched != nil {
		return e.sched.Next(now).Sub(now)
	}
	if e.lastRun.IsZero() {
		return 0
	}
	return max(0, e.task.Interval-now.Sub(e.lastRun))
}

func (s *Scheduler) nextDelayLocked(e *entry) time.Duration {
	if e.sched != nil {
		now := s.now()
		return e.sched.Next(now).Sub(now)
	}
	return e.task.Interval
}

// armLocked replaces the task's timer. The generation counter makes a timer
// that already fired before Stop could cancel it a no-op.
func (s *Scheduler) armLocked(e *entry, d time.Duration) {
	s.stopTimerLocked(e)
	gen := e.gen
	e.nextRun = s.now().Add(d)
	e.timer = time.AfterFunc(d, func() { s.fire(e, gen) })
}

func (s *Scheduler) stopTimerLocked(e *entry) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
	e.nextRun = time.Time{}
}

func (s *Scheduler) fire(e *entry, gen uint64) {
	s.mu.Lock()
	if gen != e.gen || !s.running || e.removed || !e.task.Enabled || e.running {
		s.mu.Unlock()
		return
	}
	e.timer = nil
	e.nextRun = time.Time{}
	e.running = true
	ctx := s.ctx
	task := e.task
	s.inflight.Add(1)
	s.mu.Unlock()

	defer s.inflight.Done()

	s.emitter.Emit(ctx, events.NewTaskStartEvent(task.ID, task.Name))

	started := s.now()
	err := invoke(ctx, task.Callback)
	finished := s.now()

	s.mu.Lock()
	e.lastRun = finished
	e.running = false
	e.runs++
	if err != nil {
		e.failures++
		e.lastErr = err.Error()
	} else {
		e.lastErr = ""
	}
	s.mu.Unlock()

	if err != nil {
		debug.Error("scheduler", err, task.Name)
		s.emitter.Emit(ctx, events.NewTaskErrorEvent(task.ID, task.Name, finished.Sub(started), err))
	} else {
		s.emitter.Emit(ctx, events.NewTaskCompleteEvent(task.ID, task.Name, finished.Sub(started)))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A TriggerNow that landed after the run finished already armed a timer.
	if !s.running || e.removed || !e.task.Enabled || e.running || e.timer != nil {
		return
	}
	d := s.nextDelayLocked(e)
	if e.rerun {
		d = 0
		e.rerun = false
	}
	s.armLocked(e, d)
}

func invoke(ctx context.Context, cb Callback) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
		}
	}()
	return cb(ctx)
}
