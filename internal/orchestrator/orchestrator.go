// Package orchestrator wires cadence's domain rules onto the event bus,
// scheduler, realtime channel and deferred-sync registrar.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/guilhermegouw/cadence/internal/debug"
	"github.com/guilhermegouw/cadence/internal/deferred"
	"github.com/guilhermegouw/cadence/internal/events"
	"github.com/guilhermegouw/cadence/internal/pubsub"
	"github.com/guilhermegouw/cadence/internal/scheduler"
)

// Task IDs registered by Initialize.
const (
	TaskNotificationProbe = "notification-probe"
	TaskFullSync          = "full-sync"
	TaskHealthCheck       = "health-check"
	TaskNightlySync       = "nightly-sync"
)

// Config holds the orchestrator cadences.
type Config struct {
	ProbeInterval    time.Duration
	FullSyncInterval time.Duration
	HealthInterval   time.Duration
	HealthGrace      time.Duration
	DebounceWindow   time.Duration
	ProcessedCap     int
	// NightlySchedule is an optional cron expression for an extra full sync.
	NightlySchedule string
}

// DefaultConfig returns the standard cadences.
func DefaultConfig() Config {
	return Config{
		ProbeInterval:    30 * time.Second,
		FullSyncInterval: 2 * time.Minute,
		HealthInterval:   5 * time.Minute,
		HealthGrace:      time.Minute,
		DebounceWindow:   time.Second,
		ProcessedCap:     DefaultProcessedCap,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = def.ProbeInterval
	}
	if c.FullSyncInterval <= 0 {
		c.FullSyncInterval = def.FullSyncInterval
	}
	if c.HealthInterval <= 0 {
		c.HealthInterval = def.HealthInterval
	}
	if c.HealthGrace < 0 {
		c.HealthGrace = def.HealthGrace
	}
	if c.DebounceWindow < 0 {
		c.DebounceWindow = def.DebounceWindow
	}
	if c.ProcessedCap <= 0 {
		c.ProcessedCap = def.ProcessedCap
	}
	return c
}

// Deps are the collaborators of an Orchestrator. Bus and Scheduler are
// required; the rest fall back to no-op implementations.
type Deps struct {
	Bus          *pubsub.Bus
	Scheduler    Scheduler
	Channel      Channel
	Deferred     DeferredSync
	Syncer       Syncer
	Acknowledger Acknowledger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// Orchestrator applies the domain rules: debounced sync triggers,
// idempotent notification handling and a periodic health check.
type Orchestrator struct { //nolint:govet // fieldalignment: preserving logical field order
	bus       *pubsub.Bus
	sched     Scheduler
	channel   Channel
	deferred  DeferredSync
	syncer    Syncer
	acker     Acknowledger
	cfg       Config
	now       func() time.Time
	processed *ProcessedSet

	mu          sync.Mutex
	ctx         context.Context //nolint:containedctx // parent of background syncs
	lastTrigger map[string]time.Time
	visible     bool
	initialized bool
	closed      bool
	unsubs      []func()
	unregs      []func()

	flight singleflight.Group
	wg     sync.WaitGroup
}

// New creates an orchestrator. Nothing happens until Initialize.
func New(deps Deps, cfg Config, opts ...Option) *Orchestrator {
	cfg = cfg.withDefaults()
	o := &Orchestrator{
		bus:         deps.Bus,
		sched:       deps.Scheduler,
		channel:     deps.Channel,
		deferred:    deps.Deferred,
		syncer:      deps.Syncer,
		acker:       deps.Acknowledger,
		cfg:         cfg,
		now:         time.Now,
		processed:   NewProcessedSet(cfg.ProcessedCap),
		lastTrigger: make(map[string]time.Time),
		visible:     true,
		ctx:         context.Background(),
	}
	if o.channel == nil {
		o.channel = nopChannel{}
	}
	if o.deferred == nil {
		o.deferred = deferred.New(nil, nil)
	}
	if o.syncer == nil {
		o.syncer = nopSyncer{}
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Initialize registers the periodic tasks, subscribes to domain events,
// starts the scheduler, connects the channel and registers deferred syncs.
// Calling it twice is a no-op.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.mu.Lock()
	if o.initialized {
		o.mu.Unlock()
		return nil
	}
	o.ctx = ctx
	o.closed = false
	o.mu.Unlock()

	if err := o.registerTasks(); err != nil {
		o.unregisterTasks()
		return err
	}
	o.subscribe()

	o.mu.Lock()
	o.initialized = true
	o.mu.Unlock()

	o.sched.Start(ctx)
	o.channel.Connect(ctx)
	o.deferred.RegisterFullSync(ctx)
	o.deferred.RequestNotificationPermission(ctx)

	debug.Event("orchestrator", "initialized", "")
	return nil
}

func (o *Orchestrator) registerTasks() error {
	tasks := []scheduler.Task{
		{ID: TaskNotificationProbe, Name: "Notification probe", Interval: o.cfg.ProbeInterval, Enabled: true, Callback: o.probe},
		{ID: TaskFullSync, Name: "Full sync", Interval: o.cfg.FullSyncInterval, Enabled: true, Callback: o.fullSync},
		{ID: TaskHealthCheck, Name: "Health check", Interval: o.cfg.HealthInterval, Enabled: true, Callback: o.healthTask},
	}
	if o.cfg.NightlySchedule != "" {
		tasks = append(tasks, scheduler.Task{
			ID: TaskNightlySync, Name: "Nightly sync", Schedule: o.cfg.NightlySchedule, Enabled: true, Callback: o.nightly,
		})
	}

	for _, task := range tasks {
		unregister, err := o.sched.Register(task)
		if err != nil {
			return fmt.Errorf("registering %s: %w", task.ID, err)
		}
		o.mu.Lock()
		o.unregs = append(o.unregs, unregister)
		o.mu.Unlock()
	}
	return nil
}

func (o *Orchestrator) subscribe() {
	unsubs := []func(){
		pubsub.On(o.bus, events.KindReminderCreated, o.onReminder),
		pubsub.On(o.bus, events.KindReminderUpdated, o.onReminder),
		pubsub.On(o.bus, events.KindNotificationReceived, o.onNotification),
		pubsub.On(o.bus, events.KindUserActive, o.onUserActive),
		pubsub.On(o.bus, events.KindVisibilityChanged, o.onVisibility),
		pubsub.On(o.bus, events.KindSyncStart, o.onSyncStart),
		pubsub.On(o.bus, events.KindReconnectExhausted, o.onReconnectExhausted),
	}

	o.mu.Lock()
	o.unsubs = append(o.unsubs, unsubs...)
	o.mu.Unlock()
}

// Shutdown undoes Initialize: it unsubscribes, unregisters the tasks,
// disconnects the channel and waits for background syncs or ctx.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.initialized = false
	unsubs := o.unsubs
	o.unsubs = nil
	o.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	o.unregisterTasks()
	o.channel.Disconnect()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for background syncs: %w", ctx.Err())
	}
}

func (o *Orchestrator) unregisterTasks() {
	o.mu.Lock()
	unregs := o.unregs
	o.unregs = nil
	o.mu.Unlock()

	for _, unregister := range unregs {
		unregister()
	}
}

// TriggerSync emits sync-start for category unless the previous accepted
// trigger for the same category is younger than the debounce window. It
// reports whether the event was emitted.
func (o *Orchestrator) TriggerSync(ctx context.Context, category string) bool {
	o.mu.Lock()
	now := o.now()
	if last, ok := o.lastTrigger[category]; ok && now.Sub(last) < o.cfg.DebounceWindow {
		o.mu.Unlock()
		return false
	}
	o.lastTrigger[category] = now
	o.mu.Unlock()

	o.bus.Emit(ctx, events.NewSyncStartEvent(category))
	return true
}

// HandleNotification processes a notification once: it is remembered,
// acknowledged and presented with dialog-open. Repeats are ignored. It
// reports whether the notification was new.
func (o *Orchestrator) HandleNotification(ctx context.Context, n events.NotificationReceivedEvent) bool {
	if n.ID == "" || !o.processed.Add(n.ID) {
		return false
	}

	if o.acker != nil {
		if err := o.acker.Acknowledge(ctx, n.ID); err != nil {
			debug.Warn("orchestrator", "acknowledge failed", "notification", n.ID, "error", err)
		}
	}

	o.bus.Emit(ctx, events.NewDialogOpenEvent(n.ID, n.Title, n.Body))

	o.mu.Lock()
	visible := o.visible
	o.mu.Unlock()
	if !visible {
		o.deferred.Notify(ctx, n.Title, n.Body)
	}
	return true
}

// Processed exposes the set of handled notification IDs.
func (o *Orchestrator) Processed() *ProcessedSet {
	return o.processed
}

// StaleTask is an enabled task that missed its cadence.
type StaleTask struct {
	LastRun time.Time
	ID      string
	Name    string
	Overdue time.Duration
}

// HealthReport is the outcome of a health check.
type HealthReport struct {
	Stale   []StaleTask
	Trimmed int
}

// HealthCheck reports enabled interval tasks whose last run is older than
// their interval plus the grace period and trims the processed set. It
// only observes; nothing is restarted.
func (o *Orchestrator) HealthCheck(ctx context.Context) HealthReport {
	now := o.now()
	var report HealthReport

	for _, st := range o.sched.Statuses() {
		// Cron tasks have no fixed interval to compare against.
		if !st.Enabled || st.LastRun.IsZero() || st.Schedule != "" {
			continue
		}
		overdue := now.Sub(st.LastRun) - (st.Interval + o.cfg.HealthGrace)
		if overdue <= 0 {
			continue
		}
		report.Stale = append(report.Stale, StaleTask{ID: st.ID, Name: st.Name, LastRun: st.LastRun, Overdue: overdue})
		debug.Warn("orchestrator", "task is stale", "task", st.ID, "last_run", st.LastRun, "overdue", overdue)
		o.bus.Emit(ctx, events.NewHealthWarningEvent(st.ID, st.Name, overdue))
	}

	report.Trimmed = o.processed.Trim()
	return report
}

func (o *Orchestrator) healthTask(ctx context.Context) error {
	o.HealthCheck(ctx)
	return nil
}

func (o *Orchestrator) probe(ctx context.Context) error {
	// Whatever was found is still delivered when the probe partly failed.
	found, err := o.syncer.ProbeNotifications(ctx)
	for _, n := range found {
		o.bus.Emit(ctx, n)
	}
	if err != nil {
		return fmt.Errorf("probing notifications: %w", err)
	}
	return nil
}

// fullSync shares the "all" flight with sync-start requests so a scheduled
// full sync and a triggered one never run side by side.
func (o *Orchestrator) fullSync(ctx context.Context) error {
	_, err, _ := o.flight.Do(events.CategoryAll, func() (any, error) {
		return nil, o.syncer.SyncAll(ctx)
	})
	return err
}

func (o *Orchestrator) nightly(ctx context.Context) error {
	if err := o.fullSync(ctx); err != nil {
		return err
	}
	o.deferred.RegisterAllDataSync(ctx)
	return nil
}

func (o *Orchestrator) onReminder(ctx context.Context, _ events.ReminderEvent) error {
	o.TriggerSync(ctx, events.CategoryReminders)
	o.deferred.RegisterReminderSync(ctx)
	return nil
}

func (o *Orchestrator) onNotification(ctx context.Context, n events.NotificationReceivedEvent) error {
	o.HandleNotification(ctx, n)
	o.TriggerSync(ctx, events.CategoryNotifications)
	return nil
}

func (o *Orchestrator) onUserActive(ctx context.Context, _ events.ActivityEvent) error {
	o.catchUp(ctx)
	return nil
}

func (o *Orchestrator) onVisibility(ctx context.Context, ev events.VisibilityEvent) error {
	o.mu.Lock()
	o.visible = ev.Visible
	o.mu.Unlock()

	if ev.Visible {
		o.catchUp(ctx)
	}
	return nil
}

// catchUp refreshes everything when the user comes back.
func (o *Orchestrator) catchUp(ctx context.Context) {
	o.TriggerSync(ctx, events.CategoryAll)
	o.sched.TriggerNow(TaskNotificationProbe)
	o.sched.TriggerNow(TaskFullSync)
	o.channel.CheckHealth(ctx)
}

func (o *Orchestrator) onReconnectExhausted(ctx context.Context, ev events.ReconnectExhaustedEvent) error {
	debug.Warn("orchestrator", "realtime channel gave up", "attempts", ev.Attempts, "error", ev.LastError)
	o.deferred.RegisterAllDataSync(ctx)
	return nil
}

// onSyncStart runs the category sync in the background. Concurrent
// requests for the same category share one run.
func (o *Orchestrator) onSyncStart(_ context.Context, ev events.SyncStartEvent) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	ctx := o.ctx
	o.wg.Add(1)
	o.mu.Unlock()

	go func() {
		defer o.wg.Done()
		_, err, _ := o.flight.Do(ev.Category, func() (any, error) {
			return nil, o.syncer.SyncCategory(ctx, ev.Category)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			debug.Warn("orchestrator", "sync failed", "category", ev.Category, "error", err)
		}
	}()
	return nil
}
