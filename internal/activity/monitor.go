// Package activity tracks whether the user is present and whether the
// cadence surface is visible, and reports transitions on the event bus.
package activity

import (
	"context"
	"sync"
	"time"

	"github.com/guilhermegouw/cadence/internal/events"
	"github.com/guilhermegouw/cadence/internal/pubsub"
)

// DefaultIdleThreshold is how long without input before the user is idle.
const DefaultIdleThreshold = 5 * time.Minute

// Signal names a recognized kind of user input.
type Signal string

// Recognized activity signals.
const (
	SignalPointer  Signal = "pointer"
	SignalKeyboard Signal = "keyboard"
	SignalScroll   Signal = "scroll"
	SignalTouch    Signal = "touch"
)

// Option configures a Monitor.
type Option func(*Monitor)

// WithIdleThreshold overrides DefaultIdleThreshold.
func WithIdleThreshold(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.threshold = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// Monitor turns raw input and visibility signals into active, idle,
// user-active and visibility-changed events.
type Monitor struct { //nolint:govet // fieldalignment: preserving logical field order
	emitter   pubsub.Emitter
	threshold time.Duration
	now       func() time.Time

	mu           sync.Mutex
	ctx          context.Context //nolint:containedctx // used by idle timer callbacks
	timer        *time.Timer
	gen          uint64
	started      bool
	idle         bool
	visible      bool
	lastActivity time.Time
}

// New creates a monitor. The surface starts visible and the user active;
// the idle countdown begins with Start.
func New(emitter pubsub.Emitter, opts ...Option) *Monitor {
	m := &Monitor{
		emitter:   emitter,
		threshold: DefaultIdleThreshold,
		now:       time.Now,
		ctx:       context.Background(),
		visible:   true,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lastActivity = m.now()
	return m
}

// Start arms the idle countdown. Events emitted from timers use ctx.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ctx = ctx
	m.started = true
	m.armLocked()
}

// Stop cancels the idle countdown. Later signals are ignored until Start.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.started = false
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// Run starts the monitor and forwards signals from the sources until ctx is
// done, then stops it.
func (m *Monitor) Run(ctx context.Context, input InputSource, visibility VisibilitySource) {
	m.Start(ctx)
	defer m.Stop()

	signals := input.Signals()
	shown := visibility.Visibility()
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok {
				signals = nil
				continue
			}
			m.RecordActivity(sig)
		case v, ok := <-shown:
			if !ok {
				shown = nil
				continue
			}
			m.SetVisible(v)
		}
	}
}

// RecordActivity emits active and restarts the idle countdown. Coming back
// from idle also emits user-active.
func (m *Monitor) RecordActivity(sig Signal) {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	wasIdle := m.idle
	m.idle = false
	m.lastActivity = m.now()
	m.armLocked()
	ctx := m.ctx
	m.mu.Unlock()

	m.emitter.Emit(ctx, events.NewActiveEvent(string(sig)))
	if wasIdle {
		m.emitter.Emit(ctx, events.NewUserActiveEvent(string(sig)))
	}
}

// SetVisible records the surface visibility and emits visibility-changed
// when it differs from the previous value.
func (m *Monitor) SetVisible(visible bool) {
	m.mu.Lock()
	if m.visible == visible {
		m.mu.Unlock()
		return
	}
	m.visible = visible
	ctx := m.ctx
	m.mu.Unlock()

	m.emitter.Emit(ctx, events.NewVisibilityEvent(visible))
}

// IsIdle reports whether the idle threshold elapsed since the last signal.
func (m *Monitor) IsIdle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idle
}

// Visible reports the last known surface visibility.
func (m *Monitor) Visible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visible
}

// LastActivity returns the time of the last recorded signal.
func (m *Monitor) LastActivity() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastActivity
}

// armLocked replaces the idle timer. Callers hold m.mu.
func (m *Monitor) armLocked() {
	m.gen++
	gen := m.gen
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.threshold, func() { m.expire(gen) })
}

func (m *Monitor) expire(gen uint64) {
	m.mu.Lock()
	// A newer signal re-armed the timer, or the monitor stopped.
	if gen != m.gen || !m.started || m.idle {
		m.mu.Unlock()
		return
	}
	m.idle = true
	m.timer = nil
	ctx := m.ctx
	m.mu.Unlock()

	m.emitter.Emit(ctx, events.NewIdleEvent())
}
