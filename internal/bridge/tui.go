package bridge

import (
	"context"
	"sync"

	tea "charm.land/bubbletea/v2"

	"github.com/guilhermegouw/cadence/internal/debug"
	"github.com/guilhermegouw/cadence/internal/events"
	"github.com/guilhermegouw/cadence/internal/pubsub"
)

// Sender is the part of *tea.Program the bridge uses.
type Sender interface {
	Send(msg tea.Msg)
}

// TUIBridge forwards bus events to a tea.Program.
type TUIBridge struct { //nolint:govet // fieldalignment: preserving logical field order
	bus     *pubsub.Bus
	program Sender

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.RWMutex
	kinds map[events.Kind]bool
}

// TUIBridgeOption configures the TUIBridge.
type TUIBridgeOption func(*TUIBridge)

// WithKinds only forwards events of the listed kinds.
func WithKinds(kinds ...events.Kind) TUIBridgeOption {
	return func(b *TUIBridge) {
		b.kinds = toSet(kinds)
	}
}

// NewTUIBridge creates a new TUI bridge.
func NewTUIBridge(bus *pubsub.Bus, program Sender, opts ...TUIBridgeOption) *TUIBridge {
	b := &TUIBridge{
		bus:     bus,
		program: program,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Start begins forwarding events to the TUI.
// Call Stop() to gracefully shut down.
func (b *TUIBridge) Start(ctx context.Context) {
	b.ctx, b.cancel = context.WithCancel(ctx)

	b.wg.Add(1)
	go b.forward(b.bus.Stream(b.ctx))

	debug.Event("bridge", "start", "TUI bridge started")
}

// Stop gracefully shuts down the bridge.
func (b *TUIBridge) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
	debug.Event("bridge", "stop", "TUI bridge stopped")
}

func (b *TUIBridge) forward(stream <-chan pubsub.Envelope[events.Event]) {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			return
		case env, ok := <-stream:
			if !ok {
				b.program.Send(StoppedMsg{})
				return
			}
			if !b.accepts(env.Kind) {
				continue
			}
			b.program.Send(BusEventMsg{Event: env})
		}
	}
}

func (b *TUIBridge) accepts(kind events.Kind) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.kinds) == 0 || b.kinds[kind]
}

// SetKinds updates the kind filter at runtime.
func (b *TUIBridge) SetKinds(kinds ...events.Kind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kinds = toSet(kinds)
}

// ClearKinds removes the kind filter.
func (b *TUIBridge) ClearKinds() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kinds = nil
}

func toSet(kinds []events.Kind) map[events.Kind]bool {
	if len(kinds) == 0 {
		return nil
	}
	set := make(map[events.Kind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return set
}
