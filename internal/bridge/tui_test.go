package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/guilhermegouw/cadence/internal/events"
	"github.com/guilhermegouw/cadence/internal/pubsub"
)

// mockProgram captures messages sent via Send().
type mockProgram struct {
	mu       sync.Mutex
	messages []tea.Msg
}

func newMockProgram() *mockProgram {
	return &mockProgram{
		messages: make([]tea.Msg, 0),
	}
}

func (m *mockProgram) Send(msg tea.Msg) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *mockProgram) Messages() []tea.Msg {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]tea.Msg, len(m.messages))
	copy(result, m.messages)
	return result
}

func waitForMessages(t *testing.T, m *mockProgram, n int) []tea.Msg {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		if msgs := m.Messages(); len(msgs) >= n {
			return msgs
		}
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for %d messages, got %d", n, len(m.Messages()))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestNewTUIBridge(t *testing.T) {
	t.Run("creates bridge with bus and program", func(t *testing.T) {
		bus := pubsub.NewBus()
		defer bus.Shutdown()

		program := newMockProgram()
		bridge := NewTUIBridge(bus, program)

		if bridge.bus != bus {
			t.Error("bus mismatch")
		}
		if bridge.program != program {
			t.Error("program mismatch")
		}
	})

	t.Run("applies kind filter option", func(t *testing.T) {
		bus := pubsub.NewBus()
		defer bus.Shutdown()

		bridge := NewTUIBridge(bus, newMockProgram(), WithKinds(events.KindDialogOpen))

		if !bridge.accepts(events.KindDialogOpen) || bridge.accepts(events.KindIdle) {
			t.Error("kind filter not applied")
		}
	})
}

func TestTUIBridgeStartStop(t *testing.T) {
	t.Run("start and stop lifecycle", func(t *testing.T) {
		bus := pubsub.NewBus()
		defer bus.Shutdown()

		bridge := NewTUIBridge(bus, newMockProgram())
		bridge.Start(context.Background())
		bridge.Stop()

		// Should be safe to stop again
		bridge.Stop()
	})

	t.Run("stop without start is safe", func(t *testing.T) {
		bus := pubsub.NewBus()
		defer bus.Shutdown()

		bridge := NewTUIBridge(bus, newMockProgram())
		bridge.Stop()
	})
}

func TestTUIBridgeForwarding(t *testing.T) {
	t.Run("forwards bus events to program", func(t *testing.T) {
		bus := pubsub.NewBus()
		defer bus.Shutdown()

		program := newMockProgram()
		bridge := NewTUIBridge(bus, program)
		bridge.Start(context.Background())
		defer bridge.Stop()

		bus.Emit(context.Background(), events.NewDialogOpenEvent("n-1", "Standup", "now"))

		msgs := waitForMessages(t, program, 1)
		msg, ok := msgs[0].(BusEventMsg)
		if !ok {
			t.Fatalf("expected BusEventMsg, got %T", msgs[0])
		}
		if msg.Kind() != events.KindDialogOpen {
			t.Errorf("Kind() = %q", msg.Kind())
		}
		dialog, ok := msg.Event.Payload.(events.DialogOpenEvent)
		if !ok || dialog.Title != "Standup" {
			t.Errorf("unexpected payload %#v", msg.Event.Payload)
		}
	})

	t.Run("filters kinds", func(t *testing.T) {
		bus := pubsub.NewBus()
		defer bus.Shutdown()

		program := newMockProgram()
		bridge := NewTUIBridge(bus, program, WithKinds(events.KindTaskStart))
		bridge.Start(context.Background())
		defer bridge.Stop()

		ctx := context.Background()
		bus.Emit(ctx, events.NewIdleEvent())
		bus.Emit(ctx, events.NewTaskStartEvent("t-1", "probe"))

		msgs := waitForMessages(t, program, 1)
		if got := msgs[0].(BusEventMsg).Kind(); got != events.KindTaskStart {
			t.Errorf("first forwarded kind = %q, want %q", got, events.KindTaskStart)
		}

		bridge.ClearKinds()
		bus.Emit(ctx, events.NewIdleEvent())
		waitForMessages(t, program, 2)
	})

	t.Run("reports a closed stream", func(t *testing.T) {
		bus := pubsub.NewBus()

		program := newMockProgram()
		bridge := NewTUIBridge(bus, program)
		bridge.Start(context.Background())

		bus.Shutdown()

		msgs := waitForMessages(t, program, 1)
		if _, ok := msgs[0].(StoppedMsg); !ok {
			t.Errorf("expected StoppedMsg, got %T", msgs[0])
		}
		bridge.Stop()
	})
}
