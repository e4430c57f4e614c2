package tui

import (
	"context"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/guilhermegouw/cadence/internal/activity"
	"github.com/guilhermegouw/cadence/internal/deferred"
	"github.com/guilhermegouw/cadence/internal/realtime"
	"github.com/guilhermegouw/cadence/internal/scheduler"
	"github.com/guilhermegouw/cadence/internal/store"
)

type stubBackend struct{}

func (stubBackend) Tasks() []scheduler.Status {
	return nil
}

func (stubBackend) Channel() realtime.Status {
	return realtime.Status{}
}

func (stubBackend) Deferred() deferred.Status {
	return deferred.Status{}
}

func (stubBackend) SendMessage(string) error {
	return nil
}

func (stubBackend) SyncNow(context.Context) bool {
	return true
}

func (stubBackend) Reconnect(context.Context) {}

func (stubBackend) Reminders(context.Context) ([]store.Reminder, error) {
	return nil, nil
}

func (stubBackend) CreateReminder(context.Context, string, time.Time) error {
	return nil
}

func (stubBackend) CompleteReminder(context.Context, string) error {
	return nil
}

func TestModelFeedsActivity(t *testing.T) {
	feed := activity.NewFeed(8)
	m := New(stubBackend{}, feed)

	m.Update(tea.KeyPressMsg{Code: 'x', Text: "x"})
	m.Update(tea.MouseWheelMsg{Button: tea.MouseWheelDown})
	m.Update(tea.BlurMsg{})

	want := []activity.Signal{activity.SignalKeyboard, activity.SignalScroll}
	for _, w := range want {
		select {
		case got := <-feed.Signals():
			if got != w {
				t.Errorf("signal = %q, want %q", got, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for %q", w)
		}
	}

	select {
	case visible := <-feed.Visibility():
		if visible {
			t.Error("expected hidden after blur")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for visibility")
	}
}

func TestModelQuit(t *testing.T) {
	t.Run("q quits when not typing", func(t *testing.T) {
		m := New(stubBackend{}, nil)
		_, cmd := m.Update(tea.KeyPressMsg{Code: 'q', Text: "q"})
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected QuitMsg")
		}
	})

	t.Run("q is typed while the input has focus", func(t *testing.T) {
		m := New(stubBackend{}, nil)
		m.Update(tea.KeyPressMsg{Code: 'i', Text: "i"})
		_, cmd := m.Update(tea.KeyPressMsg{Code: 'q', Text: "q"})
		if cmd != nil {
			if _, ok := cmd().(tea.QuitMsg); ok {
				t.Error("q should not quit while typing")
			}
		}
	})
}

func TestViewBeforeResize(t *testing.T) {
	m := New(stubBackend{}, nil)
	v := m.View()
	if v.Content != "Loading..." {
		t.Errorf("content = %q", v.Content)
	}
	if !v.AltScreen || !v.ReportFocus {
		t.Error("expected alt screen with focus reporting")
	}
}
