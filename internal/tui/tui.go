// Package tui provides the terminal dashboard for cadence.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"golang.org/x/term"

	"github.com/guilhermegouw/cadence/internal/activity"
	"github.com/guilhermegouw/cadence/internal/bridge"
	"github.com/guilhermegouw/cadence/internal/debug"
	"github.com/guilhermegouw/cadence/internal/pubsub"
	"github.com/guilhermegouw/cadence/internal/tui/page/dashboard"
	"github.com/guilhermegouw/cadence/internal/tui/styles"
)

// ErrNoTerminal is returned by Run when stdin is not a TTY.
var ErrNoTerminal = errors.New("cadence requires an interactive terminal: stdin/stdout must be connected to a TTY")

// Model is the main TUI model.
type Model struct {
	dashboard *dashboard.Model
	feed      *activity.Feed
	width     int
	height    int
	ready     bool
}

// New creates a new TUI model. Input and focus changes are pushed to feed
// when it is non-nil.
func New(backend dashboard.Backend, feed *activity.Feed) *Model {
	return &Model{
		dashboard: dashboard.New(backend),
		feed:      feed,
	}
}

// Init initializes the TUI.
func (m *Model) Init() tea.Cmd {
	return m.dashboard.Init()
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		debug.Event("tui", "WindowSize", fmt.Sprintf("width=%d height=%d", msg.Width, msg.Height))
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.dashboard.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyPressMsg:
		m.signal(activity.SignalKeyboard)
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if !m.dashboard.Typing() {
				return m, tea.Quit
			}
		}

	case tea.MouseClickMsg:
		m.signal(activity.SignalPointer)
	case tea.MouseWheelMsg:
		m.signal(activity.SignalScroll)
	case tea.MouseMotionMsg:
		// Too noisy to count as activity.

	case tea.FocusMsg:
		debug.Event("tui", "Focus", "terminal focused")
		m.setVisible(true)
	case tea.BlurMsg:
		debug.Event("tui", "Blur", "terminal blurred")
		m.setVisible(false)

	case bridge.StoppedMsg:
		debug.Event("tui", "BridgeStopped", "event stream closed")
		return m, nil
	}

	_, cmd := m.dashboard.Update(msg)
	return m, cmd
}

func (m *Model) signal(sig activity.Signal) {
	if m.feed != nil && !m.feed.Push(sig) {
		debug.Event("tui", "ActivityDropped", string(sig))
	}
}

func (m *Model) setVisible(visible bool) {
	if m.feed != nil {
		m.feed.SetVisible(visible)
	}
}

// View renders the TUI.
func (m *Model) View() tea.View {
	var view tea.View
	view.AltScreen = true
	view.MouseMode = tea.MouseModeCellMotion
	view.ReportFocus = true

	if !m.ready {
		view.Content = "Loading..."
		return view
	}

	view.Content = m.dashboard.View()
	view.Cursor = m.dashboard.Cursor()
	return view
}

// Run starts the TUI program and blocks until it exits or ctx is done.
func Run(ctx context.Context, backend dashboard.Backend, bus *pubsub.Bus, feed *activity.Feed) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return ErrNoTerminal
	}

	styles.NewManager()

	model := New(backend, feed)
	// In Bubble Tea v2, AltScreen and MouseMode are set in View()
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if bus != nil {
		bctx, cancel := context.WithCancel(ctx)
		defer cancel()

		b := bridge.NewTUIBridge(bus, p)
		b.Start(bctx)
		defer b.Stop()
	}

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}
