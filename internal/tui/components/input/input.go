// Package input is the single-line command input of the dashboard.
package input

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/guilhermegouw/cadence/internal/tui/styles"
)

// Input wraps a textinput with the dashboard border.
type Input struct {
	textInput textinput.Model
	history   []string
	histPos   int
	width     int
	focused   bool
}

// New creates a blurred input.
func New() *Input {
	ti := textinput.New()
	ti.Placeholder = "message, or /remind 10m stretch"
	ti.CharLimit = 1024
	ti.Prompt = "› "

	return &Input{textInput: ti}
}

// Update handles key events while focused. Up and down walk the history.
func (i *Input) Update(msg tea.Msg) (*Input, tea.Cmd) {
	if !i.focused {
		return i, nil
	}

	if key, ok := msg.(tea.KeyPressMsg); ok {
		switch key.String() {
		case "up":
			i.recall(-1)
			return i, nil
		case "down":
			i.recall(1)
			return i, nil
		}
	}

	var cmd tea.Cmd
	i.textInput, cmd = i.textInput.Update(msg)
	return i, cmd
}

func (i *Input) recall(delta int) {
	if len(i.history) == 0 {
		return
	}
	i.histPos += delta
	switch {
	case i.histPos < 0:
		i.histPos = 0
	case i.histPos >= len(i.history):
		i.histPos = len(i.history)
		i.textInput.SetValue("")
		return
	}
	i.textInput.SetValue(i.history[i.histPos])
	i.textInput.CursorEnd()
}

// Submit returns the trimmed value, records it in the history and clears
// the input.
func (i *Input) Submit() string {
	v := strings.TrimSpace(i.textInput.Value())
	i.textInput.SetValue("")
	if v != "" {
		i.history = append(i.history, v)
	}
	i.histPos = len(i.history)
	return v
}

// View renders the input.
func (i *Input) View() string {
	t := styles.CurrentTheme()

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1).
		Width(max(i.width-2, 10))

	if i.focused {
		style = style.BorderForeground(t.BorderFocus)
	}

	return style.Render(i.textInput.View())
}

// SetWidth sets the input width.
func (i *Input) SetWidth(width int) {
	i.width = width
	i.textInput.SetWidth(max(width-8, 4))
}

// Value returns the current input value.
func (i *Input) Value() string {
	return i.textInput.Value()
}

// SetValue sets the input value.
func (i *Input) SetValue(value string) {
	i.textInput.SetValue(value)
}

// Focused reports whether the input has focus.
func (i *Input) Focused() bool {
	return i.focused
}

// Focus focuses the input.
func (i *Input) Focus() tea.Cmd {
	i.focused = true
	return i.textInput.Focus()
}

// Blur removes focus from the input.
func (i *Input) Blur() {
	i.focused = false
	i.textInput.Blur()
}

// Cursor returns the cursor for the input, nil when blurred.
func (i *Input) Cursor() *tea.Cursor {
	if !i.focused {
		return nil
	}
	return i.textInput.Cursor()
}
