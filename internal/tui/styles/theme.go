// Package styles holds the dashboard theme.
package styles

import (
	"image/color"
	"strings"
	"sync"

	"charm.land/lipgloss/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// Theme is a named color palette.
type Theme struct {
	Primary   color.Color
	Secondary color.Color
	Tertiary  color.Color
	Accent    color.Color

	BgBase    color.Color
	BgSubtle  color.Color
	BgOverlay color.Color

	FgBase   color.Color
	FgMuted  color.Color
	FgSubtle color.Color

	Border      color.Color
	BorderFocus color.Color

	Success color.Color
	Error   color.Color
	Warning color.Color
	Info    color.Color

	styles *Styles
	once   sync.Once

	Name   string
	IsDark bool
}

// Styles are the lipgloss styles derived from a theme.
type Styles struct {
	Text     lipgloss.Style
	Muted    lipgloss.Style
	Subtle   lipgloss.Style
	Primary  lipgloss.Style
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Success  lipgloss.Style
	Error    lipgloss.Style
	Warning  lipgloss.Style
	Info     lipgloss.Style
	Panel    lipgloss.Style
	Banner   lipgloss.Style
}

// S returns the theme styles, built on first use.
func (t *Theme) S() *Styles {
	t.once.Do(func() {
		t.styles = &Styles{
			Text:     lipgloss.NewStyle().Foreground(t.FgBase),
			Muted:    lipgloss.NewStyle().Foreground(t.FgMuted),
			Subtle:   lipgloss.NewStyle().Foreground(t.FgSubtle),
			Primary:  lipgloss.NewStyle().Foreground(t.Primary),
			Title:    lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
			Subtitle: lipgloss.NewStyle().Foreground(t.Secondary).Bold(true),
			Success:  lipgloss.NewStyle().Foreground(t.Success),
			Error:    lipgloss.NewStyle().Foreground(t.Error),
			Warning:  lipgloss.NewStyle().Foreground(t.Warning),
			Info:     lipgloss.NewStyle().Foreground(t.Info),
			Panel: lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(t.Border).
				Padding(0, 1),
			Banner: lipgloss.NewStyle().
				Border(lipgloss.ThickBorder()).
				BorderForeground(t.Warning).
				Foreground(t.FgBase).
				Padding(0, 1),
		}
	})
	return t.styles
}

// ParseHex parses a #rrggbb color. Invalid input yields black.
func ParseHex(hex string) color.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{}
	}
	return c
}

// Hex formats c as #rrggbb.
func Hex(c color.Color) string {
	cc, ok := colorful.MakeColor(c)
	if !ok {
		return "#000000"
	}
	return cc.Hex()
}

// ApplyForegroundGrad colors each rune of text along a gradient from one
// color to another, line by line.
func ApplyForegroundGrad(text string, from, to color.Color) string {
	a, okA := colorful.MakeColor(from)
	b, okB := colorful.MakeColor(to)
	if !okA || !okB {
		return text
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		runes := []rune(line)
		if len(runes) == 0 {
			continue
		}
		var sb strings.Builder
		for j, r := range runes {
			step := 0.0
			if len(runes) > 1 {
				step = float64(j) / float64(len(runes)-1)
			}
			sb.WriteString(lipgloss.NewStyle().Foreground(a.BlendLuv(b, step).Clamped()).Render(string(r)))
		}
		lines[i] = sb.String()
	}
	return strings.Join(lines, "\n")
}

// Manager owns the active theme.
type Manager struct {
	mu     sync.RWMutex
	themes map[string]*Theme
	active *Theme
}

var (
	managerMu sync.RWMutex
	manager   *Manager
)

// NewManager installs a manager with the built-in themes and the default
// theme active.
func NewManager() *Manager {
	def := NewDefaultTheme()
	light := NewLightTheme()
	m := &Manager{
		themes: map[string]*Theme{def.Name: def, light.Name: light},
		active: def,
	}

	managerMu.Lock()
	manager = m
	managerMu.Unlock()
	return m
}

// SetTheme activates a theme by name and reports whether it exists.
func (m *Manager) SetTheme(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.themes[name]
	if ok {
		m.active = t
	}
	return ok
}

// Current returns the active theme.
func (m *Manager) Current() *Theme {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// CurrentTheme returns the active theme, installing the default manager
// on first use.
func CurrentTheme() *Theme {
	managerMu.RLock()
	m := manager
	managerMu.RUnlock()
	if m == nil {
		m = NewManager()
	}
	return m.Current()
}
