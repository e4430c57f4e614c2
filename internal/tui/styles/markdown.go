package styles

import (
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/muesli/termenv"
)

// MarkdownRenderer renders markdown with the active theme. The renderer is
// rebuilt only when the width changes.
type MarkdownRenderer struct {
	renderer    *glamour.TermRenderer
	profile     termenv.Profile
	cachedWidth int
	mu          sync.Mutex
}

// NewMarkdownRenderer creates a renderer for the given color profile.
func NewMarkdownRenderer(profile termenv.Profile) *MarkdownRenderer {
	return &MarkdownRenderer{profile: profile}
}

// Render renders markdown content. On failure the plain content is
// returned along with the error.
func (m *MarkdownRenderer) Render(content string, width int) (string, error) {
	if content == "" {
		return "", nil
	}

	renderer, err := m.getRenderer(width)
	if err != nil {
		return content, err
	}

	rendered, err := renderer.Render(content)
	if err != nil {
		return content, err
	}
	return rendered, nil
}

func (m *MarkdownRenderer) getRenderer(width int) (*glamour.TermRenderer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.renderer != nil && m.cachedWidth == width {
		return m.renderer, nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStyles(MarkdownStyle()),
		glamour.WithWordWrap(width),
		glamour.WithColorProfile(m.profile),
	)
	if err != nil {
		return nil, err
	}

	m.renderer = renderer
	m.cachedWidth = width
	return renderer, nil
}

// MarkdownStyle derives a glamour style from the active theme.
func MarkdownStyle() ansi.StyleConfig {
	t := CurrentTheme()

	style := glamourstyles.DarkStyleConfig
	if !t.IsDark {
		style = glamourstyles.LightStyleConfig
	}

	primary := Hex(t.Primary)
	secondary := Hex(t.Secondary)
	accent := Hex(t.Accent)
	muted := Hex(t.FgMuted)
	base := Hex(t.FgBase)

	style.H1.Color = stringPtr(accent)
	style.H1.Bold = boolPtr(true)
	style.H1.Prefix = ""
	style.H1.Suffix = ""
	style.H2.Color = stringPtr(primary)
	style.H2.Bold = boolPtr(true)
	style.H2.Prefix = ""
	style.H3.Color = stringPtr(secondary)
	style.H3.Prefix = ""

	style.Code.Color = stringPtr(secondary)
	style.Link.Color = stringPtr(primary)
	style.BlockQuote.Color = stringPtr(muted)
	style.Table.Color = stringPtr(base)
	style.Item.BlockPrefix = "  "

	return style
}

func stringPtr(s string) *string { return &s }
func boolPtr(b bool) *bool       { return &b }
