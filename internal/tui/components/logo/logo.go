// Package logo renders the cadence wordmark.
package logo

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/guilhermegouw/cadence/internal/tui/styles"
)

const wordmark = `
╔═╗╔═╗╔╦╗╔═╗╔╗╔╔═╗╔═╗
║  ╠═╣ ║║║╣ ║║║║  ║╣
╚═╝╩ ╩═╩╝╚═╝╝╚╝╚═╝╚═╝
`

// Render returns the wordmark with the current theme colors.
func Render() string {
	t := styles.CurrentTheme()
	return styles.ApplyForegroundGrad(strings.Trim(wordmark, "\n"), t.Primary, t.Accent)
}

// RenderWithTagline returns the wordmark with a tagline.
func RenderWithTagline() string {
	t := styles.CurrentTheme()
	tagline := t.S().Muted.Render("background sync, on schedule")
	return lipgloss.JoinVertical(lipgloss.Left, Render(), tagline)
}

// Height returns the height of the wordmark.
func Height() int {
	return lipgloss.Height(strings.Trim(wordmark, "\n"))
}
