package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Frame is the layout every view is rendered into: a header, the view
// body, a separator and the status bar.
type Frame struct {
	Width  int
	Height int
	styles Styles
}

func NewFrame(styles Styles) Frame {
	return Frame{styles: styles}
}

// frameChrome is the separator plus the status bar.
const frameChrome = 2

// BodyHeight is the room left for the body under the given header.
func (f Frame) BodyHeight(header string) int {
	h := f.Height - lipgloss.Height(header) - frameChrome
	if h < 1 {
		return 1
	}
	return h
}

func (f Frame) Render(header, body, status string) string {
	bodyStyle := lipgloss.NewStyle()
	if f.Width > 0 {
		bodyStyle = bodyStyle.Width(f.Width)
	}
	if f.Height > 0 {
		h := f.BodyHeight(header)
		bodyStyle = bodyStyle.Height(h).MaxHeight(h)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		bodyStyle.Render(body),
		f.separator(),
		f.statusBar(status),
	)
}

func (f Frame) separator() string {
	return f.styles.Separator.Render(strings.Repeat("─", max(f.Width, 1)))
}

func (f Frame) statusBar(status string) string {
	style := f.styles.StatusBar
	if f.Width > 0 {
		style = style.Width(f.Width).MaxHeight(1)
	}
	return style.Render(status)
}

// renderHeader returns a consistently styled header with an optional muted subtitle.
func renderHeader(styles Styles, title, subtitle string, width int) string {
	if width > 2 {
		title = truncateEnd(title, width-2)
		subtitle = truncateMiddle(subtitle, width-2)
	}
	rows := []string{styles.Header.Render(title)}
	if subtitle != "" {
		rows = append(rows, styles.Muted.Render(subtitle))
	}
	return lipgloss.JoinVertical(lipgloss.Top, rows...)
}

// renderCentered centers the provided content within the given width/height box.
func renderCentered(width, height int, content string) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}
