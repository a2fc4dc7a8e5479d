package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/pders01/headline/internal/config"
)

const AppName = "headline"

// LogoLines is the built-in logo, also used as the logo placeholder.
var LogoLines = []string{
	"█ █ █▀▀ ▄▀█ █▀▄ █   █ █▄ █ █▀▀",
	"█▀█ ██▄ █▀█ █▄▀ █▄▄ █ █ ▀█ ██▄",
}

// ErrorLogoLines replace a configured logo that could not be loaded.
var ErrorLogoLines = []string{
	"┌──────────┐",
	"│ headline │",
	"└──────────┘",
}

const CompactLogo = `headline ›`

// Banner gradient colors
var BannerColors = []lipgloss.Color{
	lipgloss.Color("#FF6B6B"),
	lipgloss.Color("#FFA86B"),
	lipgloss.Color("#95E1D3"),
	lipgloss.Color("#4ECDC4"),
}

// Styles holds every style the UI renders with. It is derived from the
// configured colors so themes only touch the config file.
type Styles struct {
	Logo          lipgloss.Style
	LogoError     lipgloss.Style
	Title         lipgloss.Style
	Header        lipgloss.Style
	Muted         lipgloss.Style
	Help          lipgloss.Style
	Time          lipgloss.Style
	Spinner       lipgloss.Style
	StatusBar     lipgloss.Style
	StatusInfo    lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusWarn    lipgloss.Style
	StatusError   lipgloss.Style
	Separator     lipgloss.Style

	Accent lipgloss.Color
}

func NewStyles(c config.UIColors) Styles {
	primary := lipgloss.Color(c.Primary)
	secondary := lipgloss.Color(c.Secondary)
	accent := lipgloss.Color(c.Accent)
	text := lipgloss.Color(c.Text)
	muted := lipgloss.Color(c.Muted)
	errColor := lipgloss.Color(c.Error)
	success := lipgloss.Color(c.Success)

	return Styles{
		Logo: lipgloss.NewStyle().
			Foreground(primary).
			Bold(true),
		LogoError: lipgloss.NewStyle().
			Foreground(errColor),
		Title: lipgloss.NewStyle().
			Foreground(text).
			Bold(true).
			Padding(0, 2),
		Header: lipgloss.NewStyle().
			Foreground(secondary).
			Bold(true),
		Muted: lipgloss.NewStyle().
			Foreground(muted),
		Help: lipgloss.NewStyle().
			Foreground(muted).
			Italic(true),
		Time: lipgloss.NewStyle().
			Foreground(muted).
			Faint(true),
		Spinner: lipgloss.NewStyle().
			Foreground(accent),
		StatusBar: lipgloss.NewStyle().
			Foreground(muted).
			Padding(0, 1),
		StatusInfo: lipgloss.NewStyle().
			Foreground(muted),
		StatusSuccess: lipgloss.NewStyle().
			Foreground(success),
		StatusWarn: lipgloss.NewStyle().
			Foreground(accent),
		StatusError: lipgloss.NewStyle().
			Foreground(errColor).
			Bold(true),
		Separator: lipgloss.NewStyle().
			Foreground(muted),
		Accent: accent,
	}
}

// Status returns the style for a status message of the given severity.
func (s Styles) Status(kind StatusKind) lipgloss.Style {
	switch kind {
	case StatusSuccess:
		return s.StatusSuccess
	case StatusWarn:
		return s.StatusWarn
	case StatusError:
		return s.StatusError
	default:
		return s.StatusInfo
	}
}

func GetCompactBanner(styles Styles, message string) string {
	var coloredLines []string
	for _, line := range LogoLines {
		coloredLines = append(coloredLines, styles.Logo.Render(line))
	}

	logo := lipgloss.JoinVertical(lipgloss.Center, coloredLines...)

	return lipgloss.JoinVertical(
		lipgloss.Center,
		logo,
		"",
		styles.Help.Render(message),
	)
}

// Banner renders the version banner printed by the version command.
func Banner(version string) string {
	lines := make([]string, len(LogoLines)+1)
	copy(lines, LogoLines)

	versionTag := version
	if versionTag != "" && versionTag != "dev" {
		if versionTag[0] != 'v' && versionTag[0] != 'V' {
			versionTag = "v" + versionTag
		}
		lines = append(lines, fmt.Sprintf("Feed Title Watcher %s", versionTag))
	} else {
		lines = append(lines, "Feed Title Watcher")
	}

	var coloredLines []string
	for i, line := range lines {
		if line == "" {
			coloredLines = append(coloredLines, line)
			continue
		}

		style := lipgloss.NewStyle().
			Foreground(BannerColors[i%len(BannerColors)]).
			Bold(i < len(LogoLines))

		coloredLines = append(coloredLines, style.Render(line))
	}

	borderChars := lipgloss.Border{
		Top:         "═",
		Bottom:      "═",
		Left:        "║",
		Right:       "║",
		TopLeft:     "╔",
		TopRight:    "╗",
		BottomLeft:  "╚",
		BottomRight: "╝",
	}

	borderStyle := lipgloss.NewStyle().
		Border(borderChars).
		BorderForeground(lipgloss.Color("#4ECDC4")).
		Padding(1, 3).
		MarginTop(1)

	banner := lipgloss.JoinVertical(lipgloss.Center, coloredLines...)
	output := borderStyle.Render(banner)

	separator := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#95E1D3")).
		Render("◆ ◇ ◆ ◇ ◆")

	centered := lipgloss.NewStyle().Width(60).Align(lipgloss.Center)
	return lipgloss.JoinVertical(lipgloss.Left,
		centered.Render(output),
		centered.MarginBottom(1).Render(separator),
	)
}

func ShowBanner(version string) {
	fmt.Println(Banner(version))
}
