package tui

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pders01/headline/internal/debuglog"
)

// LogoState tells where the lines of a Logo came from.
type LogoState int

const (
	// LogoPlaceholder is the built-in logo used when none is configured.
	LogoPlaceholder LogoState = iota
	// LogoLoaded is a logo read from the configured file.
	LogoLoaded
	// LogoFailed marks the fallback shown when the configured file is unusable.
	LogoFailed
)

const (
	maxLogoLines = 12
	maxLogoWidth = 80
)

type Logo struct {
	Lines []string
	State LogoState
	Err   error
}

// LoadLogo reads a text logo from path. An empty path yields the built-in
// placeholder; an unreadable or empty file yields the error logo.
func LoadLogo(path string) Logo {
	if path == "" {
		return Logo{Lines: LogoLines, State: LogoPlaceholder}
	}

	lines, err := readLogoFile(path)
	if err != nil {
		debuglog.Warnf("loading logo %s: %v", path, err)
		return Logo{Lines: ErrorLogoLines, State: LogoFailed, Err: err}
	}
	return Logo{Lines: lines, State: LogoLoaded}
}

func readLogoFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() && len(lines) < maxLogoLines {
		lines = append(lines, truncateEnd(strings.TrimRight(scanner.Text(), " \t\r"), maxLogoWidth))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("logo file is empty")
	}
	return lines, nil
}

// Height is the number of rows the logo occupies.
func (l Logo) Height() int {
	return len(l.Lines)
}

func (l Logo) Render(styles Styles) string {
	style := styles.Logo
	if l.State == LogoFailed {
		style = styles.LogoError
	}
	rendered := make([]string, len(l.Lines))
	for i, line := range l.Lines {
		rendered[i] = style.Render(line)
	}
	return lipgloss.JoinVertical(lipgloss.Center, rendered...)
}
