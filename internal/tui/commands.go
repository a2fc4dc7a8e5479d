package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pders01/headline/internal/storage"
)

type changeMsg struct{}

type changesClosedMsg struct{}

type historyLoadedMsg struct {
	entries []*storage.HistoryEntry
}

type helpRenderedMsg struct {
	content string
}

type clearStatusMsg struct {
	seq int
}

type errorMsg struct {
	err error
}

// waitForChange blocks until the coordinator signals a change. It is
// issued again after every changeMsg so exactly one listener is pending.
func waitForChange(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return changesClosedMsg{}
		}
		return changeMsg{}
	}
}

func clearStatusAfter(d time.Duration, seq int) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}

func (a *App) loadHistory() tea.Cmd {
	return func() tea.Msg {
		entries, err := a.store.History(a.sourceURL, a.config.UI.HistoryLimit)
		if err != nil {
			return errorMsg{err: wrapErr("loading history", err)}
		}
		return historyLoadedMsg{entries: entries}
	}
}

func (a *App) renderHelp() tea.Cmd {
	keys := a.keyHandler.keys
	source := a.sourceURL
	return func() tea.Msg {
		var md strings.Builder
		md.WriteString("# headline\n\n")
		md.WriteString("Shows the current title of a feed and refreshes it on demand.\n\n")
		if source != "" {
			md.WriteString(fmt.Sprintf("Source: `%s`\n\n", source))
		}
		md.WriteString("## Keys\n\n")
		md.WriteString("| Key | Action |\n|---|---|\n")
		for _, b := range []key.Binding{keys.Refresh, keys.History, keys.Back, keys.Help, keys.Quit} {
			h := b.Help()
			md.WriteString(fmt.Sprintf("| `%s` | %s |\n", h.Key, h.Desc))
		}
		md.WriteString("\nA left click on the title also refreshes it. ")
		md.WriteString("In the history view `/` filters the list.\n")

		r, err := a.getRenderer()
		if err != nil {
			return helpRenderedMsg{content: md.String()}
		}
		rendered, err := r.Render(md.String())
		if err != nil {
			return helpRenderedMsg{content: md.String()}
		}
		return helpRenderedMsg{content: rendered}
	}
}
