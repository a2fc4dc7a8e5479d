package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pders01/headline/internal/config"
)

// keyMap holds the configured bindings. It implements help.KeyMap.
type keyMap struct {
	Quit    key.Binding
	Refresh key.Binding
	History key.Binding
	Back    key.Binding
	Help    key.Binding
}

func newKeyMap(cfg *config.Config) keyMap {
	modifier := cfg.Keys.Modifier + "+"
	b := cfg.Keys.Bindings

	bind := func(k, desc string, extra ...string) key.Binding {
		keys := []string{k}
		// Single letters also answer with the modifier held.
		if len([]rune(k)) == 1 && cfg.Keys.Modifier != "" {
			keys = append(keys, modifier+k)
		}
		keys = append(keys, extra...)
		return key.NewBinding(key.WithKeys(keys...), key.WithHelp(k, desc))
	}

	return keyMap{
		Quit:    bind(b.Quit, "quit", "ctrl+c"),
		Refresh: bind(b.Refresh, "refresh"),
		History: bind(b.History, "history"),
		Back:    bind(b.Back, "back"),
		Help:    bind(b.Help, "help"),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.History, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Refresh, k.History},
		{k.Back, k.Help, k.Quit},
	}
}

// forView returns the bindings shown in the status bar of a view.
func (k keyMap) forView(v View) []key.Binding {
	switch v {
	case ViewHistory:
		return []key.Binding{k.Back, k.Refresh, k.Quit}
	case ViewHelp:
		return []key.Binding{k.Back, k.Quit}
	default:
		return k.ShortHelp()
	}
}

type KeyHandler struct {
	app  *App
	keys keyMap
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	return &KeyHandler{app: app, keys: newKeyMap(cfg)}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return kh.app, kh.app.quit()
	}

	if kh.isInTextInputMode() {
		return kh.delegateToCharm(msg)
	}

	if model, cmd, handled := kh.handleCustomKeys(msg); handled {
		return model, cmd
	}

	return kh.delegateToCharm(msg)
}

// isInTextInputMode reports whether keys belong to the history filter.
func (kh *KeyHandler) isInTextInputMode() bool {
	return kh.app.view == ViewHistory && kh.app.historyList.FilterState() == list.Filtering
}

func (kh *KeyHandler) handleCustomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, kh.keys.Quit):
		return kh.app, kh.app.quit(), true
	case key.Matches(msg, kh.keys.Refresh):
		return kh.app, kh.app.requestRefresh(), true
	}

	switch kh.app.view {
	case ViewMain:
		return kh.handleMainKeys(msg)
	case ViewHistory:
		return kh.handleHistoryKeys(msg)
	case ViewHelp:
		return kh.handleHelpKeys(msg)
	default:
		return kh.app, nil, false
	}
}

func (kh *KeyHandler) handleMainKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, kh.keys.History):
		return kh.app, kh.app.openHistory(), true
	case key.Matches(msg, kh.keys.Help):
		return kh.app, kh.app.openHelp(), true
	}
	return kh.app, nil, false
}

func (kh *KeyHandler) handleHistoryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	if key.Matches(msg, kh.keys.Back) {
		// An applied filter is cleared first, like the list does itself.
		if kh.app.historyList.FilterState() == list.FilterApplied {
			kh.app.historyList.ResetFilter()
			return kh.app, nil, true
		}
		return kh.navigateBack()
	}
	if key.Matches(msg, kh.keys.Help) {
		return kh.app, kh.app.openHelp(), true
	}
	return kh.app, nil, false
}

func (kh *KeyHandler) handleHelpKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	if key.Matches(msg, kh.keys.Back, kh.keys.Help) {
		return kh.navigateBack()
	}
	return kh.app, nil, false
}

func (kh *KeyHandler) navigateBack() (tea.Model, tea.Cmd, bool) {
	switch kh.app.view {
	case ViewHelp:
		kh.app.view = kh.app.previousView
	default:
		kh.app.view = ViewMain
	}
	kh.app.previousView = ViewMain
	return kh.app, nil, true
}

// delegateToCharm hands keys the app does not own to the active component.
func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch kh.app.view {
	case ViewHistory:
		kh.app.historyList, cmd = kh.app.historyList.Update(msg)
	case ViewHelp:
		kh.app.helpViewport, cmd = kh.app.helpViewport.Update(msg)
	}
	return kh.app, cmd
}
