package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/pders01/headline/internal/config"
	"github.com/pders01/headline/internal/debuglog"
	"github.com/pders01/headline/internal/refresh"
	"github.com/pders01/headline/internal/storage"
)

const defaultMessageTimeout = 4 * time.Second

type App struct {
	config      *config.Config
	coordinator *refresh.Coordinator
	store       *storage.Store
	sourceURL   string
	keyHandler  *KeyHandler
	styles      Styles
	frame       Frame
	logo        Logo

	spinner      spinner.Model
	historyList  list.Model
	helpViewport viewport.Model
	help         help.Model

	view         View
	previousView View
	title        string
	busy         bool
	status       string
	statusKind   StatusKind
	statusSeq    int
	width        int
	height       int
	err          error

	glamourRenderer *glamour.TermRenderer
	rendererWidth   int
}

// NewApp builds the UI around coordinator. store backs the history view
// and sourceURL is the source the coordinator refreshes.
func NewApp(coordinator *refresh.Coordinator, store *storage.Store, sourceURL string, cfg *config.Config) *App {
	styles := NewStyles(cfg.UI.Colors)

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(styles.Spinner),
	)

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(styles.Accent).
		BorderForeground(styles.Accent)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		BorderForeground(styles.Accent)

	historyList := list.New([]list.Item{}, delegate, 0, 0)
	historyList.Title = "› history"
	historyList.SetShowStatusBar(true)
	historyList.SetFilteringEnabled(true)
	historyList.SetShowHelp(false)

	app := &App{
		config:       cfg,
		coordinator:  coordinator,
		store:        store,
		sourceURL:    sourceURL,
		styles:       styles,
		frame:        NewFrame(styles),
		logo:         LoadLogo(cfg.UI.Logo),
		spinner:      sp,
		historyList:  historyList,
		helpViewport: viewport.New(0, 0),
		help:         help.New(),
		view:         ViewMain,
		previousView: ViewMain,
		title:        coordinator.CurrentTitle(),
		busy:         coordinator.IsBusy(),
	}

	app.keyHandler = NewKeyHandler(app, cfg)

	return app
}

// Err is the fatal refresh error that ended the program, if any.
func (a *App) Err() error {
	return a.err
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	wordWrapWidth := (a.width * 9) / 10
	if wordWrapWidth > 100 {
		wordWrapWidth = 100
	}
	if wordWrapWidth < 40 {
		wordWrapWidth = 40
	}

	if a.glamourRenderer == nil || abs(a.rendererWidth-wordWrapWidth) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrapWidth),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wordWrapWidth
	}

	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForChange(a.coordinator.Changes())}
	if a.busy {
		cmds = append(cmds, a.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.frame.Width = msg.Width
		a.frame.Height = msg.Height
		a.help.Width = msg.Width
		bodyHeight := a.frame.BodyHeight(a.header())
		a.historyList.SetSize(msg.Width, bodyHeight)
		a.helpViewport.Width = msg.Width
		a.helpViewport.Height = bodyHeight

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case tea.MouseMsg:
		if a.view == ViewMain && msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			return a, a.requestRefresh()
		}

	case changeMsg:
		cmd := a.syncFromCoordinator()
		if a.err != nil {
			return a, cmd
		}
		return a, tea.Batch(cmd, waitForChange(a.coordinator.Changes()))

	case changesClosedMsg:
		return a, nil

	case spinner.TickMsg:
		if !a.busy {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case clearStatusMsg:
		if msg.seq == a.statusSeq {
			a.status = ""
		}
		return a, nil

	case historyLoadedMsg:
		items := make([]list.Item, len(msg.entries))
		for i, e := range msg.entries {
			items[i] = historyItem{entry: e, styles: a.styles}
		}
		cmds = append(cmds, a.historyList.SetItems(items))
		if len(items) == 0 {
			cmds = append(cmds, a.setStatus(MsgNoHistory, StatusInfo))
		} else {
			cmds = append(cmds, a.setStatus(MsgHistoryCount(len(items)), StatusInfo))
		}
		return a, tea.Batch(cmds...)

	case helpRenderedMsg:
		a.helpViewport.SetContent(msg.content)
		a.helpViewport.GotoTop()
		return a, nil

	case errorMsg:
		debuglog.Errorf("ui: %v", msg.err)
		return a, a.setStatus(msg.err.Error(), StatusError)
	}

	switch a.view {
	case ViewHistory:
		var cmd tea.Cmd
		a.historyList, cmd = a.historyList.Update(msg)
		cmds = append(cmds, cmd)
	case ViewHelp:
		var cmd tea.Cmd
		a.helpViewport, cmd = a.helpViewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return a, tea.Batch(cmds...)
}

// syncFromCoordinator re-reads the coordinator state. A pending message is
// consumed here, so it is shown exactly once.
func (a *App) syncFromCoordinator() tea.Cmd {
	var cmds []tea.Cmd

	a.title = a.coordinator.CurrentTitle()

	wasBusy := a.busy
	a.busy = a.coordinator.IsBusy()
	if a.busy && !wasBusy {
		cmds = append(cmds, a.spinner.Tick)
	}

	if message, ok := a.coordinator.TakeMessage(); ok {
		cmds = append(cmds, a.setStatus(message, StatusError))
	}

	if err := a.coordinator.Err(); err != nil && a.err == nil {
		a.err = err
		debuglog.Errorf("quitting after fatal refresh error: %v", err)
		a.coordinator.Dispose()
		return tea.Quit
	}

	if a.view == ViewHistory && wasBusy && !a.busy {
		cmds = append(cmds, a.loadHistory())
	}

	return tea.Batch(cmds...)
}

func (a *App) requestRefresh() tea.Cmd {
	if !a.coordinator.RequestRefresh() {
		return a.setStatus(MsgRefreshRejected, StatusWarn)
	}
	return a.syncFromCoordinator()
}

func (a *App) setStatus(text string, kind StatusKind) tea.Cmd {
	a.statusSeq++
	a.status = text
	a.statusKind = kind

	timeout := a.config.UI.MessageTimeout
	if timeout <= 0 {
		timeout = defaultMessageTimeout
	}
	return clearStatusAfter(timeout, a.statusSeq)
}

func (a *App) openHistory() tea.Cmd {
	a.previousView = a.view
	a.view = ViewHistory
	a.status = MsgLoadingHistory
	a.statusKind = StatusInfo
	return a.loadHistory()
}

func (a *App) openHelp() tea.Cmd {
	a.previousView = a.view
	a.view = ViewHelp
	return a.renderHelp()
}

func (a *App) quit() tea.Cmd {
	a.coordinator.Dispose()
	return tea.Quit
}

func (a *App) header() string {
	return renderHeader(a.styles, CompactLogo+" "+a.view.String(), a.sourceURL, a.width)
}

func (a *App) View() string {
	header := a.header()

	var body string
	switch a.view {
	case ViewHistory:
		body = a.historyBody(a.frame.BodyHeight(header))
	case ViewHelp:
		body = a.helpViewport.View()
	default:
		body = a.mainBody(a.frame.BodyHeight(header))
	}

	return a.frame.Render(header, body, a.statusLine())
}

func (a *App) mainBody(height int) string {
	var rows []string

	// The logo is dropped first when the terminal is short.
	if a.height == 0 || height >= a.logo.Height()+6 {
		rows = append(rows, a.logo.Render(a.styles), "")
	}

	if a.title != "" {
		rows = append(rows, a.styles.Title.Render(a.title))
	} else {
		rows = append(rows,
			a.styles.Muted.Render(MsgNoTitle),
			a.styles.Help.Render(MsgPressToRefresh(a.keyHandler.keys.Refresh.Help().Key)),
		)
	}

	rows = append(rows, "")
	if a.busy {
		rows = append(rows, a.spinner.View()+" "+a.styles.Muted.Render(MsgRefreshing))
	} else {
		rows = append(rows, " ")
	}

	content := lipgloss.JoinVertical(lipgloss.Center, rows...)
	if a.width == 0 || a.height == 0 {
		return content
	}
	return renderCentered(a.width, height, content)
}

func (a *App) historyBody(height int) string {
	if len(a.historyList.Items()) > 0 || a.status == MsgLoadingHistory {
		return a.historyList.View()
	}
	content := GetCompactBanner(a.styles, MsgNoHistory)
	if a.width == 0 || a.height == 0 {
		return content
	}
	return renderCentered(a.width, height, content)
}

func (a *App) statusLine() string {
	if a.status != "" {
		prefix := ""
		if a.statusKind == StatusError {
			prefix = "✗ "
		}
		return a.styles.Status(a.statusKind).Render(prefix + a.status)
	}
	return a.help.ShortHelpView(a.keyHandler.keys.forView(a.view))
}

type historyItem struct {
	entry  *storage.HistoryEntry
	styles Styles
}

func (i historyItem) Title() string { return i.entry.Title }

func (i historyItem) Description() string {
	timeStr := ""
	if !i.entry.FetchedAt.IsZero() {
		timeStr = i.entry.FetchedAt.Format("Jan 2, 15:04")
	}
	desc := truncateEnd(i.entry.Description, 60)
	if desc == "" {
		return i.styles.Time.Render(timeStr)
	}
	return i.styles.Muted.Render(desc) + i.styles.Time.Render(" • "+timeStr)
}

func (i historyItem) FilterValue() string { return i.entry.Title + " " + i.entry.Description }
