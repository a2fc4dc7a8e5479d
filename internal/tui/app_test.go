package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/headline/internal/config"
	"github.com/pders01/headline/internal/refresh"
	"github.com/pders01/headline/internal/storage"
)

const testSource = "https://example.com/feed.xml"

type stubSource struct {
	mu      sync.Mutex
	title   string
	subs    []func(string)
	refresh func(ctx context.Context) error
}

func (s *stubSource) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

func (s *stubSource) Subscribe(fn func(string)) func() {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
	return func() {}
}

func (s *stubSource) Refresh(ctx context.Context) error {
	if s.refresh != nil {
		return s.refresh(ctx)
	}
	return nil
}

func (s *stubSource) publish(title string) {
	s.mu.Lock()
	s.title = title
	subs := append([]func(string){}, s.subs...)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(title)
	}
}

func newTestApp(t *testing.T, src *stubSource) (*App, *refresh.Coordinator, *storage.Store) {
	t.Helper()

	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	coord := refresh.New(src)
	t.Cleanup(coord.Dispose)

	return NewApp(coord, store, testSource, config.TestConfig()), coord, store
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// settle waits for the coordinator to go idle and feeds the change to the app.
func settle(t *testing.T, app *App, coord *refresh.Coordinator) tea.Cmd {
	t.Helper()
	require.Eventually(t, func() bool { return !coord.IsBusy() }, time.Second, 5*time.Millisecond)
	_, cmd := app.Update(changeMsg{})
	return cmd
}

func TestViewStateTransitions(t *testing.T) {
	tests := []struct {
		name         string
		initialView  View
		msg          tea.Msg
		expectedView View
	}{
		{
			name:         "ViewMain to ViewHistory on 'h' key",
			initialView:  ViewMain,
			msg:          runeKey('h'),
			expectedView: ViewHistory,
		},
		{
			name:         "ViewMain to ViewHelp on '?' key",
			initialView:  ViewMain,
			msg:          runeKey('?'),
			expectedView: ViewHelp,
		},
		{
			name:         "ViewHistory to ViewMain on Escape",
			initialView:  ViewHistory,
			msg:          tea.KeyMsg{Type: tea.KeyEsc},
			expectedView: ViewMain,
		},
		{
			name:         "ViewHelp to ViewMain on Escape",
			initialView:  ViewHelp,
			msg:          tea.KeyMsg{Type: tea.KeyEsc},
			expectedView: ViewMain,
		},
		{
			name:         "ViewHelp closes on '?' key",
			initialView:  ViewHelp,
			msg:          runeKey('?'),
			expectedView: ViewMain,
		},
		{
			name:         "ViewMain ignores Escape",
			initialView:  ViewMain,
			msg:          tea.KeyMsg{Type: tea.KeyEsc},
			expectedView: ViewMain,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _, _ := newTestApp(t, &stubSource{})
			app.view = tt.initialView

			model, _ := app.Update(tt.msg)
			assert.Equal(t, tt.expectedView, model.(*App).view)
		})
	}
}

func TestHelpReturnsToHistory(t *testing.T) {
	app, _, _ := newTestApp(t, &stubSource{})

	app.Update(runeKey('h'))
	app.Update(runeKey('?'))
	require.Equal(t, ViewHelp, app.view)

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewHistory, app.view)
}

func TestInitialTitleFromCoordinator(t *testing.T) {
	app, _, _ := newTestApp(t, &stubSource{title: "Cached Title"})

	assert.Equal(t, "Cached Title", app.title)
	assert.Contains(t, app.View(), "Cached Title")
}

func TestEmptyTitleShowsPrompt(t *testing.T) {
	app, _, _ := newTestApp(t, &stubSource{})

	view := app.View()
	assert.Contains(t, view, MsgNoTitle)
	assert.Contains(t, view, MsgPressToRefresh("r"))
}

func TestRefreshKeyShowsSpinner(t *testing.T) {
	release := make(chan struct{})
	src := &stubSource{refresh: func(ctx context.Context) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}}
	app, coord, _ := newTestApp(t, src)

	_, cmd := app.Update(runeKey('r'))
	assert.NotNil(t, cmd)
	assert.True(t, app.busy)
	assert.True(t, coord.IsBusy())
	assert.Contains(t, app.View(), MsgRefreshing)

	close(release)
	settle(t, app, coord)
	assert.False(t, app.busy)
	assert.NotContains(t, app.View(), MsgRefreshing)
}

func TestMouseClickRefreshes(t *testing.T) {
	var calls int
	var mu sync.Mutex
	src := &stubSource{refresh: func(ctx context.Context) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	}}
	app, coord, _ := newTestApp(t, src)

	app.Update(tea.MouseMsg{Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	app.Update(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonRight})
	app.Update(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	settle(t, app, coord)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls, "only a left press refreshes")
}

func TestRefreshedTitleIsShown(t *testing.T) {
	src := &stubSource{}
	src.refresh = func(ctx context.Context) error {
		src.publish("Brand New")
		return nil
	}
	app, coord, _ := newTestApp(t, src)

	app.Update(runeKey('r'))
	settle(t, app, coord)

	assert.Equal(t, "Brand New", app.title)
	assert.Contains(t, app.View(), "Brand New")
}

func TestDeclaredErrorShowsMessageOnce(t *testing.T) {
	src := &stubSource{refresh: func(ctx context.Context) error {
		return &refresh.Error{Message: "Unable to refresh title"}
	}}
	app, coord, _ := newTestApp(t, src)

	app.Update(runeKey('r'))
	settle(t, app, coord)

	assert.Equal(t, "Unable to refresh title", app.status)
	assert.Equal(t, StatusError, app.statusKind)
	assert.Contains(t, app.View(), "Unable to refresh title")
	assert.NoError(t, app.Err())

	_, ok := coord.TakeMessage()
	assert.False(t, ok, "the app consumed the message")

	// Expiry of the message timer clears it.
	app.Update(clearStatusMsg{seq: app.statusSeq})
	assert.Empty(t, app.status)
}

func TestStaleStatusTimerKeepsNewerMessage(t *testing.T) {
	app, _, _ := newTestApp(t, &stubSource{})

	app.setStatus("first", StatusInfo)
	stale := app.statusSeq
	app.setStatus("second", StatusInfo)

	app.Update(clearStatusMsg{seq: stale})
	assert.Equal(t, "second", app.status)
}

func TestFatalErrorQuits(t *testing.T) {
	boom := errors.New("disk full")
	release := make(chan struct{})
	src := &stubSource{refresh: func(ctx context.Context) error {
		<-release
		return boom
	}}
	app, coord, _ := newTestApp(t, src)

	app.Update(runeKey('r'))
	close(release)
	require.Eventually(t, func() bool { return coord.Err() != nil }, time.Second, 5*time.Millisecond)

	_, cmd := app.Update(changeMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.ErrorIs(t, app.Err(), boom)
	assert.False(t, coord.RequestRefresh())
}

func TestQuitDisposesCoordinator(t *testing.T) {
	app, coord, _ := newTestApp(t, &stubSource{})

	_, cmd := app.Update(runeKey('q'))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.False(t, coord.RequestRefresh(), "coordinator is disposed on quit")

	_, ok := <-coord.Changes()
	assert.False(t, ok)
}

func TestRefreshAfterDisposeWarns(t *testing.T) {
	app, coord, _ := newTestApp(t, &stubSource{})
	coord.Dispose()

	app.Update(runeKey('r'))
	assert.Equal(t, MsgRefreshRejected, app.status)
	assert.Equal(t, StatusWarn, app.statusKind)
}

func TestWaitForChange(t *testing.T) {
	changes := make(chan struct{}, 1)
	changes <- struct{}{}
	assert.Equal(t, changeMsg{}, waitForChange(changes)())

	close(changes)
	assert.Equal(t, changesClosedMsg{}, waitForChange(changes)())
}

func TestHistoryViewListsEntries(t *testing.T) {
	app, _, store := newTestApp(t, &stubSource{})
	require.NoError(t, store.SaveTitle(&storage.TitleRecord{SourceURL: testSource, Title: "Older"}))
	require.NoError(t, store.SaveTitle(&storage.TitleRecord{SourceURL: testSource, Title: "Newer"}))
	require.NoError(t, store.SaveTitle(&storage.TitleRecord{SourceURL: "https://other.example.com", Title: "Elsewhere"}))

	app.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	_, cmd := app.Update(runeKey('h'))
	require.NotNil(t, cmd)

	msg := cmd()
	loaded, ok := msg.(historyLoadedMsg)
	require.True(t, ok, "got %T", msg)
	require.Len(t, loaded.entries, 2)

	app.Update(loaded)
	items := app.historyList.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Newer", items[0].(historyItem).Title())
	assert.Equal(t, MsgHistoryCount(2), app.status)
	assert.Contains(t, app.View(), "Newer")
}

func TestEmptyHistoryShowsBanner(t *testing.T) {
	app, _, _ := newTestApp(t, &stubSource{})
	app.Update(tea.WindowSizeMsg{Width: 80, Height: 30})

	_, cmd := app.Update(runeKey('h'))
	require.NotNil(t, cmd)
	assert.NotContains(t, app.historyBody(20), MsgNoHistory, "nothing is claimed while loading")

	loaded, ok := cmd().(historyLoadedMsg)
	require.True(t, ok)
	app.Update(loaded)

	body := app.historyBody(20)
	assert.Contains(t, body, MsgNoHistory)
	assert.Contains(t, body, LogoLines[0])
}

func TestHistoryLoadFailureShowsError(t *testing.T) {
	app, _, store := newTestApp(t, &stubSource{})
	require.NoError(t, store.Close())

	msg := app.loadHistory()()
	errMsg, ok := msg.(errorMsg)
	require.True(t, ok, "got %T", msg)

	app.Update(errMsg)
	assert.Equal(t, StatusError, app.statusKind)
	assert.True(t, strings.HasPrefix(app.status, "loading history"))
}

func TestHelpViewRendersKeys(t *testing.T) {
	app, _, _ := newTestApp(t, &stubSource{})
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	_, cmd := app.Update(runeKey('?'))
	require.NotNil(t, cmd)
	rendered, ok := cmd().(helpRenderedMsg)
	require.True(t, ok)
	assert.Contains(t, rendered.content, "refresh")
	assert.Contains(t, rendered.content, "history")

	app.Update(rendered)
	assert.Contains(t, app.View(), "refresh")
}

func TestWindowResize(t *testing.T) {
	app, _, _ := newTestApp(t, &stubSource{title: "Sized"})

	app.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	assert.Equal(t, 60, app.width)
	assert.Equal(t, 20, app.frame.Height)

	view := app.View()
	assert.LessOrEqual(t, len(strings.Split(view, "\n")), 20)
	assert.Contains(t, view, "Sized")
}
