package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/pders01/headline/internal/config"
	"github.com/pders01/headline/internal/debuglog"
	"github.com/pders01/headline/internal/feed"
	"github.com/pders01/headline/internal/refresh"
	"github.com/pders01/headline/internal/storage"
	"github.com/pders01/headline/internal/tui"
)

// Version is the version of the application, set at build time
var Version = "dev"

type rootFlags struct {
	configPath string
	dbPath     string
	sourceURL  string
	logLevel   string
	quiet      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fang.Execute(ctx, newRootCmd(), fang.WithVersion(Version)); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "headline",
		Short: "Show the current title of a feed and refresh it on demand",
		Long: `headline keeps the title of a web feed (RSS, Atom or JSON Feed) in a local
database and shows it in the terminal. Press the refresh key or click the
title to fetch it again.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, flags)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Path to configuration file")
	pf.StringVar(&flags.dbPath, "db", "", "Path to database file (overrides config)")
	pf.StringVar(&flags.sourceURL, "url", "", "Feed URL to watch (overrides config)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error, off (overrides config)")
	cmd.Flags().BoolVar(&flags.quiet, "quiet", false, "Skip startup banner")

	cmd.AddCommand(
		newVersionCmd(),
		newConfigCmd(),
		newRefreshCmd(flags),
		newHistoryCmd(flags),
		newSourcesCmd(flags),
	)

	return cmd
}

// session is the wiring shared by every command that touches the source.
type session struct {
	cfg   *config.Config
	store *storage.Store
	repo  *feed.TitleRepository
}

func openSession(flags *rootFlags) (*session, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if flags.dbPath != "" {
		cfg.Database.Path = flags.dbPath
	}
	if flags.sourceURL != "" {
		cfg.Source.URL = flags.sourceURL
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}

	if err := debuglog.Setup(debuglog.ParseLogLevel(cfg.Logging.Level), cfg.Logging.File); err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	store, err := storage.NewStore(cfg.Database.Path, cfg.Database.Timeout)
	if err != nil {
		_ = debuglog.Close()
		return nil, err
	}

	repo, err := feed.NewTitleRepository(store, cfg)
	if err != nil {
		_ = store.Close()
		_ = debuglog.Close()
		return nil, err
	}

	debuglog.Infof("session opened: source=%s db=%s", repo.SourceURL(), cfg.Database.Path)
	return &session{cfg: cfg, store: store, repo: repo}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		debuglog.Warnf("closing store: %v", err)
	}
	_ = debuglog.Close()
}

// newCoordinator scopes refresh work to ctx so an interrupt cancels it.
func (s *session) newCoordinator(ctx context.Context) *refresh.Coordinator {
	return refresh.New(s.repo,
		refresh.WithParent(ctx),
		refresh.WithFatalHandler(func(err error) {
			debuglog.Errorf("fatal refresh error: %v", err)
		}),
	)
}

func runTUI(cmd *cobra.Command, flags *rootFlags) error {
	if !flags.quiet {
		tui.ShowBanner(Version)
	}

	s, err := openSession(flags)
	if err != nil {
		return err
	}
	defer s.Close()

	coordinator := s.newCoordinator(cmd.Context())
	app := tui.NewApp(coordinator, s.store, s.repo.SourceURL(), s.cfg)

	p := tea.NewProgram(app,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(cmd.Context()),
	)
	_, runErr := p.Run()

	// Cycles still in flight must finish before the store closes.
	coordinator.Dispose()
	_ = coordinator.Wait()

	if runErr != nil {
		return fmt.Errorf("running UI: %w", runErr)
	}
	if err := app.Err(); err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}
	return nil
}
