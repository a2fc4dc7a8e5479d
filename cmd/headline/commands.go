package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pders01/headline/internal/config"
	"github.com/pders01/headline/internal/debuglog"
	"github.com/pders01/headline/internal/search"
	"github.com/pders01/headline/internal/storage"
)

const timeLayout = "2006-01-02 15:04"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "headline %s\n", Version)
			fmt.Fprintln(out, "Feed title watcher")
			fmt.Fprintln(out, "github.com/pders01/headline")
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	generate := &cobra.Command{
		Use:   "generate [path]",
		Short: "Write the default configuration",
		Long:  "Write the default configuration to path, or to " + config.DefaultPath() + " when no path is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultPath()
			if len(args) == 1 {
				path = args[0]
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			if err := config.GenerateDefaultConfig(path); err != nil {
				return fmt.Errorf("failed to generate config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated default configuration at: %s\n", path)
			return nil
		},
	}
	generate.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	cmd.AddCommand(generate)
	return cmd
}

func newRefreshCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the title once and print it",
		Long: `Refresh the title once without starting the UI. The new title is printed
on stdout. When the source cannot be fetched the message is printed on
stderr instead; storage failures exit with an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(flags)
			if err != nil {
				return err
			}
			defer s.Close()

			coordinator := s.newCoordinator(cmd.Context())
			defer coordinator.Dispose()

			if !coordinator.RequestRefresh() {
				return errors.New("refresh was cancelled before it started")
			}
			if err := coordinator.Wait(); err != nil {
				return fmt.Errorf("refreshing %s: %w", s.repo.SourceURL(), err)
			}

			if message, ok := coordinator.TakeMessage(); ok {
				fmt.Fprintln(cmd.ErrOrStderr(), message)
				return nil
			}
			if err := cmd.Context().Err(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), coordinator.CurrentTitle())
			return nil
		},
	}
}

func newHistoryCmd(flags *rootFlags) *cobra.Command {
	var (
		query string
		limit int
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List or search past titles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(flags)
			if err != nil {
				return err
			}
			defer s.Close()

			if limit <= 0 {
				limit = s.cfg.UI.HistoryLimit
			}

			var entries []*storage.HistoryEntry
			if query != "" {
				entries, err = searchHistory(s, query, limit)
			} else {
				source := s.repo.SourceURL()
				if all {
					source = ""
				}
				entries, err = s.store.History(source, limit)
			}
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No history yet")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, e := range entries {
				if all || query != "" {
					fmt.Fprintf(w, "%s\t%s\t%s\n", e.FetchedAt.Local().Format(timeLayout), e.Title, e.SourceURL)
				} else {
					fmt.Fprintf(w, "%s\t%s\n", e.FetchedAt.Local().Format(timeLayout), e.Title)
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Full text search over past titles")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of entries (default from config)")
	cmd.Flags().BoolVar(&all, "all", false, "List every source, not only the configured one")

	return cmd
}

func newSourcesCmd(flags *rootFlags) *cobra.Command {
	var forget string

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List watched sources or forget one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(flags)
			if err != nil {
				return err
			}
			defer s.Close()

			if forget != "" {
				return forgetSource(cmd, s, forget)
			}

			sources, err := s.store.Sources()
			if err != nil {
				return fmt.Errorf("listing sources: %w", err)
			}
			if len(sources) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No sources yet")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, src := range sources {
				title := ""
				if rec, err := s.store.GetTitle(src); err == nil {
					title = rec.Title
				}
				fmt.Fprintf(w, "%s\t%s\n", src, title)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&forget, "forget", "", "Delete the stored title and history of a source")
	return cmd
}

func forgetSource(cmd *cobra.Command, s *session, sourceURL string) error {
	if _, err := s.store.GetTitle(sourceURL); errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("unknown source %s", sourceURL)
	}
	if err := s.store.DeleteSource(sourceURL); err != nil {
		return fmt.Errorf("forgetting %s: %w", sourceURL, err)
	}

	idx, err := search.NewHistoryIndex(s.store, s.cfg.Database.SearchIndex)
	if err != nil {
		debuglog.Warnf("opening search index %s: %v", s.cfg.Database.SearchIndex, err)
	} else {
		defer idx.Close()
		if err := idx.RemoveSource(sourceURL); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Forgot %s\n", sourceURL)
	return nil
}

// searchHistory uses the bleve index and falls back to scanning the store
// when the index cannot be opened.
func searchHistory(s *session, query string, limit int) ([]*storage.HistoryEntry, error) {
	var searcher search.Searcher
	idx, err := search.NewHistoryIndex(s.store, s.cfg.Database.SearchIndex)
	if err != nil {
		debuglog.Warnf("opening search index %s: %v; scanning history instead", s.cfg.Database.SearchIndex, err)
		searcher = search.NewEngine(s.store)
	} else {
		defer idx.Close()
		searcher = idx
	}

	if st, ok := searcher.(search.DebugStatser); ok {
		if n, err := st.DocCount(); err == nil {
			debuglog.Debugf("searching %d history entries for %q", n, query)
		}
	}

	results, err := searcher.Search(query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching history: %w", err)
	}

	entries := make([]*storage.HistoryEntry, len(results))
	for i, r := range results {
		entries[i] = r.Entry
	}
	return entries, nil
}
