package search

import "github.com/pders01/headline/internal/storage"

// Searcher defines the minimal search API used by the TUI and the CLI.
type Searcher interface {
	Search(query string, limit int) ([]*Result, error)
}

// DebugStatser provides lightweight stats for visibility/debugging.
// Implemented by engines that can report index doc counts.
type DebugStatser interface {
	DocCount() (int, error)
}

// Result is a matching history entry with its relevance score.
type Result struct {
	Entry   *storage.HistoryEntry
	Score   float64
	Matches []Match
}

// Match represents where text was found
type Match struct {
	Field  string // "title", "description", "source"
	Text   string // matched text snippet
	Weight float64
}

// minQueryLength is the shortest query any engine answers.
const minQueryLength = 2
