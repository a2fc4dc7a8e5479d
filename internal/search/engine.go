package search

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/pders01/headline/internal/storage"
)

// Engine scans the stored history directly. It needs no index and is used
// when the bleve index cannot be opened.
type Engine struct {
	store *storage.Store
}

// NewEngine creates a new scanning search engine
func NewEngine(store *storage.Store) *Engine {
	return &Engine{store: store}
}

// Search scores every history entry against query
func (e *Engine) Search(query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < minQueryLength {
		return []*Result{}, nil
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return []*Result{}, nil
	}

	entries, err := e.store.History("", 0)
	if err != nil {
		return nil, err
	}

	results := []*Result{}
	for _, entry := range entries {
		if result := e.searchEntry(entry, terms); result != nil {
			results = append(results, result)
		}
	}

	// Stable keeps newer entries first among equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// DocCount reports how many history entries the engine scans.
func (e *Engine) DocCount() (int, error) {
	entries, err := e.store.History("", 0)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (e *Engine) searchEntry(entry *storage.HistoryEntry, terms []string) *Result {
	var matches []Match
	var totalScore float64

	if titleScore := scoreField(entry.Title, terms, 4.0); titleScore > 0 {
		matches = append(matches, Match{
			Field:  "title",
			Text:   entry.Title,
			Weight: titleScore,
		})
		totalScore += titleScore
	}

	if descScore := scoreField(entry.Description, terms, 2.0); descScore > 0 {
		matches = append(matches, Match{
			Field:  "description",
			Text:   findBestSnippet(entry.Description, terms, 150),
			Weight: descScore,
		})
		totalScore += descScore
	}

	if urlScore := scoreField(entry.SourceURL, terms, 0.5); urlScore > 0 {
		matches = append(matches, Match{
			Field:  "source",
			Text:   entry.SourceURL,
			Weight: urlScore,
		})
		totalScore += urlScore
	}

	if totalScore == 0 {
		return nil
	}
	return &Result{Entry: entry, Score: totalScore, Matches: matches}
}

// scoreField calculates relevance score for a field
func scoreField(text string, terms []string, weight float64) float64 {
	if text == "" {
		return 0
	}

	lower := strings.ToLower(text)
	words := tokenize(text)
	if len(words) == 0 {
		return 0
	}

	var score float64
	matchedTerms := 0

	for _, term := range terms {
		if strings.Contains(lower, term) {
			score += 2.0
			matchedTerms++
		}

		for _, word := range words {
			switch {
			case word == term:
				score += 1.5
				matchedTerms++
			case strings.HasPrefix(word, term) || strings.HasSuffix(word, term):
				score += 1.0
				matchedTerms++
			case strings.Contains(word, term):
				score += 0.5
				matchedTerms++
			}
		}
	}

	if len(terms) > 1 && matchedTerms > 1 {
		score *= 1.0 + float64(matchedTerms)/float64(len(terms))
	}

	tf := float64(matchedTerms) / float64(len(words))
	score *= 1.0 + math.Log(1.0+tf)

	return score * weight
}

// findBestSnippet finds the most relevant text snippet containing search terms
func findBestSnippet(text string, terms []string, maxLength int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	windowSize := maxLength / 8
	if windowSize >= len(words) {
		return truncate(text, maxLength)
	}

	bestScore := 0
	bestStart := 0
	for i := 0; i <= len(words)-windowSize; i++ {
		window := strings.ToLower(strings.Join(words[i:i+windowSize], " "))
		score := 0
		for _, term := range terms {
			if strings.Contains(window, term) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestStart = i
		}
	}

	return truncate(strings.Join(words[bestStart:bestStart+windowSize], " "), maxLength)
}

// tokenize breaks text into lowercase searchable terms
func tokenize(text string) []string {
	var terms []string
	current := strings.Builder{}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
		} else if current.Len() > 0 {
			if term := current.String(); len(term) > 1 { // Skip single chars
				terms = append(terms, term)
			}
			current.Reset()
		}
	}

	if current.Len() > 1 {
		terms = append(terms, current.String())
	}

	return terms
}

// truncate limits text length with ellipsis
func truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen-1]) + "…"
}
