package search

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/pders01/headline/internal/debuglog"
	"github.com/pders01/headline/internal/storage"
)

const docPrefix = "history:"

// HistoryIndex is a bleve full text index over the title history. It keeps
// itself current by following saves in the store.
type HistoryIndex struct {
	store *storage.Store
	idx   bleve.Index

	mu          sync.Mutex
	unsubscribe func()
}

// NewHistoryIndex creates or opens a bleve index at indexPath and indexes
// the stored history. An empty indexPath keeps the index in memory.
func NewHistoryIndex(store *storage.Store, indexPath string) (*HistoryIndex, error) {
	idx, err := openIndex(indexPath)
	if err != nil {
		return nil, err
	}

	h := &HistoryIndex{store: store, idx: idx}
	if err := h.reindexAll(); err != nil {
		_ = idx.Close()
		return nil, err
	}
	h.unsubscribe = store.Subscribe(h.onSave)
	return h, nil
}

func openIndex(indexPath string) (bleve.Index, error) {
	if indexPath == "" {
		return bleve.NewMemOnly(buildIndexMapping())
	}

	if idx, err := bleve.Open(indexPath); err == nil {
		return idx, nil
	}

	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	idx, err := bleve.New(indexPath, buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating index: %w", err)
	}
	return idx, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.Store = true
	title.IncludeTermVectors = true

	desc := bleve.NewTextFieldMapping()
	desc.Analyzer = standard.Name
	desc.Store = true

	source := bleve.NewTextFieldMapping()
	source.Analyzer = keyword.Name
	source.Store = true

	fetched := bleve.NewTextFieldMapping()
	fetched.Analyzer = keyword.Name
	fetched.Store = true
	fetched.Index = false

	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("description", desc)
	dm.AddFieldMappingsAt("source_url", source)
	dm.AddFieldMappingsAt("fetched_at", fetched)

	im.DefaultMapping = dm
	return im
}

func (h *HistoryIndex) reindexAll() error {
	entries, err := h.store.History("", 0)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	batch := h.idx.NewBatch()
	for _, e := range entries {
		if err := batch.Index(docID(e.ID), document(e)); err != nil {
			return err
		}
	}
	return h.idx.Batch(batch)
}

// onSave indexes the newest history entry of the saved source. Entry IDs
// are stable, so indexing an entry twice is harmless.
func (h *HistoryIndex) onSave(rec *storage.TitleRecord) {
	latest, err := h.store.History(rec.SourceURL, 1)
	if err != nil || len(latest) == 0 {
		return
	}
	if err := h.Index(latest[0]); err != nil {
		debuglog.Warnf("indexing history entry %d: %v", latest[0].ID, err)
	}
}

// Index adds or replaces a single history entry.
func (h *HistoryIndex) Index(entry *storage.HistoryEntry) error {
	return h.idx.Index(docID(entry.ID), document(entry))
}

// Search matches query against titles and descriptions, best match first.
func (h *HistoryIndex) Search(query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < minQueryLength {
		return []*Result{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	var qs []bleveQuery.Query
	for _, tok := range tokenize(query) {
		qt := bleve.NewMatchQuery(tok)
		qt.SetField("title")
		qt.SetBoost(4.0)
		qs = append(qs, qt)
		qtp := bleve.NewPrefixQuery(tok)
		qtp.SetField("title")
		qtp.SetBoost(3.5)
		qs = append(qs, qtp)

		qd := bleve.NewMatchQuery(tok)
		qd.SetField("description")
		qd.SetBoost(2.0)
		qs = append(qs, qd)
		qdp := bleve.NewPrefixQuery(tok)
		qdp.SetField("description")
		qdp.SetBoost(1.8)
		qs = append(qs, qdp)
	}
	if len(qs) == 0 {
		return []*Result{}, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	req.Fields = []string{"title", "description", "source_url", "fetched_at"}
	res, err := h.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("searching history: %w", err)
	}

	out := make([]*Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		id, err := strconv.ParseUint(strings.TrimPrefix(hit.ID, docPrefix), 10, 64)
		if err != nil {
			continue
		}
		entry := &storage.HistoryEntry{ID: id}
		if t, ok := hit.Fields["title"].(string); ok {
			entry.Title = t
		}
		if d, ok := hit.Fields["description"].(string); ok {
			entry.Description = d
		}
		if u, ok := hit.Fields["source_url"].(string); ok {
			entry.SourceURL = u
		}
		if f, ok := hit.Fields["fetched_at"].(string); ok {
			entry.FetchedAt, _ = time.Parse(time.RFC3339Nano, f)
		}
		out = append(out, &Result{
			Entry:   entry,
			Score:   hit.Score,
			Matches: []Match{{Field: "title", Text: entry.Title, Weight: hit.Score}},
		})
	}
	return out, nil
}

// RemoveSource drops every indexed entry of sourceURL.
func (h *HistoryIndex) RemoveSource(sourceURL string) error {
	q := bleve.NewTermQuery(sourceURL)
	q.SetField("source_url")

	for {
		res, err := h.idx.Search(bleve.NewSearchRequestOptions(q, 500, 0, false))
		if err != nil {
			return fmt.Errorf("finding entries of %s: %w", sourceURL, err)
		}
		if len(res.Hits) == 0 {
			return nil
		}
		batch := h.idx.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := h.idx.Batch(batch); err != nil {
			return fmt.Errorf("removing entries of %s: %w", sourceURL, err)
		}
	}
}

// DocCount reports total documents in the index.
func (h *HistoryIndex) DocCount() (int, error) {
	n, err := h.idx.DocCount()
	return int(n), err
}

// Close stops following the store and closes the index.
func (h *HistoryIndex) Close() error {
	h.mu.Lock()
	if h.unsubscribe != nil {
		h.unsubscribe()
		h.unsubscribe = nil
	}
	h.mu.Unlock()
	return h.idx.Close()
}

func document(e *storage.HistoryEntry) map[string]any {
	return map[string]any{
		"title":       e.Title,
		"description": e.Description,
		"source_url":  e.SourceURL,
		"fetched_at":  e.FetchedAt.Format(time.RFC3339Nano),
	}
}

func docID(id uint64) string {
	return docPrefix + strconv.FormatUint(id, 10)
}
