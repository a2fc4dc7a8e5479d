package storage

import (
	"time"
)

// TitleRecord is the last known state of a title source.
type TitleRecord struct {
	SourceURL    string    `json:"source_url"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Link         string    `json:"link"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"last_modified"`
	LastFetched  time.Time `json:"last_fetched"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HistoryEntry is one distinct title a source has had.
type HistoryEntry struct {
	ID          uint64    `json:"id"`
	SourceURL   string    `json:"source_url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	FetchedAt   time.Time `json:"fetched_at"`
}
