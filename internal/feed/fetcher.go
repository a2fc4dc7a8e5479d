package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pders01/headline/internal/config"
	"github.com/pders01/headline/internal/storage"
)

const (
	defaultUserAgent = "headline/1.0 (https://github.com/pders01/headline)"
	defaultTimeout   = 30 * time.Second
)

// StatusError reports an HTTP response the fetcher does not accept.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s", e.Code, http.StatusText(e.Code))
}

type Fetcher struct {
	client    *http.Client
	userAgent string
}

func NewFetcher(cfg *config.Config) *Fetcher {
	timeout := defaultTimeout
	userAgent := defaultUserAgent
	if cfg != nil {
		if cfg.Source.HTTPTimeout > 0 {
			timeout = cfg.Source.HTTPTimeout
		}
		if cfg.Source.UserAgent != "" {
			userAgent = cfg.Source.UserAgent
		}
	}

	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Fetch performs a conditional GET for rec. It returns updated=false and a
// nil response when the server answers 304 Not Modified.
func (f *Fetcher) Fetch(ctx context.Context, rec *storage.TitleRecord) (*http.Response, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rec.SourceURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/feed+json, application/xml, text/xml")

	if rec.ETag != "" {
		req.Header.Set("If-None-Match", rec.ETag)
	}
	if rec.LastModified != "" {
		req.Header.Set("If-Modified-Since", rec.LastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("fetching source: %w", err)
	}

	if resp.StatusCode == http.StatusNotModified {
		resp.Body.Close()
		return nil, false, nil
	}

	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, false, &StatusError{Code: resp.StatusCode}
	}

	return resp, true, nil
}

// UpdateMetadata copies cache validators from resp into rec.
func (f *Fetcher) UpdateMetadata(rec *storage.TitleRecord, resp *http.Response) {
	if etag := resp.Header.Get("ETag"); etag != "" {
		rec.ETag = etag
	}
	if lastMod := resp.Header.Get("Last-Modified"); lastMod != "" {
		rec.LastModified = lastMod
	}
	rec.LastFetched = time.Now()
}
