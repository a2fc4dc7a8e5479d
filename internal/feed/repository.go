package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pders01/headline/internal/config"
	"github.com/pders01/headline/internal/debuglog"
	"github.com/pders01/headline/internal/refresh"
	"github.com/pders01/headline/internal/storage"
	"github.com/pders01/headline/internal/validation"
)

// RefreshFailedMessage is shown when the source cannot be fetched or parsed.
const RefreshFailedMessage = "Unable to refresh title"

// TitleRepository keeps the title of one source in the store and refreshes
// it from the network. It implements refresh.TitleSource.
type TitleRepository struct {
	store     *storage.Store
	fetcher   *Fetcher
	parser    *Parser
	sourceURL string
	log       *debuglog.FieldLogger
}

var _ refresh.TitleSource = (*TitleRepository)(nil)

func NewTitleRepository(store *storage.Store, cfg *config.Config) (*TitleRepository, error) {
	validator := validation.NewSourceURLValidator()
	if cfg.Source.AllowPrivate {
		validator = validation.NewPermissiveSourceURLValidator()
	}

	sourceURL, err := validator.ValidateAndNormalize(cfg.Source.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid source URL: %w", err)
	}

	return &TitleRepository{
		store:     store,
		fetcher:   NewFetcher(cfg),
		parser:    NewParser(),
		sourceURL: sourceURL,
		log:       debuglog.WithFields(map[string]any{"source": sourceURL}),
	}, nil
}

func (r *TitleRepository) SourceURL() string {
	return r.sourceURL
}

// Record returns the stored record, or nil if the source was never fetched.
func (r *TitleRepository) Record() (*storage.TitleRecord, error) {
	rec, err := r.store.GetTitle(r.sourceURL)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

// Title returns the stored title, or "" if there is none yet.
func (r *TitleRepository) Title() string {
	rec, err := r.Record()
	if err != nil || rec == nil {
		return ""
	}
	return rec.Title
}

// Subscribe calls fn with every title saved for this source.
func (r *TitleRepository) Subscribe(fn func(title string)) (cancel func()) {
	return r.store.Subscribe(func(rec *storage.TitleRecord) {
		if rec.SourceURL == r.sourceURL {
			fn(rec.Title)
		}
	})
}

// Refresh fetches the source and stores its title. Network and feed format
// problems are returned as *refresh.Error; storage failures are not.
func (r *TitleRepository) Refresh(ctx context.Context) error {
	rec, err := r.Record()
	if err != nil {
		return fmt.Errorf("loading title: %w", err)
	}
	if rec == nil {
		rec = &storage.TitleRecord{SourceURL: r.sourceURL}
	}

	resp, updated, err := r.fetcher.Fetch(ctx, rec)
	if err != nil {
		return r.declare(ctx, err)
	}

	if !updated {
		r.log.Debugf("source not modified")
		rec.LastFetched = time.Now()
		return r.save(rec)
	}
	defer resp.Body.Close()

	headline, err := r.parser.Parse(resp.Body)
	if err != nil {
		return r.declare(ctx, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rec.Title = headline.Title
	rec.Description = headline.Description
	rec.Link = headline.Link
	r.fetcher.UpdateMetadata(rec, resp)
	rec.UpdatedAt = time.Now()

	r.log.Infof("title refreshed: %q", rec.Title)
	return r.save(rec)
}

func (r *TitleRepository) declare(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	r.log.Warnf("refresh failed: %v", err)
	return &refresh.Error{Message: RefreshFailedMessage, Err: err}
}

func (r *TitleRepository) save(rec *storage.TitleRecord) error {
	if err := r.store.SaveTitle(rec); err != nil {
		return fmt.Errorf("storing title: %w", err)
	}
	return nil
}
