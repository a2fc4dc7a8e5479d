package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pders01/headline/internal/config"
	"github.com/pders01/headline/internal/feed"
	"github.com/pders01/headline/internal/refresh"
	"github.com/pders01/headline/internal/search"
	"github.com/pders01/headline/internal/storage"
)

var (
	server       *httptest.Server
	rotatingHits atomic.Int32
	slowRelease  = make(chan struct{})
)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
	<channel>
		<title>Integration RSS</title>
		<link>http://127.0.0.1/</link>
		<description>RSS fixture</description>
		<item><title>Item One</title></item>
	</channel>
</rss>`

const atomFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
	<title>Integration Atom</title>
	<link href="http://127.0.0.1/"/>
	<id>urn:uuid:60a76c80-d399-11d9-b93C-0003939e0af6</id>
	<updated>2025-01-01T12:00:00Z</updated>
</feed>`

func TestMain(m *testing.M) {
	mux := http.NewServeMux()
	mux.HandleFunc("/feed.rss", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssFeed)
	})
	mux.HandleFunc("/feed.atom", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, atomFeed)
	})
	mux.HandleFunc("/cached-feed.rss", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == "\"test-etag-123\"" {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", "\"test-etag-123\"")
		w.Header().Set("Last-Modified", "Wed, 01 Jan 2025 00:00:00 GMT")
		fmt.Fprint(w, rssFeed)
	})
	mux.HandleFunc("/rotating.rss", func(w http.ResponseWriter, r *http.Request) {
		n := rotatingHits.Add(1)
		fmt.Fprintf(w, `<rss version="2.0"><channel><title>Edition %d</title></channel></rss>`, n)
	})
	mux.HandleFunc("/rate-limited.rss", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	mux.HandleFunc("/broken.rss", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<rss><channel><title>Broken")
	})
	mux.HandleFunc("/slow.rss", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-slowRelease:
		case <-r.Context().Done():
			return
		}
		fmt.Fprint(w, rssFeed)
	})

	server = httptest.NewServer(mux)

	code := m.Run()

	close(slowRelease)
	server.Close()
	os.Exit(code)
}

type testEnv struct {
	store *storage.Store
	repo  *feed.TitleRepository
}

func setupTestEnvironment(t *testing.T, path string) *testEnv {
	t.Helper()

	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := config.TestConfig()
	cfg.Source.URL = server.URL + path

	repo, err := feed.NewTitleRepository(store, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return &testEnv{store: store, repo: repo}
}

// refreshOnce runs one cycle through a coordinator and waits for it.
func refreshOnce(t *testing.T, env *testEnv) *refresh.Coordinator {
	t.Helper()

	c := refresh.New(env.repo)
	t.Cleanup(c.Dispose)
	if !c.RequestRefresh() {
		t.Fatal("refresh request rejected")
	}
	if err := c.Wait(); err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	return c
}

func TestIntegration_RefreshRSSFeed(t *testing.T) {
	env := setupTestEnvironment(t, "/feed.rss")

	c := refreshOnce(t, env)

	if got := c.CurrentTitle(); got != "Integration RSS" {
		t.Errorf("expected title 'Integration RSS', got %q", got)
	}
	if c.IsBusy() {
		t.Error("coordinator still busy after Wait")
	}
	if _, ok := c.TakeMessage(); ok {
		t.Error("unexpected message after successful refresh")
	}

	rec, err := env.store.GetTitle(env.repo.SourceURL())
	if err != nil {
		t.Fatalf("title not stored: %v", err)
	}
	if rec.Description != "RSS fixture" {
		t.Errorf("expected description 'RSS fixture', got %q", rec.Description)
	}
}

func TestIntegration_RefreshAtomFeed(t *testing.T) {
	env := setupTestEnvironment(t, "/feed.atom")

	c := refreshOnce(t, env)

	if got := c.CurrentTitle(); got != "Integration Atom" {
		t.Errorf("expected title 'Integration Atom', got %q", got)
	}
}

func TestIntegration_CachingHeaders(t *testing.T) {
	env := setupTestEnvironment(t, "/cached-feed.rss")

	refreshOnce(t, env)

	rec, err := env.store.GetTitle(env.repo.SourceURL())
	if err != nil {
		t.Fatal(err)
	}
	if rec.ETag != "\"test-etag-123\"" {
		t.Errorf("expected ETag \"test-etag-123\", got %s", rec.ETag)
	}
	if rec.LastModified == "" {
		t.Error("expected Last-Modified header to be stored")
	}

	// Second refresh gets 304 and keeps the title.
	c := refreshOnce(t, env)
	if got := c.CurrentTitle(); got != "Integration RSS" {
		t.Errorf("expected title kept after 304, got %q", got)
	}

	history, err := env.store.History(env.repo.SourceURL(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Errorf("expected 1 history entry, got %d", len(history))
	}
}

func TestIntegration_DeclaredErrors(t *testing.T) {
	for _, path := range []string{"/rate-limited.rss", "/broken.rss", "/missing.rss"} {
		t.Run(path, func(t *testing.T) {
			env := setupTestEnvironment(t, path)

			c := refreshOnce(t, env)

			msg, ok := c.TakeMessage()
			if !ok {
				t.Fatal("expected a refresh message")
			}
			if msg != feed.RefreshFailedMessage {
				t.Errorf("expected %q, got %q", feed.RefreshFailedMessage, msg)
			}
			if _, ok := c.TakeMessage(); ok {
				t.Error("message delivered twice")
			}
			if c.Err() != nil {
				t.Errorf("declared error treated as fatal: %v", c.Err())
			}
		})
	}
}

func TestIntegration_StorageFailureIsFatal(t *testing.T) {
	env := setupTestEnvironment(t, "/feed.rss")

	var fatal atomic.Int32
	c := refresh.New(env.repo, refresh.WithFatalHandler(func(error) { fatal.Add(1) }))
	defer c.Dispose()

	if err := env.store.Close(); err != nil {
		t.Fatal(err)
	}

	c.RequestRefresh()
	if err := c.Wait(); err == nil {
		t.Fatal("expected a fatal error from the closed store")
	}
	if fatal.Load() != 1 {
		t.Errorf("expected fatal handler once, got %d", fatal.Load())
	}
	if _, ok := c.TakeMessage(); ok {
		t.Error("storage failures must not surface as messages")
	}
	if c.RequestRefresh() {
		t.Error("requests after a fatal error must be rejected")
	}
}

func TestIntegration_DisposeDuringRefresh(t *testing.T) {
	env := setupTestEnvironment(t, "/slow.rss")

	c := refresh.New(env.repo)
	if !c.RequestRefresh() {
		t.Fatal("refresh request rejected")
	}
	if !c.IsBusy() {
		t.Error("expected busy right after the request")
	}

	c.Dispose()
	if err := c.Wait(); err != nil {
		t.Errorf("cancellation must not be fatal: %v", err)
	}

	if c.CurrentTitle() != "" {
		t.Errorf("no title expected after dispose, got %q", c.CurrentTitle())
	}
	if _, err := env.store.GetTitle(env.repo.SourceURL()); err == nil {
		t.Error("a cancelled refresh must not store a title")
	}
}

func TestIntegration_HistorySearch(t *testing.T) {
	env := setupTestEnvironment(t, "/rotating.rss")

	idx, err := search.NewHistoryIndex(env.store, "")
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	for i := 0; i < 3; i++ {
		refreshOnce(t, env)
	}

	count, err := idx.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("expected 3 indexed titles, got %d", count)
	}

	results, err := idx.Search("edition", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestIntegration_ConcurrentRequests(t *testing.T) {
	env := setupTestEnvironment(t, "/feed.rss")

	c := refresh.New(env.repo)
	defer c.Dispose()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RequestRefresh()
		}()
	}
	wg.Wait()

	if err := c.Wait(); err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if c.IsBusy() {
		t.Error("busy must settle to false once all cycles finish")
	}
	if got := c.CurrentTitle(); got != "Integration RSS" {
		t.Errorf("expected title 'Integration RSS', got %q", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	select {
	case <-ctx.Done():
		t.Error("expected a pending change notification")
	case <-c.Changes():
	}
}
