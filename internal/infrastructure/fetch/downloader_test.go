package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"MaterialHarvester/internal/config"
	"MaterialHarvester/internal/domain"
	"MaterialHarvester/internal/infrastructure/cache"
)

func testDownloadConfig() config.DownloadConfig {
	return config.DownloadConfig{
		Concurrency:     4,
		RetryCeiling:    3,
		BackoffBaseMs:   1,
		BackoffMaxMs:    5,
		MaxPayloadBytes: 1 << 20,
		TimeoutSec:      5,
		UserAgent:       "test-harvester",
	}
}

func openTestStore(t *testing.T) *cache.Store {
	t.Helper()
	store, err := cache.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestFetchAllCacheHitSkipsNetwork(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte("fresh body"))
	}))
	defer server.Close()

	store := openTestStore(t)
	url := server.URL + "/doc.txt"
	if _, err := store.Put(domain.KeyForURL(url), []byte("cached body"), domain.ContentTypeText); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	d := NewDownloader(store, server.Client(), testDownloadConfig(), nil)
	outcomes := d.FetchAll(context.Background(), []Request{{MaterialID: 1, Link: domain.Link{URL: url}}})

	if outcomes[0].Err != nil {
		t.Fatalf("unexpected error: %v", outcomes[0].Err)
	}
	if !outcomes[0].FromCache {
		t.Fatalf("expected cache hit")
	}
	if requests.Load() != 0 {
		t.Fatalf("cache hit made %d network requests", requests.Load())
	}
}

func TestFetchAllRetriesServerError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer server.Close()

	d := NewDownloader(openTestStore(t), server.Client(), testDownloadConfig(), nil)
	outcomes := d.FetchAll(context.Background(), []Request{{MaterialID: 1, Link: domain.Link{URL: server.URL + "/flaky"}}})

	if outcomes[0].Err != nil {
		t.Fatalf("expected recovery, got %v", outcomes[0].Err)
	}
	if outcomes[0].Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", outcomes[0].Attempts)
	}
	if outcomes[0].FromCache {
		t.Fatalf("fresh fetch reported as cache hit")
	}
}

func TestFetchAllDoesNotRetryClientError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	d := NewDownloader(openTestStore(t), server.Client(), testDownloadConfig(), nil)
	outcomes := d.FetchAll(context.Background(), []Request{{MaterialID: 1, Link: domain.Link{URL: server.URL + "/gone"}}})

	var statusErr *domain.StatusError
	if !errors.As(outcomes[0].Err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 status error, got %v", outcomes[0].Err)
	}
	if calls.Load() != 1 {
		t.Fatalf("client error was retried %d times", calls.Load())
	}
}

func TestFetchAllRejectsOversizePayload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer server.Close()

	cfg := testDownloadConfig()
	cfg.MaxPayloadBytes = 10

	d := NewDownloader(openTestStore(t), server.Client(), cfg, nil)
	outcomes := d.FetchAll(context.Background(), []Request{{MaterialID: 1, Link: domain.Link{URL: server.URL + "/big"}}})

	if !errors.Is(outcomes[0].Err, domain.ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", outcomes[0].Err)
	}
	if outcomes[0].Attempts != 1 {
		t.Fatalf("oversize payload was retried %d times", outcomes[0].Attempts)
	}
}

func TestFetchAllBoundsInFlightRequests(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()

		_, _ = w.Write([]byte("body"))
	}))
	defer server.Close()

	cfg := testDownloadConfig()
	cfg.Concurrency = 2

	requests := make([]Request, 12)
	for i := range requests {
		requests[i] = Request{MaterialID: i, Link: domain.Link{URL: server.URL + "/doc-" + strconv.Itoa(i)}}
	}

	d := NewDownloader(openTestStore(t), server.Client(), cfg, nil)
	outcomes := d.FetchAll(context.Background(), requests)

	for _, out := range outcomes {
		if out.Err != nil {
			t.Fatalf("unexpected error: %v", out.Err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if maxInFlight > 2 {
		t.Fatalf("in-flight requests peaked at %d, limit is 2", maxInFlight)
	}
}

func TestFetchAllClassifiesByMagicBytesNotExtension(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.4\n1 0 obj\nendobj\n"))
	}))
	defer server.Close()

	d := NewDownloader(openTestStore(t), server.Client(), testDownloadConfig(), nil)
	outcomes := d.FetchAll(context.Background(), []Request{{MaterialID: 1, Link: domain.Link{URL: server.URL + "/lecture.txt"}}})

	if outcomes[0].Err != nil {
		t.Fatalf("unexpected error: %v", outcomes[0].Err)
	}
	if outcomes[0].Entry.ContentType != domain.ContentTypePDF {
		t.Fatalf("expected pdf from magic bytes, got %s", outcomes[0].Entry.ContentType)
	}
}

func TestFetchAllSendsUserAgent(t *testing.T) {
	t.Parallel()

	var agent atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent.Store(r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("body"))
	}))
	defer server.Close()

	d := NewDownloader(openTestStore(t), server.Client(), testDownloadConfig(), nil)
	d.FetchAll(context.Background(), []Request{{MaterialID: 1, Link: domain.Link{URL: server.URL + "/doc"}}})

	if got, _ := agent.Load().(string); got != "test-harvester" {
		t.Fatalf("unexpected user agent: %q", got)
	}
}
