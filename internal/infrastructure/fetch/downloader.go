package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"MaterialHarvester/internal/config"
	"MaterialHarvester/internal/domain"
	"MaterialHarvester/internal/infrastructure/cache"
)

// Request names one link to resolve on behalf of a material.
type Request struct {
	MaterialID int
	Link       domain.Link
}

// Outcome is the terminal state of one request: a cache entry on success,
// a classified error otherwise. Every submitted request produces exactly one
// outcome; nothing is silently dropped.
type Outcome struct {
	MaterialID int
	Link       domain.Link
	Entry      *domain.CacheEntry
	FromCache  bool
	Attempts   int
	Err        error
}

// Downloader resolves links to cache entries under a hard bound on
// simultaneously in-flight network operations. Unbounded fan-out against
// remote document hosts produces connection resets and socket exhaustion,
// so the bound is a ceiling, not a target.
type Downloader struct {
	store  *cache.Store
	client *http.Client
	cfg    config.DownloadConfig
	logger *slog.Logger
}

// NewDownloader wires the cache store and an HTTP client.
func NewDownloader(store *cache.Store, client *http.Client, cfg config.DownloadConfig, logger *slog.Logger) *Downloader {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout()}
	}
	return &Downloader{store: store, client: client, cfg: cfg, logger: logger}
}

// FetchAll resolves every request to an outcome. Cache hits short-circuit
// without network I/O; misses are fetched with at most cfg.Concurrency
// in flight at once.
func (d *Downloader) FetchAll(ctx context.Context, requests []Request) []Outcome {
	outcomes := make([]Outcome, len(requests))
	var misses []int

	for i, req := range requests {
		outcomes[i] = Outcome{MaterialID: req.MaterialID, Link: req.Link}

		key := domain.KeyForURL(req.Link.URL)
		entry, ok, err := d.store.Get(key)
		if err != nil {
			outcomes[i].Err = err
			continue
		}
		if ok {
			outcomes[i].Entry = entry
			outcomes[i].FromCache = true
			continue
		}
		misses = append(misses, i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency())

	for _, idx := range misses {
		idx := idx
		g.Go(func() error {
			req := requests[idx]
			outcomes[idx] = d.fetchAndCache(gctx, req)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (d *Downloader) fetchAndCache(ctx context.Context, req Request) Outcome {
	out := Outcome{MaterialID: req.MaterialID, Link: req.Link}

	payload, attempts, err := d.fetchWithRetry(ctx, req.Link.URL)
	out.Attempts = attempts
	if err != nil {
		out.Err = err
		d.debug("fetch failed", "url", req.Link.URL, "attempts", attempts, "error", err)
		return out
	}

	// A cancelled fetch must never commit partial data.
	if ctx.Err() != nil {
		out.Err = ctx.Err()
		return out
	}

	sniffed := Sniff(payload)
	entry, err := d.store.Put(domain.KeyForURL(req.Link.URL), payload, sniffed)
	if err != nil {
		out.Err = fmt.Errorf("cache write: %w", err)
		return out
	}

	out.Entry = entry
	d.debug("fetched", "url", req.Link.URL, "type", string(sniffed), "bytes", len(payload))
	return out
}

func (d *Downloader) fetchWithRetry(ctx context.Context, url string) ([]byte, int, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.cfg.BackoffBase()
	bo.MaxInterval = d.cfg.BackoffMax()
	bo.MaxElapsedTime = 0
	if d.cfg.BackoffJitter > 0 {
		bo.RandomizationFactor = d.cfg.BackoffJitter
	}

	var payload []byte
	attempts := 0

	operation := func() error {
		attempts++
		data, err := d.fetchOnce(ctx, url)
		if err != nil {
			if domain.IsTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		payload = data
		return nil
	}

	ceiling := d.cfg.RetryCeiling
	if ceiling < 0 {
		ceiling = 0
	}
	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(ceiling)), ctx))
	if err != nil {
		return nil, attempts, err
	}
	return payload, attempts, nil
}

func (d *Downloader) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", d.cfg.UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.StatusError{Code: resp.StatusCode}
	}

	limit := d.cfg.MaxPayloadBytes
	if limit <= 0 {
		limit = 64 << 20
	}
	if resp.ContentLength > limit {
		return nil, domain.ErrPayloadTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, domain.ErrPayloadTooLarge
	}

	return data, nil
}

func (d *Downloader) concurrency() int {
	if d.cfg.Concurrency <= 0 {
		return 1
	}
	return d.cfg.Concurrency
}

func (d *Downloader) debug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
