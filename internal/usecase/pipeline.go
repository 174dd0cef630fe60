package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"MaterialHarvester/internal/domain"
	"MaterialHarvester/internal/extract"
	"MaterialHarvester/internal/index"
	"MaterialHarvester/internal/infrastructure/cache"
	"MaterialHarvester/internal/infrastructure/fetch"
	"MaterialHarvester/internal/ports"
)

// PipelineDeps wires all driven adapters into the harvest pipeline.
type PipelineDeps struct {
	Source     ports.MaterialSource
	Downloader *fetch.Downloader
	Store      *cache.Store
	Extractor  *extract.Extractor
	Corpus     *index.Corpus
	Sink       ports.ResultSink
	Repository ports.KeywordRepository
	Logger     *slog.Logger
}

// Pipeline implements the harvest workflow: list materials, resolve every
// link through the cache, extract text, score keywords over the whole corpus,
// and publish results. Individual link failures are recorded, never fatal.
type Pipeline struct {
	source     ports.MaterialSource
	downloader *fetch.Downloader
	store      *cache.Store
	extractor  *extract.Extractor
	corpus     *index.Corpus
	sink       ports.ResultSink
	repository ports.KeywordRepository
	logger     *slog.Logger
}

// Stats summarizes one pipeline run.
type Stats struct {
	Materials      int
	Links          int
	Fetched        int
	CacheHits      int
	BrokenLinks    int
	TypeMismatches int
	Extracted      int
	NoKeywords     int
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		source:     deps.Source,
		downloader: deps.Downloader,
		store:      deps.Store,
		extractor:  deps.Extractor,
		corpus:     deps.Corpus,
		sink:       deps.Sink,
		repository: deps.Repository,
		logger:     deps.Logger,
	}
}

// Run executes one full harvest and returns its stats. It fails only on
// errors that invalidate the whole run: listing materials, sealing results,
// or writing outputs.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	materials, err := p.source.ListMaterials(ctx)
	if err != nil {
		return stats, fmt.Errorf("list materials: %w", err)
	}
	stats.Materials = len(materials)

	titles := make(map[int]string, len(materials))
	requests := make([]fetch.Request, 0, len(materials))
	for _, material := range materials {
		titles[material.ID] = material.Title
		for _, link := range material.Links {
			requests = append(requests, fetch.Request{MaterialID: material.ID, Link: link})
		}
	}
	stats.Links = len(requests)
	p.info("harvest started", "materials", stats.Materials, "links", stats.Links)

	outcomes := p.downloader.FetchAll(ctx, requests)
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	var broken []domain.BrokenLink
	var mismatches []domain.TypeMismatch
	failures := map[int][]string{}

	for _, out := range outcomes {
		if out.Err != nil {
			stats.BrokenLinks++
			broken = append(broken, domain.BrokenLink{
				MaterialID: out.MaterialID,
				URL:        out.Link.URL,
				Attempts:   out.Attempts,
				Reason:     out.Err.Error(),
			})
			failures[out.MaterialID] = append(failures[out.MaterialID], "fetch:"+failureReason(out.Err))
			p.warn("link failed", "material", out.MaterialID, "url", out.Link.URL, "attempts", out.Attempts, "error", out.Err)
			continue
		}

		if out.FromCache {
			stats.CacheHits++
		} else {
			stats.Fetched++
		}

		if !fetch.MatchesHint(out.Entry.ContentType, out.Link.MediaHint) {
			stats.TypeMismatches++
			mismatches = append(mismatches, domain.TypeMismatch{
				MaterialID: out.MaterialID,
				URL:        out.Link.URL,
				Declared:   out.Link.MediaHint,
				Sniffed:    out.Entry.ContentType,
			})
		}

		text, extErr := p.extractText(out.Entry)
		if extErr != nil {
			failures[out.MaterialID] = append(failures[out.MaterialID], "extract:"+failureReason(extErr))
			p.debug("extraction failed", "url", out.Link.URL, "type", string(out.Entry.ContentType), "error", extErr)
			continue
		}

		stats.Extracted++
		if err := p.corpus.Accumulate(out.MaterialID, titles[out.MaterialID], text); err != nil {
			return stats, fmt.Errorf("accumulate material %d: %w", out.MaterialID, err)
		}
	}

	p.corpus.Freeze()
	sets := p.corpus.Keywords()

	// Attach collected failures, then add a terms-less set for every material
	// that produced no tokens at all.
	scored := make(map[int]bool, len(sets))
	for i := range sets {
		sets[i].Failures = dedupe(failures[sets[i].MaterialID])
		scored[sets[i].MaterialID] = true
	}
	for _, material := range materials {
		if scored[material.ID] {
			continue
		}
		stats.NoKeywords++
		sets = append(sets, domain.KeywordSet{
			MaterialID: material.ID,
			Title:      material.Title,
			Failures:   dedupe(failures[material.ID]),
		})
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].MaterialID < sets[j].MaterialID })

	if err := p.sink.WriteKeywords(ctx, sets); err != nil {
		return stats, fmt.Errorf("write keywords: %w", err)
	}
	if err := p.sink.WriteBrokenLinks(ctx, broken); err != nil {
		return stats, fmt.Errorf("write broken links: %w", err)
	}
	if err := p.sink.WriteTypeMismatches(ctx, mismatches); err != nil {
		return stats, fmt.Errorf("write type mismatches: %w", err)
	}

	if p.repository != nil {
		if err := p.repository.SaveKeywordSets(ctx, sets); err != nil {
			return stats, fmt.Errorf("persist keywords: %w", err)
		}
	}

	p.info("harvest finished",
		"materials", stats.Materials,
		"links", stats.Links,
		"fetched", stats.Fetched,
		"cache_hits", stats.CacheHits,
		"broken_links", stats.BrokenLinks,
		"type_mismatches", stats.TypeMismatches,
		"extracted", stats.Extracted,
		"no_keywords", stats.NoKeywords,
	)

	return stats, nil
}

func (p *Pipeline) extractText(entry *domain.CacheEntry) (string, error) {
	payload, err := p.store.ReadPayload(entry)
	if err != nil {
		return "", err
	}
	return p.extractor.Extract(entry.ContentType, payload)
}

// failureReason reduces an error to a short stable label for the output rows.
func failureReason(err error) string {
	var extErr *domain.ExtractionError
	if errors.As(err, &extErr) {
		return string(extErr.Kind)
	}

	var statusErr *domain.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("status_%d", statusErr.Code)
	}
	if errors.Is(err, domain.ErrPayloadTooLarge) {
		return "too_large"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}

	reason := err.Error()
	if idx := strings.IndexByte(reason, ':'); idx > 0 {
		reason = reason[:idx]
	}
	return strings.ReplaceAll(reason, " ", "_")
}

func dedupe(values []string) []string {
	if len(values) < 2 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
