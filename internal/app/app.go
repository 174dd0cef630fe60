package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"MaterialHarvester/internal/config"
	"MaterialHarvester/internal/extract"
	"MaterialHarvester/internal/index"
	"MaterialHarvester/internal/infrastructure/cache"
	"MaterialHarvester/internal/infrastructure/fetch"
	"MaterialHarvester/internal/infrastructure/merlot"
	"MaterialHarvester/internal/infrastructure/report"
	"MaterialHarvester/internal/infrastructure/storage"
	"MaterialHarvester/internal/logging"
	"MaterialHarvester/internal/ports"
	"MaterialHarvester/internal/usecase"
)

// Application wires configuration into the harvest pipeline and owns the
// resources that need closing after a run.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	store    *cache.Store
	db       *sql.DB
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := cache.Open(cfg.Download.CacheDir, baseLogger.With("component", "cache"))
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	source := merlot.NewClient(cfg.Catalog, nil, baseLogger.With("component", "catalog"))
	downloader := fetch.NewDownloader(store, nil, cfg.Download, baseLogger.With("component", "downloader"))

	tokenizer := index.NewTokenizer(cfg.Index.MinTokenLength, cfg.Index.StopWords, cfg.Index.Stemming)
	corpus := index.NewCorpus(tokenizer, index.Options{
		TopN:             cfg.Index.TopN,
		ScoreThreshold:   cfg.Index.ScoreThreshold,
		DerivedStopWords: cfg.Index.DerivedStopWords,
	})

	sink := report.NewCSVSink(cfg.Output.KeywordsPath, cfg.Output.BrokenLinksPath, cfg.Output.MismatchedTypesPath)

	var db *sql.DB
	var repository ports.KeywordRepository
	if cfg.Database.DSN != "" {
		db, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("open database: %w", err)
		}
		repository = storage.NewPostgresRepository(db)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Downloader: downloader,
		Store:      store,
		Extractor:  extract.New(),
		Corpus:     corpus,
		Sink:       sink,
		Repository: repository,
		Logger:     baseLogger.With("component", "pipeline"),
	})

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		pipeline: pipeline,
		store:    store,
		db:       db,
	}, nil
}

// Run executes one full harvest.
func (a *Application) Run(ctx context.Context) error {
	_, err := a.pipeline.Run(ctx)
	return err
}

// Close releases the cache index and the database connection.
func (a *Application) Close() error {
	var firstErr error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			firstErr = err
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
