// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/tender-crawler/internal/cache"
	"github.com/JakeFAU/tender-crawler/internal/config"
	"github.com/JakeFAU/tender-crawler/internal/crawler"
	"github.com/JakeFAU/tender-crawler/internal/extractor"
	collyfetcher "github.com/JakeFAU/tender-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/tender-crawler/internal/fetcher/ratelimit"
	"github.com/JakeFAU/tender-crawler/internal/service"
	"github.com/JakeFAU/tender-crawler/internal/storage"
	"github.com/JakeFAU/tender-crawler/internal/tender"
)

// App holds the shared services built once at startup.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	crawler *crawler.Crawler
	service *service.Service
	cache   *cache.RedisCache
}

// New wires the fetcher, extractor, crawler, optional cache and service
// from cfg. It fails fast when any of them cannot be built.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("Initializing application services...")

	fetcher, err := collyfetcher.New(collyfetcher.Config{
		BaseURL:   cfg.Crawler.BaseURL,
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.Crawler.RequestTimeout,
	}, logger.Named("fetcher"))
	if err != nil {
		return nil, fmt.Errorf("init fetcher: %w", err)
	}

	rows := extractor.NewGoqueryRows(extractor.Selectors{
		Row:           cfg.Extractor.Row,
		Cell:          cfg.Extractor.Cell,
		TitleAnchor:   cfg.Extractor.TitleAnchor,
		Category:      cfg.Extractor.Category,
		Description:   cfg.Extractor.Description,
		CompanyAnchor: cfg.Extractor.CompanyAnchor,
	})
	extract := extractor.New(rows, cfg.Extractor.Origin, logger.Named("extractor"))

	paced := ratelimit.Wrap(fetcher, ratelimit.Config{
		RPS:   cfg.Crawler.RateLimitRPS,
		Burst: cfg.Crawler.RateLimitBurst,
	})
	engine := crawler.New(paced, extract, crawler.Config{Width: cfg.Crawler.Width}, logger.Named("crawler"))

	a := &App{cfg: cfg, logger: logger, crawler: engine}

	opts := service.Options{MaxLimit: cfg.Crawler.MaxLimit}
	if cfg.Cache.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cache.Config{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			TTL:      cfg.Cache.TTL,
			Prefix:   cfg.Cache.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("init cache: %w", err)
		}
		logger.Info("Using Redis result cache", zap.String("addr", cfg.Cache.RedisAddr), zap.Duration("ttl", cfg.Cache.TTL))
		a.cache = rc
		opts.Cache = rc
	}

	svc, err := service.New(engine, opts, logger.Named("service"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init service: %w", err)
	}
	a.service = svc

	logger.Info("Application services initialized successfully.",
		zap.String("base_url", cfg.Crawler.BaseURL),
		zap.Int("width", engine.Width()),
		zap.String("selectors", extractor.ContractVersion),
	)
	return a, nil
}

// Config returns the configuration the app was built from.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Crawl runs a crawl through the service.
func (a *App) Crawl(ctx context.Context, limit int) (service.Outcome, error) {
	return a.service.Crawl(ctx, limit)
}

// OpenSink builds the export sink for a CLI run. Postgres settings come
// from the db config section.
func (a *App) OpenSink(ctx context.Context, format, output string) (tender.Sink, error) {
	f, err := storage.InferFormat(format, output)
	if err != nil {
		return nil, err
	}
	return storage.Open(ctx, storage.Target{
		Format:   f,
		Path:     output,
		DSN:      a.cfg.DB.DSN,
		Table:    a.cfg.DB.Table,
		MaxConns: a.cfg.DB.MaxConns,
	})
}

// Close shuts down the services held by the App.
func (a *App) Close() {
	a.logger.Info("Shutting down application services...")
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("Error closing cache client", zap.Error(err))
		}
	}
}
