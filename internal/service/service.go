// Package service puts limit clamping and the optional result cache in front
// of the batch crawler. Both the CLI and the HTTP API go through it.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/tender-crawler/internal/cache"
	"github.com/JakeFAU/tender-crawler/internal/crawler"
	"github.com/JakeFAU/tender-crawler/internal/tender"
)

// Crawler runs one bounded crawl.
type Crawler interface {
	Crawl(ctx context.Context, limit int) crawler.Result
}

// Cache stores results per limit. Get returns cache.ErrCacheMiss when empty.
type Cache interface {
	Get(ctx context.Context, limit int) ([]tender.Record, error)
	Set(ctx context.Context, limit int, records []tender.Record) error
}

// Outcome is what callers receive for one request.
type Outcome struct {
	Records     []tender.Record
	Limit       int
	Termination tender.Termination
	EndSignal   tender.EndSignal
	Cached      bool
}

// Options configures a Service.
type Options struct {
	MaxLimit int
	// Cache is optional.
	Cache Cache
}

// Service serves tender crawls.
type Service struct {
	crawler  Crawler
	cache    Cache
	maxLimit int
	logger   *zap.Logger
}

// New constructs a Service.
func New(c Crawler, opts Options, logger *zap.Logger) (*Service, error) {
	if c == nil {
		return nil, fmt.Errorf("crawler is required")
	}
	if opts.MaxLimit <= 0 {
		return nil, fmt.Errorf("max limit must be > 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{crawler: c, cache: opts.Cache, maxLimit: opts.MaxLimit, logger: logger}, nil
}

// ClampLimit bounds limit to [0, max].
func (s *Service) ClampLimit(limit int) int {
	if limit < 0 {
		return 0
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}

// Crawl returns up to limit records, clamped to the configured maximum.
// The only error is a canceled or expired ctx.
func (s *Service) Crawl(ctx context.Context, limit int) (Outcome, error) {
	clamped := s.ClampLimit(limit)
	if clamped != limit {
		s.logger.Info("limit clamped", zap.Int("requested", limit), zap.Int("limit", clamped))
	}

	if s.cache != nil {
		records, err := s.cache.Get(ctx, clamped)
		switch {
		case err == nil:
			s.logger.Debug("serving cached records", zap.Int("limit", clamped), zap.Int("records", len(records)))
			return Outcome{Records: records, Limit: clamped, Cached: true}, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			s.logger.Warn("cache lookup failed", zap.Error(err))
		}
	}

	res := s.crawler.Crawl(ctx, clamped)
	if res.Termination == tender.Canceled {
		if err := ctx.Err(); err != nil {
			return Outcome{}, fmt.Errorf("crawl canceled: %w", err)
		}
		return Outcome{}, context.Canceled
	}

	if s.cache != nil && cacheable(res) {
		if err := s.cache.Set(ctx, clamped, res.Records); err != nil {
			s.logger.Warn("cache store failed", zap.Error(err))
		}
	}

	return Outcome{
		Records:     res.Records,
		Limit:       clamped,
		Termination: res.Termination,
		EndSignal:   res.EndSignal,
	}, nil
}

// cacheable reports whether res is safe to serve again. A crawl that lost
// any page, or that stopped because a whole batch failed, may reflect an
// outage rather than the catalogue.
func cacheable(res crawler.Result) bool {
	return res.EndSignal != tender.EndAllFailed && res.PagesFailed == 0
}
