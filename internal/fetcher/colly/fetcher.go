// Package collyfetcher implements tender.PageFetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/tender-crawler/internal/metrics"
	"github.com/JakeFAU/tender-crawler/internal/tender"
)

const defaultTimeout = 10 * time.Second

// Config controls collector behavior.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Fetcher retrieves listing pages with a Colly collector. It is safe for
// concurrent use; every Fetch runs on its own clone of the base collector.
type Fetcher struct {
	cfg           Config
	base          *url.URL
	baseCollector *colly.Collector
	logger        *zap.Logger
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher for the listing at cfg.BaseURL.
func New(cfg Config, logger *zap.Logger) (*Fetcher, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
	)
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		base:          base,
		baseCollector: c,
		logger:        logger,
	}, nil
}

// PageURL returns the listing URL for page. Page 1 is the bare listing URL.
func (f *Fetcher) PageURL(page tender.PageIndex) string {
	if page <= 1 {
		return f.base.String()
	}
	u := *f.base
	q := u.Query()
	q.Set("page", strconv.Itoa(int(page)))
	u.RawQuery = q.Encode()
	return u.String()
}

// Fetch performs one GET for page. It never returns an error: timeouts,
// connection failures and non-200 statuses become soft failures.
func (f *Fetcher) Fetch(ctx context.Context, page tender.PageIndex) tender.PageOutcome {
	target := f.PageURL(page)
	start := time.Now()

	var (
		resp     *colly.Response
		fetchErr error
	)
	collector := f.baseCollector.Clone()
	f.configureCollectorHooks(collector, &resp, &fetchErr)

	outcome := f.runCollector(ctx, collector, page, target, &resp, &fetchErr)
	f.logOutcome(outcome, target, time.Since(start))
	return outcome
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, resp **colly.Response, fetchErr *error) {
	hooks.OnResponse(func(r *colly.Response) {
		*resp = r
	})
	hooks.OnError(func(r *colly.Response, err error) {
		*fetchErr = err
		if r != nil && r.StatusCode != 0 {
			*resp = r
		}
	})
}

func (f *Fetcher) runCollector(
	ctx context.Context,
	collector *colly.Collector,
	page tender.PageIndex,
	target string,
	resp **colly.Response,
	fetchErr *error,
) tender.PageOutcome {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()

	select {
	case <-ctx.Done():
		// Visit cannot be interrupted; it runs on until the request timeout and
		// its result is dropped into the buffered channel.
		return tender.SoftFailure(page, tender.FailureNetwork, 0, fmt.Sprintf("fetch canceled: %v", ctx.Err()))
	case err := <-done:
		return toOutcome(page, *resp, firstError(err, *fetchErr))
	}
}

func toOutcome(page tender.PageIndex, resp *colly.Response, err error) tender.PageOutcome {
	if resp != nil && resp.StatusCode != 0 && resp.StatusCode != http.StatusOK {
		return tender.SoftFailure(page, tender.FailureStatus, resp.StatusCode, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}
	if err != nil {
		return tender.SoftFailure(page, tender.FailureNetwork, 0, networkReason(err))
	}
	if resp == nil {
		return tender.SoftFailure(page, tender.FailureNetwork, 0, "no response received")
	}
	finalURL := ""
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return tender.Success(tender.RawPage{
		Page:    page,
		URL:     finalURL,
		Content: append([]byte(nil), resp.Body...),
	})
}

func networkReason(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("timeout: %v", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("timeout: %v", err)
	}
	return err.Error()
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (f *Fetcher) logOutcome(outcome tender.PageOutcome, target string, elapsed time.Duration) {
	if outcome.OK() {
		metrics.ObservePage("ok")
		f.logger.Debug("page fetched",
			zap.Int("page", int(outcome.Page)),
			zap.String("url", target),
			zap.Int("bytes", len(outcome.Raw.Content)),
			zap.Duration("elapsed", elapsed),
		)
		return
	}
	metrics.ObservePage(string(outcome.Failure))
	f.logger.Warn("page fetch failed",
		zap.Int("page", int(outcome.Page)),
		zap.String("url", target),
		zap.String("failure", string(outcome.Failure)),
		zap.Int("status", outcome.StatusCode),
		zap.String("reason", outcome.Reason),
		zap.Duration("elapsed", elapsed),
	)
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
	}
}
