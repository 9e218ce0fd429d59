package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/tender-crawler/internal/metrics"
	"github.com/JakeFAU/tender-crawler/internal/tender"
)

// DefaultWidth is the number of pages fetched concurrently per batch.
const DefaultWidth = 5

// Config holds per-crawler settings fixed at construction.
type Config struct {
	Width int
}

// Result is the outcome of one crawl.
type Result struct {
	Records     []tender.Record
	Termination tender.Termination
	// EndSignal is set when Termination is EndDetected.
	EndSignal    tender.EndSignal
	Batches      int
	Cursor       tender.PageIndex
	PagesFetched int
	PagesFailed  int
	Duration     time.Duration
}

// Crawler walks a paginated catalogue batch by batch.
type Crawler struct {
	fetcher   tender.PageFetcher
	extractor tender.RecordExtractor
	cfg       Config
	logger    *zap.Logger
}

// state is mutated only between batch barriers.
type state struct {
	cursor    tender.PageIndex
	collected []tender.Record
	limit     int
}

// batchSummary aggregates one resolved batch.
type batchSummary struct {
	candidates int
	failed     int
	fetched    int
}

// New constructs a Crawler.
func New(fetcher tender.PageFetcher, extractor tender.RecordExtractor, cfg Config, logger *zap.Logger) *Crawler {
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{
		fetcher:   fetcher,
		extractor: extractor,
		cfg:       cfg,
		logger:    logger,
	}
}

// Width returns the batch width in use.
func (c *Crawler) Width() int {
	return c.cfg.Width
}

// Crawl collects up to limit records. Page and row failures never surface as
// errors; a completed call always returns a bounded, possibly empty, result.
//
// A batch that yields no records on any page ends the crawl. That includes a
// batch where every fetch failed transiently, which is indistinguishable from
// the real end of the catalogue here; Result.EndSignal tells the two apart.
func (c *Crawler) Crawl(ctx context.Context, limit int) Result {
	start := time.Now()
	st := &state{cursor: 1, limit: limit}
	res := Result{Termination: tender.Running}

	for len(st.collected) < st.limit {
		if ctx.Err() != nil {
			res.Termination = tender.Canceled
			break
		}

		batch := c.nextBatch(st)
		c.logger.Info("fetching pages",
			zap.Int("from", int(batch.Start)),
			zap.Int("to", int(batch.End())),
			zap.Int("collected", len(st.collected)),
		)

		batchStart := time.Now()
		outcomes := c.runBatch(ctx, batch)
		metrics.ObserveBatch(time.Since(batchStart))

		summary := c.absorb(st, outcomes)
		res.Batches++
		res.PagesFetched += summary.fetched
		res.PagesFailed += summary.failed

		if summary.candidates == 0 {
			if ctx.Err() != nil {
				res.Termination = tender.Canceled
				break
			}
			res.Termination = tender.EndDetected
			res.EndSignal = endSignal(summary)
			c.logEnd(batch, res.EndSignal)
			break
		}
		st.cursor += tender.PageIndex(c.cfg.Width)
	}
	if res.Termination == tender.Running {
		res.Termination = tender.LimitReached
	}

	res.Records = Assemble(st.collected, limit)
	res.Cursor = st.cursor
	res.Duration = time.Since(start)

	metrics.ObserveRecords(len(res.Records))
	metrics.ObserveCrawl(string(res.Termination))
	c.logger.Info("crawl finished",
		zap.String("termination", string(res.Termination)),
		zap.Int("records", len(res.Records)),
		zap.Int("limit", limit),
		zap.Int("batches", res.Batches),
		zap.Int("pages_failed", res.PagesFailed),
		zap.Duration("duration", res.Duration),
	)
	return res
}

// nextBatch returns the full-width batch at the cursor. The loop guard in
// Crawl already stops launching once the limit is met.
func (c *Crawler) nextBatch(st *state) tender.Batch {
	return tender.NewBatch(st.cursor, c.cfg.Width)
}

// runBatch fetches every page in batch concurrently and returns once all of
// them resolved, in page order.
func (c *Crawler) runBatch(ctx context.Context, batch tender.Batch) []tender.PageOutcome {
	pages := batch.Pages()
	outcomes := make([]tender.PageOutcome, len(pages))

	var wg sync.WaitGroup
	for i, page := range pages {
		wg.Add(1)
		go func(i int, page tender.PageIndex) {
			defer wg.Done()
			outcomes[i] = c.fetch(ctx, page)
		}(i, page)
	}
	wg.Wait()
	return outcomes
}

func (c *Crawler) fetch(ctx context.Context, page tender.PageIndex) (outcome tender.PageOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = tender.SoftFailure(page, tender.FailureNetwork, 0, fmt.Sprintf("fetcher panic: %v", r))
		}
	}()
	return c.fetcher.Fetch(ctx, page)
}

func (c *Crawler) extract(raw tender.RawPage) (records []tender.Record) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("extractor panic", zap.Int("page", int(raw.Page)), zap.Any("panic", r))
			records = nil
		}
	}()
	return c.extractor.Extract(raw)
}

// absorb appends the records of a resolved batch in page order, truncating
// at the limit.
func (c *Crawler) absorb(st *state, outcomes []tender.PageOutcome) batchSummary {
	var summary batchSummary
	for _, outcome := range outcomes {
		if !outcome.OK() {
			summary.failed++
			c.logger.Warn("page skipped",
				zap.Int("page", int(outcome.Page)),
				zap.String("failure", string(outcome.Failure)),
				zap.String("reason", outcome.Reason),
			)
			continue
		}
		summary.fetched++
		records := c.extract(outcome.Raw)
		summary.candidates += len(records)
		for _, rec := range records {
			if len(st.collected) >= st.limit {
				break
			}
			st.collected = append(st.collected, rec)
		}
	}
	return summary
}

func endSignal(summary batchSummary) tender.EndSignal {
	switch {
	case summary.fetched == 0:
		return tender.EndAllFailed
	case summary.failed == 0:
		return tender.EndAllEmpty
	default:
		return tender.EndMixed
	}
}

func (c *Crawler) logEnd(batch tender.Batch, signal tender.EndSignal) {
	fields := []zap.Field{
		zap.Int("from", int(batch.Start)),
		zap.Int("to", int(batch.End())),
		zap.String("signal", string(signal)),
	}
	if signal == tender.EndAllFailed {
		c.logger.Warn("every page in batch failed; treating as end of catalogue", fields...)
		return
	}
	c.logger.Info("end of catalogue reached", fields...)
}

// Assemble returns collected trimmed to at most limit records, order kept.
func Assemble(collected []tender.Record, limit int) []tender.Record {
	if limit <= 0 {
		return []tender.Record{}
	}
	if len(collected) > limit {
		collected = collected[:limit]
	}
	out := make([]tender.Record, len(collected))
	copy(out, collected)
	return out
}
