package tender

import "context"

// PageFetcher retrieves a single listing page. Failures are reported in the
// outcome, never as an error.
type PageFetcher interface {
	Fetch(ctx context.Context, page PageIndex) PageOutcome
}

// RecordExtractor turns one page of markup into records in row order.
type RecordExtractor interface {
	Extract(raw RawPage) []Record
}

// Sink persists a finished result set.
type Sink interface {
	Save(ctx context.Context, records []Record) error
	Close() error
}
