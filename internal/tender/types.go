// Package tender defines the records and page outcomes shared across the crawler.
package tender

import "fmt"

// UnspecifiedCompany is stored when a row carries no company anchor.
const UnspecifiedCompany = "Не указана"

// Record is one tender extracted from a listing page.
type Record struct {
	Title        string  `json:"title"`
	Company      string  `json:"company"`
	DateCreated  string  `json:"date_created"`
	DateDeadline string  `json:"date_deadline"`
	URL          string  `json:"url"`
	Category     *string `json:"category"`
	Description  *string `json:"description"`
}

// PageIndex addresses a listing page, starting at 1.
type PageIndex int

// Valid reports whether the index addresses a real page.
func (p PageIndex) Valid() bool {
	return p >= 1
}

// FailureKind classifies a soft page failure.
type FailureKind string

// Soft failure classes. Neither aborts a crawl.
const (
	FailureNetwork FailureKind = "network"
	FailureStatus  FailureKind = "status"
)

// RawPage is the markup retrieved for one page.
type RawPage struct {
	Page    PageIndex
	URL     string
	Content []byte
}

// PageOutcome is either a fetched page or a soft failure. Build it with
// Success or SoftFailure.
type PageOutcome struct {
	Page       PageIndex
	StatusCode int
	Raw        RawPage
	Failure    FailureKind
	Reason     string
}

// Success wraps fetched content.
func Success(raw RawPage) PageOutcome {
	return PageOutcome{Page: raw.Page, StatusCode: 200, Raw: raw}
}

// SoftFailure records a page that contributes no records.
func SoftFailure(page PageIndex, kind FailureKind, statusCode int, reason string) PageOutcome {
	return PageOutcome{Page: page, StatusCode: statusCode, Failure: kind, Reason: reason}
}

// OK reports whether the outcome carries content.
func (o PageOutcome) OK() bool {
	return o.Failure == ""
}

func (o PageOutcome) String() string {
	if o.OK() {
		return fmt.Sprintf("page %d: ok (%d bytes)", o.Page, len(o.Raw.Content))
	}
	return fmt.Sprintf("page %d: %s failure: %s", o.Page, o.Failure, o.Reason)
}

// Batch is a contiguous run of pages fetched concurrently.
type Batch struct {
	Start PageIndex
	Width int
}

// NewBatch returns the batch of width pages starting at cursor.
func NewBatch(cursor PageIndex, width int) Batch {
	return Batch{Start: cursor, Width: width}
}

// Pages lists the batch members in ascending order.
func (b Batch) Pages() []PageIndex {
	pages := make([]PageIndex, 0, b.Width)
	for i := 0; i < b.Width; i++ {
		pages = append(pages, b.Start+PageIndex(i))
	}
	return pages
}

// End returns the last page of the batch.
func (b Batch) End() PageIndex {
	return b.Start + PageIndex(b.Width) - 1
}

// Termination is the state of a crawl.
type Termination string

// Crawl states. LimitReached, EndDetected and Canceled are terminal.
const (
	Running      Termination = "running"
	LimitReached Termination = "limit_reached"
	EndDetected  Termination = "end_detected"
	Canceled     Termination = "canceled"
)

// EndSignal describes the batch that triggered end-of-catalogue detection.
// A batch where every fetch failed looks the same as a real end to the
// crawler; the signal keeps the two apart for callers that care.
type EndSignal string

// End-of-catalogue signals.
const (
	EndNone      EndSignal = ""
	EndAllFailed EndSignal = "all_failed"
	EndAllEmpty  EndSignal = "all_empty"
	EndMixed     EndSignal = "mixed"
)
