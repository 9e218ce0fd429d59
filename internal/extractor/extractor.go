// Package extractor turns listing page markup into tender records.
//
// Markup traversal sits behind RowSource so the row rules in Extractor do not
// depend on any particular HTML library.
package extractor

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/tender-crawler/internal/tender"
)

// minCells is the fewest cells a data row can have.
const minCells = 4

// Field names one value a row can provide.
type Field int

// Row fields in the order of the listing columns.
const (
	FieldTitle Field = iota
	FieldHref
	FieldCategory
	FieldDescription
	FieldCompany
	FieldDateCreated
	FieldDateDeadline
)

func (f Field) String() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldHref:
		return "href"
	case FieldCategory:
		return "category"
	case FieldDescription:
		return "description"
	case FieldCompany:
		return "company"
	case FieldDateCreated:
		return "date_created"
	case FieldDateDeadline:
		return "date_deadline"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// Row is one row candidate from a listing page.
type Row interface {
	// Cells reports how many structural cells the row has.
	Cells() int
	// Value returns the field and whether the element carrying it exists.
	Value(field Field) (string, bool)
}

// RowSource splits page content into ordered row candidates.
type RowSource interface {
	Rows(content []byte) ([]Row, error)
}

// Extractor applies the row rules to every candidate a RowSource yields.
type Extractor struct {
	source RowSource
	origin string
	logger *zap.Logger
}

// New returns an Extractor resolving hrefs against origin.
func New(source RowSource, origin string, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{source: source, origin: origin, logger: logger}
}

// Extract returns the records on raw in row order. Rows that are not data
// rows or fail to extract are dropped without affecting their siblings.
func (e *Extractor) Extract(raw tender.RawPage) []tender.Record {
	rows, err := e.source.Rows(raw.Content)
	if err != nil {
		e.logger.Warn("page markup unreadable", zap.Int("page", int(raw.Page)), zap.Error(err))
		return nil
	}

	records := make([]tender.Record, 0, len(rows))
	dropped := 0
	for i, row := range rows {
		rec, ok, err := e.extractRow(row)
		if err != nil {
			dropped++
			e.logger.Debug("row dropped",
				zap.Int("page", int(raw.Page)),
				zap.Int("row", i),
				zap.Error(err),
			)
			continue
		}
		if ok {
			records = append(records, rec)
		}
	}

	e.logger.Info("page extracted",
		zap.Int("page", int(raw.Page)),
		zap.Int("rows", len(rows)),
		zap.Int("records", len(records)),
		zap.Int("dropped", dropped),
	)
	return records
}

func (e *Extractor) extractRow(row Row) (rec tender.Record, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec, ok, err = tender.Record{}, false, fmt.Errorf("extract row: %v", r)
		}
	}()

	if row.Cells() < minCells {
		return tender.Record{}, false, nil
	}
	title, found := row.Value(FieldTitle)
	if !found {
		return tender.Record{}, false, nil
	}

	rec = tender.Record{
		Title:   title,
		Company: tender.UnspecifiedCompany,
	}
	if href, found := row.Value(FieldHref); found && href != "" {
		rec.URL = e.origin + href
	}
	if category, found := row.Value(FieldCategory); found {
		rec.Category = &category
	}
	if description, found := row.Value(FieldDescription); found {
		rec.Description = &description
	}
	if company, found := row.Value(FieldCompany); found {
		rec.Company = company
	}
	rec.DateCreated, _ = row.Value(FieldDateCreated)
	rec.DateDeadline, _ = row.Value(FieldDateDeadline)
	return rec, true, nil
}
