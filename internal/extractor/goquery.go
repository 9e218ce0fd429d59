package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ContractVersion identifies the listing markup DefaultSelectors targets.
// Bump it whenever the selectors change to follow the source site.
const ContractVersion = "b2b-center-market/1"

// Selectors is the markup contract for listing rows.
type Selectors struct {
	Row           string
	Cell          string
	TitleAnchor   string
	Category      string
	Description   string
	CompanyAnchor string
}

// DefaultSelectors returns the contract for the b2b-center market listing.
func DefaultSelectors() Selectors {
	return Selectors{
		Row:           "tr",
		Cell:          "td",
		TitleAnchor:   "a.search-results-title",
		Category:      "small",
		Description:   "div.search-results-title-desc",
		CompanyAnchor: "a",
	}
}

// GoqueryRows is a RowSource backed by goquery CSS selection.
type GoqueryRows struct {
	sel Selectors
}

// NewGoqueryRows returns a RowSource using sel.
func NewGoqueryRows(sel Selectors) *GoqueryRows {
	return &GoqueryRows{sel: sel}
}

// Rows parses content and returns every row element in document order.
func (g *GoqueryRows) Rows(content []byte) ([]Row, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	var rows []Row
	doc.Find(g.sel.Row).Each(func(_ int, s *goquery.Selection) {
		rows = append(rows, &goqueryRow{sel: g.sel, cells: s.Find(g.sel.Cell)})
	})
	return rows, nil
}

type goqueryRow struct {
	sel   Selectors
	cells *goquery.Selection
}

func (r *goqueryRow) Cells() int {
	return r.cells.Length()
}

func (r *goqueryRow) Value(field Field) (string, bool) {
	switch field {
	case FieldTitle:
		return text(r.first(0, r.sel.TitleAnchor))
	case FieldHref:
		anchor := r.first(0, r.sel.TitleAnchor)
		if anchor.Length() == 0 {
			return "", false
		}
		return anchor.Attr("href")
	case FieldCategory:
		return text(r.first(0, r.sel.Category))
	case FieldDescription:
		return text(r.first(0, r.sel.Description))
	case FieldCompany:
		return text(r.first(1, r.sel.CompanyAnchor))
	case FieldDateCreated:
		return text(r.cells.Eq(2))
	case FieldDateDeadline:
		return text(r.cells.Eq(3))
	default:
		return "", false
	}
}

func (r *goqueryRow) first(cell int, selector string) *goquery.Selection {
	if selector == "" {
		return &goquery.Selection{}
	}
	return r.cells.Eq(cell).Find(selector).First()
}

func text(s *goquery.Selection) (string, bool) {
	if s.Length() == 0 {
		return "", false
	}
	return strippedText(s.Nodes[0]), true
}

// strippedText joins every descendant text node with surrounding
// whitespace removed.
func strippedText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(strings.TrimSpace(n.Data))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
