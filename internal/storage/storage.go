// Package storage selects a tender sink for an export target.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/tender-crawler/internal/storage/jsonfile"
	"github.com/JakeFAU/tender-crawler/internal/storage/postgres"
	"github.com/JakeFAU/tender-crawler/internal/storage/sqlite"
	"github.com/JakeFAU/tender-crawler/internal/tender"
)

// Format names an export backend.
type Format string

// Supported formats.
const (
	FormatJSON     Format = "json"
	FormatSQLite   Format = "sqlite"
	FormatPostgres Format = "postgres"
)

// ErrUnknownFormat is returned when no backend matches.
var ErrUnknownFormat = errors.New("unknown output format")

// Target describes where a result set goes.
type Target struct {
	Format Format
	// Path is the output file for json and sqlite.
	Path string
	// DSN and Table are used by postgres.
	DSN      string
	Table    string
	MaxConns int32
}

// InferFormat resolves the output format. Postgres must be asked for
// explicitly. Otherwise a .db path means sqlite and a .json path means json
// whatever explicit says; any other path uses explicit, defaulting to json.
func InferFormat(explicit, path string) (Format, error) {
	f := Format(strings.ToLower(explicit))
	switch f {
	case "", FormatJSON, FormatSQLite:
	case FormatPostgres:
		return FormatPostgres, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, explicit)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db":
		return FormatSQLite, nil
	case ".json":
		return FormatJSON, nil
	}
	if f == "" {
		return FormatJSON, nil
	}
	return f, nil
}

// Open builds the sink for target.
func Open(ctx context.Context, target Target) (tender.Sink, error) {
	var (
		sink tender.Sink
		err  error
	)
	switch target.Format {
	case FormatJSON:
		sink, err = jsonfile.New(target.Path)
	case FormatSQLite:
		sink, err = sqlite.New(target.Path)
	case FormatPostgres:
		sink, err = postgres.NewStore(ctx, postgres.Config{
			DSN:      target.DSN,
			Table:    target.Table,
			MaxConns: target.MaxConns,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, target.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s sink: %w", target.Format, err)
	}
	return sink, nil
}
