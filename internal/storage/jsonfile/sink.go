// Package jsonfile writes result sets as an indented UTF-8 JSON array.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/JakeFAU/tender-crawler/internal/tender"
)

// Sink replaces the file at Path on every Save.
type Sink struct {
	path string
}

// New returns a Sink targeting path.
func New(path string) (*Sink, error) {
	if path == "" {
		return nil, fmt.Errorf("output path is required")
	}
	return &Sink{path: path}, nil
}

// Path returns the output file.
func (s *Sink) Path() string {
	return s.path
}

// Save removes any existing file and writes records to a fresh one.
// Non-ASCII text is written as-is.
func (s *Sink) Save(_ context.Context, records []tender.Record) (err error) {
	if records == nil {
		records = []tender.Record{}
	}
	if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", s.path, rmErr)
	}
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create %s: %w", s.path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", s.path, cerr)
		}
	}()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	return nil
}

// Close is a no-op; each Save opens and closes its own file.
func (s *Sink) Close() error {
	return nil
}
