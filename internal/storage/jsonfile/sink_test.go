package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/tender-crawler/internal/tender"
)

func TestSaveWritesIndentedUTF8(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tenders.json")
	sink, err := New(path)
	require.NoError(t, err)

	category := "Металлопрокат"
	records := []tender.Record{{
		Title:        "Поставка труб & фитингов",
		Company:      "ООО Ромашка",
		DateCreated:  "01.02.2024",
		DateDeadline: "15.02.2024",
		URL:          "https://www.b2b-center.ru/market/123/",
		Category:     &category,
	}}
	require.NoError(t, sink.Save(context.Background(), records))
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "Поставка труб & фитингов")
	require.Contains(t, string(data), "\n  {\n    \"title\"")
	require.Contains(t, string(data), `"description": null`)

	var got []tender.Record
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, records, got)
}

func TestSaveReplacesExistingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tenders.json")
	require.NoError(t, os.WriteFile(path, []byte("stale content that is longer than the new payload"), 0o600))

	sink, err := New(path)
	require.NoError(t, err)
	require.NoError(t, sink.Save(context.Background(), nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "[]\n", string(data))
}

func TestSaveMissingDirectory(t *testing.T) {
	t.Parallel()

	sink, err := New(filepath.Join(t.TempDir(), "missing", "tenders.json"))
	require.NoError(t, err)
	require.Error(t, sink.Save(context.Background(), nil))
}

func TestNewRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := New("")
	require.Error(t, err)
}
