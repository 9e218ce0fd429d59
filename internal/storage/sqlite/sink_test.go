package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/tender-crawler/internal/tender"
)

func TestSaveInsertsRowsInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenders.db")
	sink, err := New(path)
	require.NoError(t, err)

	desc := "Трубы стальные"
	records := []tender.Record{
		{Title: "Первый", Company: "ООО Ромашка", DateCreated: "01.02.2024", DateDeadline: "10.02.2024", URL: "https://www.b2b-center.ru/market/1/", Description: &desc},
		{Title: "Второй", Company: tender.UnspecifiedCompany, DateCreated: "02.02.2024", DateDeadline: "11.02.2024"},
	}
	require.NoError(t, sink.Save(context.Background(), records))
	require.NoError(t, sink.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query(`SELECT title, company, category, description, created_at FROM tenders ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()

	var titles []string
	var descriptions []sql.NullString
	for rows.Next() {
		var title, company string
		var category, description sql.NullString
		var createdAt sql.NullString
		require.NoError(t, rows.Scan(&title, &company, &category, &description, &createdAt))
		require.False(t, category.Valid)
		require.True(t, createdAt.Valid)
		titles = append(titles, title)
		descriptions = append(descriptions, description)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []string{"Первый", "Второй"}, titles)
	require.Equal(t, desc, descriptions[0].String)
	require.False(t, descriptions[1].Valid)
}

func countRows(t *testing.T, path string) int {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM tenders`).Scan(&count))
	return count
}

func TestSaveReplacesExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenders.db")
	require.NoError(t, os.WriteFile(path, []byte("not a database"), 0o600))

	first, err := New(path)
	require.NoError(t, err)
	require.NoError(t, first.Save(context.Background(), []tender.Record{{Title: "old"}, {Title: "older"}}))
	require.NoError(t, first.Close())

	second, err := New(path)
	require.NoError(t, err)
	require.NoError(t, second.Save(context.Background(), []tender.Record{{Title: "new"}}))
	require.NoError(t, second.Close())

	require.Equal(t, 1, countRows(t, path))
}

func TestOpenWithoutSaveKeepsExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenders.db")

	first, err := New(path)
	require.NoError(t, err)
	require.NoError(t, first.Save(context.Background(), []tender.Record{{Title: "kept"}}))
	require.NoError(t, first.Close())

	// A crawl that fails after the sink is opened never calls Save.
	second, err := New(path)
	require.NoError(t, err)
	require.NoError(t, second.Close())

	require.Equal(t, 1, countRows(t, path))
}

func TestNewRejectsMissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing", "tenders.db"))
	require.Error(t, err)
}

func TestNewRequiresPath(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
}
