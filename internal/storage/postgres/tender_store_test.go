package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/tender-crawler/internal/tender"
)

func sampleRecords() []tender.Record {
	category := "Трубы"
	return []tender.Record{
		{
			Title:        "Поставка труб",
			Company:      "ООО Ромашка",
			DateCreated:  "01.02.2024",
			DateDeadline: "10.02.2024",
			URL:          "https://www.b2b-center.ru/market/1/",
			Category:     &category,
		},
		{Title: "Ремонт кровли", Company: tender.UnspecifiedCompany},
	}
}

func expectInsert(mock pgxmock.PgxPoolIface, table string, rec tender.Record) *pgxmock.ExpectedExec {
	return mock.ExpectExec("INSERT INTO "+table).
		WithArgs(
			rec.Title,
			rec.Company,
			rec.DateCreated,
			rec.DateDeadline,
			rec.Category,
			rec.URL,
			rec.Description,
		)
}

func TestSaveInsertsRowsInTransaction(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStoreWithPool(mock, "tenders")
	require.NoError(t, err)

	records := sampleRecords()
	mock.ExpectBegin()
	for _, rec := range records {
		expectInsert(mock, "tenders", rec).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	require.NoError(t, store.Save(context.Background(), records))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRollsBackOnInsertError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStoreWithPool(mock, "archive")
	require.NoError(t, err)

	records := sampleRecords()
	mock.ExpectBegin()
	expectInsert(mock, "archive", records[0]).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	expectInsert(mock, "archive", records[1]).WillReturnError(errors.New("constraint violated"))
	mock.ExpectRollback()

	err = store.Save(context.Background(), records)
	require.ErrorContains(t, err, "insert tender 1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveBeginError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStoreWithPool(mock, "")
	require.NoError(t, err)

	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	require.Error(t, store.Save(context.Background(), sampleRecords()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStoreWithPool(mock, "")
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS tenders").WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewStoreWithPoolValidation(t *testing.T) {
	t.Parallel()

	_, err := NewStoreWithPool(nil, "tenders")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewStoreWithPool(mock, "tenders; DROP TABLE x")
	require.ErrorContains(t, err, "invalid table name")
}

func TestNewStoreRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := NewStore(context.Background(), Config{})
	require.Error(t, err)
}

func TestCloseNilStore(t *testing.T) {
	t.Parallel()

	var store *Store
	require.NoError(t, store.Close())
}
