package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/prospekt-crawler/internal/crawler"
)

func sampleResult() crawler.CrawlResult {
	now := time.Unix(1717400000, 0).UTC()
	return crawler.CrawlResult{
		crawler.NewFlyerRecord("Wochenangebote", "https://img.example/k1.jpg", "Kaufland",
			"2024-06-01T00:00:00", "2024-06-15T00:00:00", now),
		crawler.NewFlyerRecord("Getränke", "", "Real", "laufend", "", now),
	}
}

func TestSaveInsertsRowsInTransaction(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sink, err := NewWithPool(mock, "flyers")
	require.NoError(t, err)

	result := sampleResult()
	mock.ExpectBegin()
	for _, rec := range result {
		mock.ExpectExec("INSERT INTO flyers").
			WithArgs(rec.Title, rec.Thumbnail, rec.ShopName, rec.ValidFrom, rec.ValidTo, rec.ParsedAt, "output.json").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	require.NoError(t, sink.Save(context.Background(), result, "output.json"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRollsBackOnInsertFailure(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sink, err := NewWithPool(mock, "")
	require.NoError(t, err)

	boom := errors.New("constraint violated")
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO flyers").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO flyers").WillReturnError(boom)
	mock.ExpectRollback()

	err = sink.Save(context.Background(), sampleResult(), "output.json")
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveBeginFailure(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sink, err := NewWithPool(mock, "flyers")
	require.NoError(t, err)

	mock.ExpectBegin().WillReturnError(errors.New("no connection"))
	require.Error(t, sink.Save(context.Background(), sampleResult(), "output.json"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveEmptyResultSkipsDatabase(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sink, err := NewWithPool(mock, "flyers")
	require.NoError(t, err)
	require.NoError(t, sink.Save(context.Background(), nil, "output.json"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTableNameValidation(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithPool(mock, "flyers; DROP TABLE x")
	require.Error(t, err)
	_, err = NewWithPool(nil, "flyers")
	require.Error(t, err)
	_, err = New(context.Background(), Config{})
	require.Error(t, err)
}
