package sqlindex

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtxerr/seisfetch/internal/errors"
	"github.com/xtxerr/seisfetch/internal/filter"
	"github.com/xtxerr/seisfetch/internal/index"
	"github.com/xtxerr/seisfetch/internal/query"
)

const testDBError = "connection refused"

func TestScanStationsKeysetPaging(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck // sqlmock db close error is inconsequential in tests.

	x := New(db, 2)
	req := index.ScanRequest{
		Filter:     filter.Eq{Attr: "NET", Value: query.String("CI")},
		Projection: []string{"stationID"},
	}

	mock.ExpectQuery(`SELECT "stationID", rowid FROM stations WHERE "NET" = \$1 ORDER BY "stationID", rowid LIMIT 2`).
		WithArgs("CI").
		WillReturnRows(sqlmock.NewRows([]string{"stationID", "rowid"}).
			AddRow("CI.PAS", int64(1)).
			AddRow("CI.RFO", int64(7)))

	first, err := x.ScanStations(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "CI.PAS", first.Items[0].ID)
	require.NotNil(t, first.Next)

	mock.ExpectQuery(`SELECT .+ FROM stations WHERE .+ LIMIT 2`).
		WithArgs("CI", "CI.RFO", "CI.RFO", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"stationID", "rowid"}).
			AddRow("CI.SDD", int64(9)))

	req.Cursor = first.Next
	second, err := x.ScanStations(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "CI.SDD", second.Items[0].ID)
	assert.Nil(t, second.Next)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanStationsFullProjection(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck // sqlmock db close error is inconsequential in tests.

	x := New(db, 0)

	cols := append(append([]string{}, stationAttrs...), "rowid")
	mock.ExpectQuery(`SELECT .+ FROM stations ORDER BY`).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("CI.RFO", "CI", "RFO", nil, "HHZ", "33.611000", "-116.459000", "2000-01-01", "3000-01-01", int64(0)))

	page, err := x.ScanStations(context.Background(), index.ScanRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	st := page.Items[0]
	assert.Equal(t, "CI.RFO", st.ID)
	assert.Equal(t, "33.611", st.Attrs["LAT"].Text())
	assert.True(t, st.Attrs["LON"].Equal(query.Number(-116.459)))
	_, hasLoc := st.Attrs["LOC"]
	assert.False(t, hasLoc, "NULL columns are absent")
	assert.Nil(t, page.Next)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanStationsError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck // sqlmock db close error is inconsequential in tests.

	x := New(db, 0)
	mock.ExpectQuery(`SELECT .+ FROM stations`).WillReturnError(errors.New(testDBError))

	_, err = x.ScanStations(context.Background(), index.ScanRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrIndexQuery))
	assert.True(t, errors.IsIndexError(err))
}

func TestScanStationsUnknownProjection(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck // sqlmock db close error is inconsequential in tests.

	_, err = New(db, 0).ScanStations(context.Background(), index.ScanRequest{Projection: []string{"ELEV"}})
	assert.True(t, errors.Is(err, errors.ErrInvalidFilter))
}

func TestQueryFilesRange(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck // sqlmock db close error is inconsequential in tests.

	x := New(db, 1)

	mock.ExpectQuery(`SELECT "stationID", "DATE", "FILEPATH" FROM files WHERE "stationID" = \$1 AND "DATE" BETWEEN \$2 AND \$3 ORDER BY "DATE", "FILEPATH" LIMIT 1`).
		WithArgs("CI.RFO", "2016-07-04", "2016-07-04").
		WillReturnRows(sqlmock.NewRows([]string{"stationID", "DATE", "FILEPATH"}).
			AddRow("CI.RFO", "2016-07-04", "a.ms"))

	q := index.FileQuery{StationID: "CI.RFO", Window: query.Window{Start: "2016-07-04", End: "2016-07-04"}}
	page, err := x.QueryFiles(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.NotNil(t, page.Next)

	mock.ExpectQuery(`SELECT .+ FROM files WHERE .+ LIMIT 1`).
		WithArgs("CI.RFO", "2016-07-04", "2016-07-04", "2016-07-04", "2016-07-04", "a.ms").
		WillReturnRows(sqlmock.NewRows([]string{"stationID", "DATE", "FILEPATH"}))

	q.Cursor = page.Next
	page, err = x.QueryFiles(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Nil(t, page.Next)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryFilesInvalidCursor(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck // sqlmock db close error is inconsequential in tests.

	_, err = New(db, 0).QueryFiles(context.Background(), index.FileQuery{StationID: "CI.RFO", Cursor: "x"})
	assert.True(t, errors.Is(err, errors.ErrInvalidCursor))
}

func TestInsertFilesBatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck // sqlmock db close error is inconsequential in tests.

	x := New(db, 0)

	files := make([]index.File, insertBatch+1)
	for i := range files {
		files[i] = index.File{StationID: "CI.RFO", Date: "2016-07-04", Path: fmt.Sprintf("f%d", i)}
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO files`).WillReturnResult(sqlmock.NewResult(0, insertBatch))
	mock.ExpectExec(`INSERT INTO files`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, x.InsertFiles(context.Background(), files))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportParquetStatements(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck // sqlmock db close error is inconsequential in tests.

	x := New(db, 0)

	mock.ExpectExec(`INSERT INTO stations \(.+\) SELECT .+ FROM read_parquet\(\$1\)`).
		WithArgs("/snap/stations.parquet").
		WillReturnResult(sqlmock.NewResult(0, 12))

	stats, err := x.ImportParquet(context.Background(), "/snap/stations.parquet", "")
	require.NoError(t, err)
	assert.Equal(t, int64(12), stats.Stations)
	assert.Zero(t, stats.Files)
	assert.NoError(t, mock.ExpectationsWereMet())
}
