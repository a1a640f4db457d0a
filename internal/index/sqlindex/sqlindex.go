// Package sqlindex implements index.Index over database/sql.
//
// DuckDB is the default engine: the index lives in a single local file
// (or in memory) and can be filled from parquet snapshots with
// read_parquet. Statements are built with squirrel; station filters are
// translated node by node by Where.
package sqlindex

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/shopspring/decimal"

	"github.com/xtxerr/seisfetch/config"
	"github.com/xtxerr/seisfetch/internal/errors"
	"github.com/xtxerr/seisfetch/internal/filter"
	"github.com/xtxerr/seisfetch/internal/index"
	"github.com/xtxerr/seisfetch/internal/logging"
	"github.com/xtxerr/seisfetch/internal/query"
)

const (
	stationsTable = "stations"
	filesTable    = "files"

	// coordType stores coordinates exactly to the microdegree.
	coordType = "DECIMAL(9,6)"
)

// psq is the statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type kind int

const (
	text kind = iota
	number
)

// stationAttrs lists station columns in table order.
var stationAttrs = []string{
	config.AttrStationID,
	config.AttrNetwork,
	config.AttrStation,
	config.AttrLocation,
	config.AttrChannel,
	config.AttrLatitude,
	config.AttrLongitude,
	config.AttrStartTime,
	config.AttrEndTime,
}

var stationKinds = map[string]kind{
	config.AttrStationID: text,
	config.AttrNetwork:   text,
	config.AttrStation:   text,
	config.AttrLocation:  text,
	config.AttrChannel:   text,
	config.AttrLatitude:  number,
	config.AttrLongitude: number,
	config.AttrStartTime: text,
	config.AttrEndTime:   text,
}

// fileAttrs lists file columns in table order.
var fileAttrs = []string{
	config.AttrStationID,
	config.AttrDate,
	config.AttrFilePath,
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS stations (
		"stationID" VARCHAR NOT NULL,
		"NET"       VARCHAR,
		"STA"       VARCHAR,
		"LOC"       VARCHAR,
		"CHAN"      VARCHAR,
		"LAT"       DECIMAL(9,6),
		"LON"       DECIMAL(9,6),
		"STARTTIME" VARCHAR,
		"ENDTIME"   VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS files (
		"stationID" VARCHAR NOT NULL,
		"DATE"      VARCHAR NOT NULL,
		"FILEPATH"  VARCHAR NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS files_station_date ON files ("stationID", "DATE")`,
}

// Config holds SQL index settings.
type Config struct {
	// Path is the DuckDB database file. Empty opens an in-memory database.
	Path string

	// PageSize caps rows per page. Zero returns everything in one page.
	PageSize int
}

// Index serves the station and file tables from a SQL database.
type Index struct {
	db       *sql.DB
	pageSize int
	logger   *slog.Logger

	// Statistics
	scans   atomic.Int64
	queries atomic.Int64
}

// stationCursor resumes a station scan after (ID, Row).
type stationCursor struct {
	ID  string
	Row int64
}

// fileCursor resumes a file query after (Date, Path).
type fileCursor struct {
	Date string
	Path string
}

// Open opens a DuckDB database and ensures the schema exists.
func Open(ctx context.Context, cfg Config) (*Index, error) {
	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", errors.Mark(err, errors.ErrIndexUnavailable))
	}

	x := New(db, cfg.PageSize)
	if err := x.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return x, nil
}

// New wraps an open database. The caller is responsible for the schema.
func New(db *sql.DB, pageSize int) *Index {
	return &Index{
		db:       db,
		pageSize: pageSize,
		logger:   logging.Component("index.sql"),
	}
}

// EnsureSchema creates the tables if they do not exist.
func (x *Index) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := x.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", errors.Mark(err, errors.ErrIndexUnavailable))
		}
	}
	return nil
}

// Name returns the backend name.
func (*Index) Name() string {
	return "duckdb"
}

// Close closes the database.
func (x *Index) Close() error {
	if x.db != nil {
		return x.db.Close()
	}
	return nil
}

// Stats returns request counters.
func (x *Index) Stats() (scans, queries int64) {
	return x.scans.Load(), x.queries.Load()
}

// ScanStations implements index.StationIndex.
func (x *Index) ScanStations(ctx context.Context, req index.ScanRequest) (index.Page[index.Station], error) {
	attrs, err := projectStations(req.Projection)
	if err != nil {
		return index.Page[index.Station]{}, err
	}

	cols := make([]string, 0, len(attrs)+1)
	for _, a := range attrs {
		cols = append(cols, selectColumn(a))
	}
	cols = append(cols, "rowid")

	qb := psq.Select(cols...).From(stationsTable).
		OrderBy(quote(config.AttrStationID), "rowid")

	if req.Filter != nil {
		where, err := Where(req.Filter)
		if err != nil {
			return index.Page[index.Station]{}, err
		}
		qb = qb.Where(where)
	}

	switch c := req.Cursor.(type) {
	case nil:
	case stationCursor:
		qb = qb.Where(sq.Or{
			sq.Gt{quote(config.AttrStationID): c.ID},
			sq.And{sq.Eq{quote(config.AttrStationID): c.ID}, sq.Gt{"rowid": c.Row}},
		})
	default:
		return index.Page[index.Station]{}, fmt.Errorf("cursor type %T: %w", req.Cursor, errors.ErrInvalidCursor)
	}

	limit := x.limit(req.Limit)
	if limit > 0 {
		qb = qb.Suffix(fmt.Sprintf("LIMIT %d", limit))
	}

	stmt, args, err := qb.ToSql()
	if err != nil {
		return index.Page[index.Station]{}, fmt.Errorf("build scan: %w", errors.Mark(err, errors.ErrInvalidFilter))
	}

	x.scans.Add(1)
	rows, err := x.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return index.Page[index.Station]{}, fmt.Errorf("scan stations: %w", errors.Mark(err, errors.ErrIndexQuery))
	}
	defer func() { _ = rows.Close() }()

	var (
		page    index.Page[index.Station]
		lastID  string
		lastRow int64
	)
	for rows.Next() {
		st, row, err := scanStation(rows, attrs)
		if err != nil {
			return index.Page[index.Station]{}, fmt.Errorf("scan station row: %w", errors.Mark(err, errors.ErrIndexQuery))
		}
		page.Items = append(page.Items, st)
		lastID, lastRow = st.ID, row
	}
	if err := rows.Err(); err != nil {
		return index.Page[index.Station]{}, fmt.Errorf("iterate stations: %w", errors.Mark(err, errors.ErrIndexQuery))
	}

	if limit > 0 && len(page.Items) == limit {
		page.Next = stationCursor{ID: lastID, Row: lastRow}
	}

	x.logger.Debug("scan page", "rows", len(page.Items), "more", page.Next != nil)

	return page, nil
}

// QueryFiles implements index.FileIndex. All file columns are returned
// regardless of the requested projection.
func (x *Index) QueryFiles(ctx context.Context, q index.FileQuery) (index.Page[index.File], error) {
	cols := make([]string, len(fileAttrs))
	for i, a := range fileAttrs {
		cols[i] = quote(a)
	}

	date := quote(config.AttrDate)
	path := quote(config.AttrFilePath)

	qb := psq.Select(cols...).From(filesTable).
		Where(sq.Eq{quote(config.AttrStationID): q.StationID}).
		Where(sq.Expr(date+" BETWEEN ? AND ?", q.Window.Start, q.Window.End)).
		OrderBy(date, path)

	switch c := q.Cursor.(type) {
	case nil:
	case fileCursor:
		qb = qb.Where(sq.Or{
			sq.Gt{date: c.Date},
			sq.And{sq.Eq{date: c.Date}, sq.Gt{path: c.Path}},
		})
	default:
		return index.Page[index.File]{}, fmt.Errorf("cursor type %T: %w", q.Cursor, errors.ErrInvalidCursor)
	}

	limit := x.limit(q.Limit)
	if limit > 0 {
		qb = qb.Suffix(fmt.Sprintf("LIMIT %d", limit))
	}

	stmt, args, err := qb.ToSql()
	if err != nil {
		return index.Page[index.File]{}, fmt.Errorf("build file query: %w", err)
	}

	x.queries.Add(1)
	rows, err := x.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return index.Page[index.File]{}, fmt.Errorf("query files for %s: %w", q.StationID, errors.Mark(err, errors.ErrIndexQuery))
	}
	defer func() { _ = rows.Close() }()

	var page index.Page[index.File]
	for rows.Next() {
		var f index.File
		if err := rows.Scan(&f.StationID, &f.Date, &f.Path); err != nil {
			return index.Page[index.File]{}, fmt.Errorf("scan file row: %w", errors.Mark(err, errors.ErrIndexQuery))
		}
		page.Items = append(page.Items, f)
	}
	if err := rows.Err(); err != nil {
		return index.Page[index.File]{}, fmt.Errorf("iterate files: %w", errors.Mark(err, errors.ErrIndexQuery))
	}

	if limit > 0 && len(page.Items) == limit {
		last := page.Items[len(page.Items)-1]
		page.Next = fileCursor{Date: last.Date, Path: last.Path}
	}

	return page, nil
}

func (x *Index) limit(req int) int {
	if req > 0 {
		return req
	}
	return x.pageSize
}

// projectStations returns the columns to select, stationID first.
func projectStations(projection []string) ([]string, error) {
	if len(projection) == 0 {
		return stationAttrs, nil
	}

	attrs := []string{config.AttrStationID}
	for _, a := range projection {
		if a == config.AttrStationID {
			continue
		}
		if _, ok := stationKinds[a]; !ok {
			return nil, fmt.Errorf("unknown projection attribute %q: %w", a, errors.ErrInvalidFilter)
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}

// selectColumn returns the select expression for a station column.
// Decimal columns are read as text so no value passes through float64.
func selectColumn(attr string) string {
	if stationKinds[attr] == number {
		return fmt.Sprintf("CAST(%s AS VARCHAR) AS %s", quote(attr), quote(attr))
	}
	return quote(attr)
}

func scanStation(rows *sql.Rows, attrs []string) (index.Station, int64, error) {
	vals := make([]sql.NullString, len(attrs))
	dest := make([]any, 0, len(attrs)+1)
	for i := range vals {
		dest = append(dest, &vals[i])
	}
	var row int64
	dest = append(dest, &row)

	if err := rows.Scan(dest...); err != nil {
		return index.Station{}, 0, err
	}

	st := index.Station{Attrs: make(filter.AttributeMap, len(attrs))}
	for i, a := range attrs {
		if !vals[i].Valid {
			continue
		}
		if stationKinds[a] != number {
			st.Attrs[a] = query.String(vals[i].String)
			continue
		}
		d, err := decimal.NewFromString(vals[i].String)
		if err != nil {
			return index.Station{}, 0, fmt.Errorf("column %s: %w", a, err)
		}
		st.Attrs[a] = query.Decimal(d)
	}
	st.ID = st.Attrs[config.AttrStationID].Str

	return st, row, nil
}

// Verify interface compliance.
var _ index.Index = (*Index)(nil)
