// Package index defines the station metadata index and the per-station
// file index consumed by the resolver and locator, plus the record types
// they return.
//
// Implementations:
//   - index/dynamo:   DynamoDB tables (SCEDC-stations, SCEDC-files)
//   - index/sqlindex: database/sql + squirrel, DuckDB by default
//   - index/memory:   in-memory tables, filter interpreted with filter.Eval
//   - index/parquet:  parquet snapshots loaded into index/memory
package index

import (
	"context"

	"github.com/xtxerr/seisfetch/internal/filter"
	"github.com/xtxerr/seisfetch/internal/query"
)

// Cursor is an opaque continuation token. A nil Cursor means the result
// set is exhausted. Only the backend that produced a Cursor understands it.
type Cursor any

// Page is one batch of a paginated result.
type Page[T any] struct {
	Items []T
	Next  Cursor
}

// Station is one item of the station metadata index.
// Attrs holds every projected attribute; ID is always set.
type Station struct {
	ID    string
	Attrs filter.AttributeMap
}

// File is one item of the file index.
type File struct {
	StationID string
	Date      string
	Path      string
}

// ScanRequest is a filtered full scan of the station index.
type ScanRequest struct {
	// Filter may be nil to scan every item.
	Filter filter.Expr

	// Projection lists the attributes to return. Empty means all.
	Projection []string

	// Limit caps items per page. Zero lets the backend decide.
	Limit int

	// Cursor continues a previous scan.
	Cursor Cursor
}

// FileQuery is a range query over one station's files.
type FileQuery struct {
	StationID string

	// Window bounds DATE inclusively.
	Window query.Window

	// Projection lists the attributes to return. Empty means all.
	Projection []string

	Limit  int
	Cursor Cursor
}

// StationIndex scans station metadata.
type StationIndex interface {
	ScanStations(ctx context.Context, req ScanRequest) (Page[Station], error)
}

// FileIndex range-queries the files recorded for a station.
type FileIndex interface {
	QueryFiles(ctx context.Context, q FileQuery) (Page[File], error)
}

// Index is a backend serving both tables.
type Index interface {
	StationIndex
	FileIndex
	Name() string
	Close() error
}
