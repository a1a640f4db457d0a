// Package parquet reads and writes index snapshots as Parquet files.
//
// The package provides:
//   - StationRow/FileRow, the on-disk shape of both index tables
//   - Writer for streaming rows to a file
//   - ReadAll for loading a whole file
//   - Load, which serves a snapshot pair as an index.Index held in memory
//
// Column names match the DynamoDB attribute names, so DuckDB can import a
// snapshot with read_parquet.
package parquet
