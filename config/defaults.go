// Package config provides configuration defaults and utilities
// for the seisfetch application.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via config.yaml, environment variables
// or command line flags.
package config

import "time"

// =============================================================================
// Index Defaults
// =============================================================================

const (
	// DefaultIndexBackend selects the station/file index implementation.
	// One of: dynamodb, duckdb, parquet.
	// Override via config: index.backend
	DefaultIndexBackend = "dynamodb"

	// DefaultRegion is the AWS region hosting the SCEDC public dataset.
	// Override via config: index.region, store.region
	DefaultRegion = "us-west-2"

	// DefaultStationsTable holds one item per station epoch with NET, STA,
	// LOC, CHAN, LAT, LON, STARTTIME and ENDTIME attributes.
	// Override via config: index.stations_table
	DefaultStationsTable = "SCEDC-stations"

	// DefaultFilesTable is keyed by (stationID, DATE) and carries FILEPATH.
	// Override via config: index.files_table
	DefaultFilesTable = "SCEDC-files"

	// DefaultPageSize is the per-request item limit for paginated index
	// queries. Zero lets the store decide (DynamoDB caps pages at 1 MiB).
	// Override via config: index.page_size
	DefaultPageSize = 0

	// DefaultDuckDBPath is the local DuckDB index file.
	// Override via config: index.duckdb.path
	DefaultDuckDBPath = "seisfetch-index.duckdb"

	// DefaultStationsSnapshot and DefaultFilesSnapshot are the parquet
	// snapshot file names written by `seisfetch snapshot`.
	DefaultStationsSnapshot = "stations.parquet"
	DefaultFilesSnapshot    = "files.parquet"
)

// =============================================================================
// Index Attribute Names
// =============================================================================

const (
	AttrStationID = "stationID"
	AttrNetwork   = "NET"
	AttrStation   = "STA"
	AttrLocation  = "LOC"
	AttrChannel   = "CHAN"
	AttrLatitude  = "LAT"
	AttrLongitude = "LON"
	AttrStartTime = "STARTTIME"
	AttrEndTime   = "ENDTIME"
	AttrDate      = "DATE"
	AttrFilePath  = "FILEPATH"
)

// =============================================================================
// Time Window Defaults
// =============================================================================

const (
	// DateLayout is the canonical date representation used in index queries.
	DateLayout = "2006-01-02"

	// MinDate and MaxDate bound the file-index range query when the caller
	// leaves one end of the time window open.
	MinDate = "0000-01-01"
	MaxDate = "9999-12-31"
)

// =============================================================================
// Object Store Defaults
// =============================================================================

const (
	// DefaultStoreBackend selects the blob store implementation.
	// One of: s3, dir.
	// Override via config: store.backend
	DefaultStoreBackend = "s3"

	// DefaultBucket is the public SCEDC waveform bucket.
	// Override via config: store.bucket
	DefaultBucket = "scedc-pds"

	// DefaultAnonymous disables request signing; the SCEDC bucket is public.
	// Override via config: store.anonymous
	DefaultAnonymous = true
)

// =============================================================================
// Download Defaults
// =============================================================================

const (
	// DefaultWorkersPerCPU scales the download pool with available cores.
	// Fetches are network-bound, so the pool is a multiple of NumCPU.
	// Override via config: download.workers_per_cpu
	DefaultWorkersPerCPU = 4

	// DefaultMaxWorkers caps the pool regardless of core count.
	// Override via config: download.max_workers
	DefaultMaxWorkers = 64

	// DefaultFetchRetries is the number of retries after a transient fetch
	// failure. Zero disables retries.
	// Override via config: download.retries
	DefaultFetchRetries = 3

	// DefaultBackoffInitial and DefaultBackoffMax bound the exponential
	// backoff between retries of one job.
	// Override via config: download.backoff_initial, download.backoff_max
	DefaultBackoffInitial = 500 * time.Millisecond
	DefaultBackoffMax     = 10 * time.Second

	// DefaultDirPerm and DefaultFilePerm are used for created directories
	// and downloaded files.
	DefaultDirPerm  = 0o755
	DefaultFilePerm = 0o644
)

// =============================================================================
// Logging Defaults
// =============================================================================

const (
	// DefaultLogLevel is one of debug, info, warn, error.
	// Override via config: log.level
	DefaultLogLevel = "info"

	// DefaultLogJSON selects JSON output instead of text.
	// Override via config: log.json
	DefaultLogJSON = false
)
