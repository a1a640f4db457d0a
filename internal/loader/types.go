// Package loader - Configuration Types
//
// Defines the YAML configuration structure for seisfetch.
//
//	log:       level, output format
//	index:     station/file index backend (dynamodb, duckdb, parquet)
//	store:     object store backend (s3, dir)
//	download:  output directory, worker pool, retries, progress
//	snapshot:  parquet export settings
package loader

import (
	"time"

	"github.com/xtxerr/seisfetch/config"
)

// =============================================================================
// Root Configuration
// =============================================================================

// Config is the root configuration structure for seisfetch.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Index    IndexConfig    `yaml:"index"`
	Store    StoreConfig    `yaml:"store"`
	Download DownloadConfig `yaml:"download"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

// =============================================================================
// Logging
// =============================================================================

// LogConfig configures the global logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: "info"
	Level string `yaml:"level"`

	// JSON selects JSON output instead of text.
	// Default: false
	JSON bool `yaml:"json"`
}

// =============================================================================
// Index
// =============================================================================

// Index backends.
const (
	IndexDynamoDB = "dynamodb"
	IndexDuckDB   = "duckdb"
	IndexParquet  = "parquet"
)

// IndexConfig selects and configures the station/file index.
type IndexConfig struct {
	// Backend is one of dynamodb, duckdb, parquet.
	// Default: "dynamodb"
	Backend string `yaml:"backend"`

	// PageSize caps items per index request. Zero lets the backend decide.
	PageSize int `yaml:"page_size"`

	// Region and Endpoint apply to the dynamodb backend.
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`

	// StationsTable and FilesTable name the DynamoDB tables.
	// Default: "SCEDC-stations", "SCEDC-files"
	StationsTable string `yaml:"stations_table"`
	FilesTable    string `yaml:"files_table"`

	Credentials CredentialsConfig `yaml:"credentials"`

	DuckDB  DuckDBConfig  `yaml:"duckdb"`
	Parquet ParquetConfig `yaml:"parquet"`
}

// DuckDBConfig configures the duckdb backend.
type DuckDBConfig struct {
	// Path is the database file.
	// Default: "seisfetch-index.duckdb"
	Path string `yaml:"path"`
}

// ParquetConfig names the snapshot files served by the parquet backend.
type ParquetConfig struct {
	Stations string `yaml:"stations"`
	Files    string `yaml:"files"`
}

// =============================================================================
// Store
// =============================================================================

// Store backends.
const (
	StoreS3  = "s3"
	StoreDir = "dir"
)

// StoreConfig selects and configures the object store.
type StoreConfig struct {
	// Backend is one of s3, dir.
	// Default: "s3"
	Backend string `yaml:"backend"`

	// Bucket, Region and Endpoint apply to the s3 backend.
	// Default bucket: "scedc-pds"
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`

	// Anonymous disables request signing.
	// Default: true
	Anonymous bool `yaml:"anonymous"`

	Credentials CredentialsConfig `yaml:"credentials"`

	// Root is the mirror directory of the dir backend.
	Root string `yaml:"root"`
}

// CredentialsConfig holds optional static AWS credentials or a profile.
// Values support ${ENV} expansion.
type CredentialsConfig struct {
	Profile         string `yaml:"profile"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
}

// =============================================================================
// Download
// =============================================================================

// Progress modes.
const (
	ProgressAuto    = "auto"
	ProgressConsole = "console"
	ProgressLog     = "log"
	ProgressNone    = "none"
)

// DownloadConfig configures the download dispatcher.
type DownloadConfig struct {
	// OutDir is the local root for downloaded files. A leading ~ is
	// expanded to the home directory.
	// Default: "."
	OutDir string `yaml:"out_dir"`

	// Workers fixes the pool size. Zero derives it from WorkersPerCPU.
	Workers       int `yaml:"workers"`
	WorkersPerCPU int `yaml:"workers_per_cpu"`
	MaxWorkers    int `yaml:"max_workers"`

	Retries        int      `yaml:"retries"`
	BackoffInitial Duration `yaml:"backoff_initial"`
	BackoffMax     Duration `yaml:"backoff_max"`

	// Progress is one of auto, console, log, none. auto picks console
	// on a terminal and log otherwise.
	// Default: "auto"
	Progress string `yaml:"progress"`
}

// =============================================================================
// Snapshot
// =============================================================================

// SnapshotConfig configures parquet snapshot export.
type SnapshotConfig struct {
	// Dir receives stations.parquet and files.parquet.
	// Default: "."
	Dir string `yaml:"dir"`

	// Compression is one of zstd, snappy, lz4, gzip, none.
	// Default: "zstd"
	Compression string `yaml:"compression"`
}

// =============================================================================
// Defaults
// =============================================================================

// DefaultConfig returns a configuration populated with the defaults from
// the config package.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level: config.DefaultLogLevel,
			JSON:  config.DefaultLogJSON,
		},

		Index: IndexConfig{
			Backend:       config.DefaultIndexBackend,
			PageSize:      config.DefaultPageSize,
			Region:        config.DefaultRegion,
			StationsTable: config.DefaultStationsTable,
			FilesTable:    config.DefaultFilesTable,
			DuckDB: DuckDBConfig{
				Path: config.DefaultDuckDBPath,
			},
			Parquet: ParquetConfig{
				Stations: config.DefaultStationsSnapshot,
				Files:    config.DefaultFilesSnapshot,
			},
		},

		Store: StoreConfig{
			Backend:   config.DefaultStoreBackend,
			Bucket:    config.DefaultBucket,
			Region:    config.DefaultRegion,
			Anonymous: config.DefaultAnonymous,
		},

		Download: DownloadConfig{
			OutDir:         ".",
			WorkersPerCPU:  config.DefaultWorkersPerCPU,
			MaxWorkers:     config.DefaultMaxWorkers,
			Retries:        config.DefaultFetchRetries,
			BackoffInitial: Duration(config.DefaultBackoffInitial),
			BackoffMax:     Duration(config.DefaultBackoffMax),
			Progress:       ProgressAuto,
		},

		Snapshot: SnapshotConfig{
			Dir:         ".",
			Compression: "zstd",
		},
	}
}

// =============================================================================
// Helper Types
// =============================================================================

// Duration is a time.Duration that can be unmarshaled from YAML.
// Supports: "500ms", "10s", "1m", or plain integers (seconds).
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	// Plain integers are seconds.
	var i int
	if err := unmarshal(&i); err == nil {
		*d = Duration(time.Duration(i) * time.Second)
		return nil
	}

	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
