// Package loader handles configuration file loading, validation, and
// conversion into the option types of the index, store and download
// packages.
//
// This package is responsible for:
//   - Loading YAML configuration files
//   - Expanding environment variables
//   - Validating backend selection and names
//   - Converting the YAML representation into component options
package loader

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xtxerr/seisfetch/internal/awsconf"
	"github.com/xtxerr/seisfetch/internal/blob/s3"
	"github.com/xtxerr/seisfetch/internal/download"
	"github.com/xtxerr/seisfetch/internal/errors"
	"github.com/xtxerr/seisfetch/internal/index/dynamo"
	"github.com/xtxerr/seisfetch/internal/index/parquet"
	"github.com/xtxerr/seisfetch/internal/logging"
	"github.com/xtxerr/seisfetch/internal/validation"
)

// =============================================================================
// Load
// =============================================================================

// Load loads configuration from a YAML file. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", errors.Mark(err, errors.ErrInvalidConfig))
	}

	return Parse(data)
}

// Parse parses YAML configuration on top of the defaults. ${VAR} and
// $VAR references are expanded from the environment first.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", errors.Mark(err, errors.ErrInvalidConfig))
	}

	return cfg, nil
}

// =============================================================================
// Validate
// =============================================================================

// Validate validates the configuration. All problems are reported
// together.
func Validate(cfg *Config) error {
	errs := errors.NewValidationErrors()

	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		errs.AddField("log.level", err.Error())
	}

	validateIndex(errs, &cfg.Index)
	validateStore(errs, &cfg.Store)
	validateDownload(errs, &cfg.Download)

	if _, err := parquet.ParseCompressionType(cfg.Snapshot.Compression); err != nil {
		errs.AddField("snapshot.compression", err.Error())
	}

	return errs.Err()
}

func validateIndex(errs *errors.ValidationErrors, c *IndexConfig) {
	if c.PageSize < 0 {
		errs.AddField("index.page_size", "cannot be negative")
	}

	switch c.Backend {
	case IndexDynamoDB:
		if err := validation.ValidateTableName(c.StationsTable); err != nil {
			errs.AddField("index.stations_table", err.Error())
		}
		if err := validation.ValidateTableName(c.FilesTable); err != nil {
			errs.AddField("index.files_table", err.Error())
		}
		if c.Region == "" {
			errs.AddMissing("index.region")
		}
	case IndexDuckDB:
		if c.DuckDB.Path == "" {
			errs.AddMissing("index.duckdb.path")
		}
	case IndexParquet:
		if c.Parquet.Stations == "" {
			errs.AddMissing("index.parquet.stations")
		}
		if c.Parquet.Files == "" {
			errs.AddMissing("index.parquet.files")
		}
	case "":
		errs.AddMissing("index.backend")
	default:
		errs.Add(fmt.Errorf("index.backend %q: %w", c.Backend, errors.ErrInvalidBackend))
	}
}

func validateStore(errs *errors.ValidationErrors, c *StoreConfig) {
	switch c.Backend {
	case StoreS3:
		if err := validation.ValidateBucketName(c.Bucket); err != nil {
			errs.AddField("store.bucket", err.Error())
		}
		if c.Region == "" {
			errs.AddMissing("store.region")
		}
		if c.Anonymous && c.Credentials.AccessKeyID != "" {
			errs.AddField("store.anonymous", "cannot be combined with static credentials")
		}
	case StoreDir:
		if c.Root == "" {
			errs.AddMissing("store.root")
		}
	case "":
		errs.AddMissing("store.backend")
	default:
		errs.Add(fmt.Errorf("store.backend %q: %w", c.Backend, errors.ErrInvalidBackend))
	}
}

func validateDownload(errs *errors.ValidationErrors, c *DownloadConfig) {
	if c.OutDir == "" {
		errs.AddMissing("download.out_dir")
	}
	if c.Workers < 0 {
		errs.AddField("download.workers", "cannot be negative")
	}
	if c.WorkersPerCPU < 0 {
		errs.AddField("download.workers_per_cpu", "cannot be negative")
	}
	if c.MaxWorkers < 0 {
		errs.AddField("download.max_workers", "cannot be negative")
	}
	if c.Retries < 0 {
		errs.AddField("download.retries", "cannot be negative")
	}
	if c.BackoffInitial < 0 || c.BackoffMax < 0 {
		errs.AddField("download.backoff", "cannot be negative")
	}
	if c.BackoffMax > 0 && c.BackoffMax < c.BackoffInitial {
		errs.AddField("download.backoff_max", "must not be below backoff_initial")
	}

	switch c.Progress {
	case ProgressAuto, ProgressConsole, ProgressLog, ProgressNone:
	default:
		errs.AddField("download.progress", fmt.Sprintf("unknown mode %q", c.Progress))
	}
}

// =============================================================================
// Conversion
// =============================================================================

// IndexAWS returns the AWS options of the dynamodb backend.
func (c *Config) IndexAWS() awsconf.Options {
	return awsOptions(c.Index.Region, false, c.Index.Credentials)
}

// StoreAWS returns the AWS options of the s3 backend.
func (c *Config) StoreAWS() awsconf.Options {
	return awsOptions(c.Store.Region, c.Store.Anonymous, c.Store.Credentials)
}

func awsOptions(region string, anonymous bool, cred CredentialsConfig) awsconf.Options {
	return awsconf.Options{
		Region:          region,
		Anonymous:       anonymous,
		AccessKeyID:     cred.AccessKeyID,
		SecretAccessKey: cred.SecretAccessKey,
		SessionToken:    cred.SessionToken,
		Profile:         cred.Profile,
	}
}

// DynamoConfig returns the dynamodb backend configuration.
func (c *Config) DynamoConfig() dynamo.Config {
	return dynamo.Config{
		StationsTable: c.Index.StationsTable,
		FilesTable:    c.Index.FilesTable,
		PageSize:      int32(c.Index.PageSize),
		Endpoint:      c.Index.Endpoint,
	}
}

// S3Config returns the s3 backend configuration.
func (c *Config) S3Config() s3.Config {
	return s3.Config{
		Bucket:       c.Store.Bucket,
		Endpoint:     c.Store.Endpoint,
		UsePathStyle: c.Store.UsePathStyle,
	}
}

// DownloadOptions returns dispatcher options. Progress is left nil for
// the caller to choose from Download.Progress.
func (c *Config) DownloadOptions() download.Options {
	opts := download.DefaultOptions()
	opts.Workers = c.Download.Workers
	opts.WorkersPerCPU = c.Download.WorkersPerCPU
	opts.MaxWorkers = c.Download.MaxWorkers
	opts.Retries = c.Download.Retries
	opts.BackoffInitial = c.Download.BackoffInitial.Duration()
	opts.BackoffMax = c.Download.BackoffMax.Duration()
	return opts
}

// ParquetOptions returns the snapshot writer options.
func (c *Config) ParquetOptions() (parquet.Options, error) {
	ct, err := parquet.ParseCompressionType(c.Snapshot.Compression)
	if err != nil {
		return parquet.Options{}, errors.Mark(err, errors.ErrInvalidConfig)
	}
	return parquet.Options{Compression: ct}, nil
}
