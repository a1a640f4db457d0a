package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/xtxerr/seisfetch/internal/awsconf"
	"github.com/xtxerr/seisfetch/internal/blob"
	"github.com/xtxerr/seisfetch/internal/blob/dir"
	"github.com/xtxerr/seisfetch/internal/blob/s3"
	"github.com/xtxerr/seisfetch/internal/download"
	"github.com/xtxerr/seisfetch/internal/errors"
	"github.com/xtxerr/seisfetch/internal/index"
	"github.com/xtxerr/seisfetch/internal/index/dynamo"
	"github.com/xtxerr/seisfetch/internal/index/parquet"
	"github.com/xtxerr/seisfetch/internal/index/sqlindex"
	"github.com/xtxerr/seisfetch/internal/loader"
	"github.com/xtxerr/seisfetch/internal/logging"
)

// openIndex opens the configured index backend.
func openIndex(ctx context.Context, cfg *loader.Config) (index.Index, error) {
	var (
		idx index.Index
		err error
	)

	switch cfg.Index.Backend {
	case loader.IndexDynamoDB:
		idx, err = openDynamo(ctx, cfg)
	case loader.IndexDuckDB:
		idx, err = sqlindex.Open(ctx, sqlindex.Config{
			Path:     cfg.Index.DuckDB.Path,
			PageSize: cfg.Index.PageSize,
		})
	case loader.IndexParquet:
		idx, err = parquet.Load(cfg.Index.Parquet.Stations, cfg.Index.Parquet.Files, cfg.Index.PageSize)
	default:
		return nil, fmt.Errorf("index %q: %w", cfg.Index.Backend, errors.ErrInvalidBackend)
	}
	if err != nil {
		return nil, err
	}

	logging.Component("cli").Debug("index opened", "backend", idx.Name())
	return idx, nil
}

func openDynamo(ctx context.Context, cfg *loader.Config) (*dynamo.Index, error) {
	awsCfg, err := awsconf.Load(ctx, cfg.IndexAWS())
	if err != nil {
		return nil, errors.Mark(err, errors.ErrIndexUnavailable)
	}
	return dynamo.NewFromConfig(awsCfg, cfg.DynamoConfig())
}

// openStore opens the configured object store backend.
func openStore(ctx context.Context, cfg *loader.Config) (blob.Store, error) {
	switch cfg.Store.Backend {
	case loader.StoreS3:
		awsCfg, err := awsconf.Load(ctx, cfg.StoreAWS())
		if err != nil {
			return nil, errors.Mark(err, errors.ErrInvalidConfig)
		}
		return s3.NewFromConfig(awsCfg, cfg.S3Config())
	case loader.StoreDir:
		return dir.New(cfg.Store.Root)
	default:
		return nil, fmt.Errorf("store %q: %w", cfg.Store.Backend, errors.ErrInvalidBackend)
	}
}

// progressFor returns the progress reporter selected by mode.
func progressFor(mode string, stderr io.Writer) download.Progress {
	logger := logging.Component("download")

	switch mode {
	case loader.ProgressNone:
		return download.Nop{}
	case loader.ProgressLog:
		return download.NewLog(logger)
	case loader.ProgressConsole:
		return download.NewConsole(stderr)
	default:
		if f, ok := stderr.(*os.File); ok {
			return download.NewProgress(f, logger)
		}
		return download.NewLog(logger)
	}
}
