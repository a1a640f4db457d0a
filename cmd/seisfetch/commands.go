package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"

	"github.com/xtxerr/seisfetch/internal/blob"
	"github.com/xtxerr/seisfetch/internal/download"
	"github.com/xtxerr/seisfetch/internal/index/sqlindex"
	"github.com/xtxerr/seisfetch/internal/loader"
	"github.com/xtxerr/seisfetch/internal/pipeline"
)

// =============================================================================
// download
// =============================================================================

func runDownload(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("download", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		common   commonFlags
		q        queryFlags
		outDir   string
		workers  int
		retries  int
		progress string
		backend  string
		bucket   string
		root     string
		dryRun   bool
	)
	common.register(fs)
	q.register(fs)
	fs.StringVarP(&outDir, "out", "o", "", "output directory (default from config: .)")
	fs.IntVarP(&workers, "workers", "w", 0, "concurrent downloads (0 = per CPU)")
	fs.IntVar(&retries, "retries", 0, "retries per file after a transient failure")
	fs.StringVar(&progress, "progress", "", "progress output: auto, console, log, none")
	fs.StringVar(&backend, "store", "", "object store backend: s3, dir")
	fs.StringVar(&bucket, "bucket", "", "S3 bucket")
	fs.StringVar(&root, "store-root", "", "mirror root of the dir store")
	fs.BoolVar(&dryRun, "dry-run", false, "print matching keys without downloading")

	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}

	cfg, err := common.load(fs)
	if err != nil {
		return err
	}
	if fs.Changed("out") {
		cfg.Download.OutDir = outDir
	}
	if fs.Changed("workers") {
		cfg.Download.Workers = workers
	}
	if fs.Changed("retries") {
		cfg.Download.Retries = retries
	}
	if fs.Changed("progress") {
		cfg.Download.Progress = progress
	}
	if fs.Changed("store") {
		cfg.Store.Backend = backend
	}
	if fs.Changed("bucket") {
		cfg.Store.Bucket = bucket
	}
	if fs.Changed("store-root") {
		cfg.Store.Root = root
	}

	if err := loader.Validate(cfg); err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}
	logConfig(cfg)

	params, err := q.params(fs)
	if err != nil {
		return err
	}

	idx, err := openIndex(ctx, cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	var store blob.Store
	if !dryRun {
		if store, err = openStore(ctx, cfg); err != nil {
			return err
		}
	}

	opts := cfg.DownloadOptions()
	opts.Progress = progressFor(cfg.Download.Progress, stderr)

	res, err := pipeline.Run(ctx, pipeline.Deps{
		Index:    idx,
		Store:    store,
		PageSize: cfg.Index.PageSize,
		Download: opts,
	}, pipeline.Request{
		Params: params,
		OutDir: cfg.Download.OutDir,
		DryRun: dryRun,
	})
	if err != nil {
		return err
	}

	if res.NoResults {
		fmt.Fprintln(stderr, "no files match the query")
		return nil
	}
	if dryRun {
		for _, k := range res.Keys {
			fmt.Fprintln(stdout, k)
		}
		return nil
	}

	printReport(stderr, res.Report)
	return res.Report.Err()
}

func printReport(w io.Writer, r *download.Report) {
	fmt.Fprintf(w, "%d/%d files downloaded (%d bytes) in %s with %d workers\n",
		r.Succeeded, r.Total, r.Bytes, r.Elapsed.Round(time.Millisecond), r.Workers)
	if r.Latency.Count > 0 {
		fmt.Fprintf(w, "fetch latency p50=%s p90=%s p99=%s max=%s\n",
			r.Latency.P50, r.Latency.P90, r.Latency.P99, r.Latency.Max)
	}
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  failed [%s] %s: %v\n", f.Kind, f.Job.Key, f.Err)
	}
}

// =============================================================================
// snapshot
// =============================================================================

func runSnapshot(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("snapshot", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		common      commonFlags
		q           queryFlags
		dir         string
		compression string
	)
	common.register(fs)
	q.register(fs)
	fs.StringVar(&dir, "dir", "", "output directory for stations.parquet and files.parquet")
	fs.StringVar(&compression, "compression", "", "parquet compression: zstd, snappy, lz4, gzip, none")

	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}

	cfg, err := common.load(fs)
	if err != nil {
		return err
	}
	if fs.Changed("dir") {
		cfg.Snapshot.Dir = dir
	}
	if fs.Changed("compression") {
		cfg.Snapshot.Compression = compression
	}

	if err := loader.Validate(cfg); err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}
	logConfig(cfg)

	params, err := q.params(fs)
	if err != nil {
		return err
	}
	popts, err := cfg.ParquetOptions()
	if err != nil {
		return err
	}

	idx, err := openIndex(ctx, cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	res, err := pipeline.Snapshot(ctx, pipeline.Deps{
		Index:    idx,
		PageSize: cfg.Index.PageSize,
	}, pipeline.SnapshotRequest{
		Params:  params,
		Dir:     cfg.Snapshot.Dir,
		Parquet: popts,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s\t%d stations\n", res.StationsPath, res.Stations)
	fmt.Fprintf(stdout, "%s\t%d files\n", res.FilesPath, res.Files)
	return nil
}

// =============================================================================
// duckdb-import
// =============================================================================

func runImport(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("duckdb-import", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var common commonFlags
	common.register(fs)

	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}

	cfg, err := common.load(fs)
	if err != nil {
		return err
	}
	cfg.Index.Backend = loader.IndexDuckDB

	if err := loader.Validate(cfg); err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}

	idx, err := sqlindex.Open(ctx, sqlindex.Config{
		Path:     cfg.Index.DuckDB.Path,
		PageSize: cfg.Index.PageSize,
	})
	if err != nil {
		return err
	}
	defer idx.Close()

	stats, err := idx.ImportParquet(ctx, cfg.Index.Parquet.Stations, cfg.Index.Parquet.Files)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s\t%d stations\t%d files\n", cfg.Index.DuckDB.Path, stats.Stations, stats.Files)
	return nil
}
