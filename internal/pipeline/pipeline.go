// Package pipeline wires one seisfetch run together: normalize the query,
// build the station filter, resolve stations, locate their files and
// download them.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xtxerr/seisfetch/internal/blob"
	"github.com/xtxerr/seisfetch/internal/download"
	"github.com/xtxerr/seisfetch/internal/errors"
	"github.com/xtxerr/seisfetch/internal/filter"
	"github.com/xtxerr/seisfetch/internal/index"
	"github.com/xtxerr/seisfetch/internal/locate"
	"github.com/xtxerr/seisfetch/internal/logging"
	"github.com/xtxerr/seisfetch/internal/query"
)

// Index serves both index tables.
type Index interface {
	index.StationIndex
	index.FileIndex
}

// Deps are the collaborators of a run.
type Deps struct {
	Index Index

	// Store may be nil for dry runs and snapshots.
	Store blob.Store

	// PageSize is passed to every index request. Zero lets the backend
	// decide.
	PageSize int

	Download download.Options
}

// Request describes one run.
type Request struct {
	Params query.Params
	OutDir string

	// DryRun stops after locating files.
	DryRun bool
}

// Result is the outcome of a run.
type Result struct {
	RunID    string
	Filter   filter.Expr
	Window   query.Window
	Stations []string
	Files    []index.File
	Keys     []string

	// Report is nil for dry runs and when nothing matched.
	Report *download.Report

	// NoResults is set when no station or no file matched.
	NoResults bool
}

// Run executes a download run.
//
// Nothing matching the query is not an error: Result.NoResults is set and
// the error is nil. Index failures return an error wrapping
// errors.ErrIndexQuery. Per-file download failures are recorded in
// Result.Report and do not produce an error.
func Run(ctx context.Context, deps Deps, req Request) (*Result, error) {
	if deps.Index == nil {
		return nil, fmt.Errorf("index: %w", errors.ErrMissingField)
	}
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}

	res := &Result{RunID: uuid.NewString()}
	ctx = logging.ContextWithRunID(ctx, res.RunID)
	logger := logging.ComponentContext(ctx, "pipeline")
	start := time.Now()

	n := query.Normalize(req.Params)
	res.Filter = filter.Build(n)
	res.Window = n.Window()

	logger.Info("run started",
		"filter", filter.String(res.Filter),
		"start", res.Window.Start,
		"end", res.Window.End,
		"dry_run", req.DryRun)

	stations, err := locate.NewResolver(deps.Index, deps.PageSize).Resolve(ctx, res.Filter)
	if err != nil {
		return res, err
	}
	res.Stations = stations

	if len(stations) == 0 {
		res.NoResults = true
		logger.Info("no stations match query", "filter", filter.String(res.Filter))
		return res, nil
	}

	files, err := locate.NewLocator(deps.Index, deps.PageSize).Locate(ctx, stations, res.Window)
	if err != nil {
		return res, err
	}
	res.Files = files
	res.Keys = locate.Keys(files)

	if len(res.Keys) == 0 {
		res.NoResults = true
		logger.Info("no files in window",
			"filter", filter.String(res.Filter),
			"stations", len(stations),
			"start", res.Window.Start,
			"end", res.Window.End)
		return res, nil
	}

	logger.Info("files located",
		"stations", len(stations),
		"files", len(res.Keys))

	if req.DryRun {
		return res, nil
	}

	if deps.Store == nil {
		return res, fmt.Errorf("store: %w", errors.ErrMissingField)
	}

	report, err := download.New(deps.Store, deps.Download).Dispatch(ctx, req.OutDir, res.Keys)
	if err != nil {
		return res, err
	}
	res.Report = report

	logger.Info("run completed",
		"succeeded", report.Succeeded,
		"failed", report.Failed(),
		"elapsed", time.Since(start))

	return res, nil
}
