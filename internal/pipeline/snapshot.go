package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/xtxerr/seisfetch/config"
	"github.com/xtxerr/seisfetch/internal/errors"
	"github.com/xtxerr/seisfetch/internal/filter"
	"github.com/xtxerr/seisfetch/internal/index/parquet"
	"github.com/xtxerr/seisfetch/internal/locate"
	"github.com/xtxerr/seisfetch/internal/logging"
	"github.com/xtxerr/seisfetch/internal/query"
)

// SnapshotRequest describes a snapshot export.
type SnapshotRequest struct {
	Params query.Params

	// Dir receives stations.parquet and files.parquet.
	Dir     string
	Parquet parquet.Options
}

// SnapshotResult describes the written snapshot.
type SnapshotResult struct {
	RunID        string
	Stations     int
	Files        int
	StationsPath string
	FilesPath    string
}

// Snapshot resolves Params like Run, but with full projections, and
// writes the matching station and file items as parquet files. The
// output can be served by the parquet backend or imported into DuckDB.
func Snapshot(ctx context.Context, deps Deps, req SnapshotRequest) (*SnapshotResult, error) {
	if deps.Index == nil {
		return nil, fmt.Errorf("index: %w", errors.ErrMissingField)
	}
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}

	res := &SnapshotResult{
		RunID:        uuid.NewString(),
		StationsPath: filepath.Join(req.Dir, config.DefaultStationsSnapshot),
		FilesPath:    filepath.Join(req.Dir, config.DefaultFilesSnapshot),
	}
	ctx = logging.ContextWithRunID(ctx, res.RunID)
	logger := logging.ComponentContext(ctx, "snapshot")

	n := query.Normalize(req.Params)
	expr := filter.Build(n)

	stations, err := locate.NewResolver(deps.Index, deps.PageSize).Stations(ctx, expr)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, st := range stations {
		if _, ok := seen[st.ID]; !ok {
			seen[st.ID] = struct{}{}
			ids = append(ids, st.ID)
		}
	}
	sort.Strings(ids)

	files, err := locate.NewLocator(deps.Index, deps.PageSize).WithFullRecords().Locate(ctx, ids, n.Window())
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(req.Dir, config.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("create %s: %w", req.Dir, errors.Mark(err, errors.ErrCreateDir))
	}
	if err := parquet.WriteStations(res.StationsPath, stations, req.Parquet); err != nil {
		return nil, errors.Mark(err, errors.ErrWriteFile)
	}
	if err := parquet.WriteFiles(res.FilesPath, files, req.Parquet); err != nil {
		return nil, errors.Mark(err, errors.ErrWriteFile)
	}

	res.Stations = len(stations)
	res.Files = len(files)

	logger.Info("snapshot written",
		"filter", filter.String(expr),
		"stations", res.Stations,
		"files", res.Files,
		"dir", req.Dir)

	return res, nil
}
