package parquet

import (
	"fmt"

	"github.com/xtxerr/seisfetch/internal/errors"
	"github.com/xtxerr/seisfetch/internal/index"
	"github.com/xtxerr/seisfetch/internal/index/memory"
	"github.com/xtxerr/seisfetch/internal/logging"
)

// Index serves a snapshot pair from memory. Station filters are
// interpreted with filter.Eval.
type Index struct {
	*memory.Index
}

// Load reads both snapshot files and indexes them in memory.
func Load(stationsPath, filesPath string, pageSize int) (*Index, error) {
	stations, err := ReadStations(stationsPath)
	if err != nil {
		return nil, fmt.Errorf("load stations: %w", errors.Mark(err, errors.ErrIndexUnavailable))
	}
	files, err := ReadFiles(filesPath)
	if err != nil {
		return nil, fmt.Errorf("load files: %w", errors.Mark(err, errors.ErrIndexUnavailable))
	}

	m := memory.New(pageSize)
	m.AddStations(stations...)
	m.AddFiles(files...)

	logging.Component("index.parquet").Info("snapshot loaded",
		"stations", len(stations),
		"files", len(files))

	return &Index{Index: m}, nil
}

// Name returns the backend name.
func (*Index) Name() string {
	return "parquet"
}

// Verify interface compliance.
var _ index.Index = (*Index)(nil)
