package locate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xtxerr/seisfetch/config"
	"github.com/xtxerr/seisfetch/internal/errors"
	"github.com/xtxerr/seisfetch/internal/index"
	"github.com/xtxerr/seisfetch/internal/logging"
	"github.com/xtxerr/seisfetch/internal/query"
)

// Locator lists the files recorded for a set of stations.
type Locator struct {
	idx        index.FileIndex
	pageSize   int
	projection []string
	logger     *slog.Logger
}

// NewLocator creates a Locator. pageSize is passed through as the query
// limit; zero lets the backend decide.
func NewLocator(idx index.FileIndex, pageSize int) *Locator {
	return &Locator{
		idx:        idx,
		pageSize:   pageSize,
		projection: []string{config.AttrFilePath},
		logger:     logging.Component("locate"),
	}
}

// WithFullRecords returns a copy of l that requests every file attribute
// instead of only the object key.
func (l *Locator) WithFullRecords() *Locator {
	c := *l
	c.projection = nil
	return &c
}

// Locate queries stations one after another in the given order and
// returns their files in page-arrival order. Every returned cursor
// triggers exactly one more query with the same key condition.
func (l *Locator) Locate(ctx context.Context, stations []string, w query.Window) ([]index.File, error) {
	var files []index.File

	for _, id := range stations {
		found, err := l.locateStation(ctx, id, w)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}

	l.logger.Debug("files located",
		"stations", len(stations),
		"files", len(files),
		"start", w.Start,
		"end", w.End)

	return files, nil
}

func (l *Locator) locateStation(ctx context.Context, id string, w query.Window) ([]index.File, error) {
	ctx = logging.ContextWithStation(ctx, id)

	q := index.FileQuery{
		StationID:  id,
		Window:     w,
		Projection: l.projection,
		Limit:      l.pageSize,
	}

	var files []index.File
	pages := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := l.idx.QueryFiles(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("query files for station %s page %d: %w", id, pages+1, errors.Mark(err, errors.ErrIndexQuery))
		}
		pages++
		files = append(files, page.Items...)

		if page.Next == nil {
			break
		}
		q.Cursor = page.Next
	}

	logging.ComponentContext(ctx, "locate").Debug("station files", "pages", pages, "files", len(files))

	return files, nil
}

// Keys projects the object keys of files, preserving order.
func Keys(files []index.File) []string {
	keys := make([]string, len(files))
	for i, f := range files {
		keys[i] = f.Path
	}
	return keys
}
