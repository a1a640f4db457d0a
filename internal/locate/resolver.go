package locate

import (
	"context"
	"fmt"
	"sort"

	"github.com/xtxerr/seisfetch/config"
	"github.com/xtxerr/seisfetch/internal/errors"
	"github.com/xtxerr/seisfetch/internal/filter"
	"github.com/xtxerr/seisfetch/internal/index"
	"github.com/xtxerr/seisfetch/internal/logging"
)

// Resolver finds the stations matching a filter.
type Resolver struct {
	idx      index.StationIndex
	pageSize int
}

// NewResolver creates a Resolver. pageSize is passed through as the scan
// limit; zero lets the backend decide.
func NewResolver(idx index.StationIndex, pageSize int) *Resolver {
	return &Resolver{
		idx:      idx,
		pageSize: pageSize,
	}
}

// Resolve scans the station index with expr, projecting only the station
// identifier, and returns the sorted distinct identifiers. No match is an
// empty slice and a nil error; index failures wrap errors.ErrIndexQuery.
func (r *Resolver) Resolve(ctx context.Context, expr filter.Expr) ([]string, error) {
	seen := make(map[string]struct{})

	pages, err := r.scan(ctx, expr, []string{config.AttrStationID}, func(st index.Station) {
		seen[st.ID] = struct{}{}
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	logging.ComponentContext(ctx, "resolve").Debug("stations resolved",
		"filter", filter.String(expr),
		"pages", pages,
		"stations", len(ids))

	return ids, nil
}

// Stations returns every station item matching expr with all attributes,
// in scan order. A station with several epochs appears once per item.
func (r *Resolver) Stations(ctx context.Context, expr filter.Expr) ([]index.Station, error) {
	var items []index.Station

	pages, err := r.scan(ctx, expr, nil, func(st index.Station) {
		items = append(items, st)
	})
	if err != nil {
		return nil, err
	}

	logging.ComponentContext(ctx, "resolve").Debug("station items collected",
		"filter", filter.String(expr),
		"pages", pages,
		"items", len(items))

	return items, nil
}

// scan follows scan cursors until exhausted and calls visit per item.
func (r *Resolver) scan(ctx context.Context, expr filter.Expr, projection []string, visit func(index.Station)) (int, error) {
	req := index.ScanRequest{
		Filter:     expr,
		Projection: projection,
		Limit:      r.pageSize,
	}

	pages := 0
	for {
		if err := ctx.Err(); err != nil {
			return pages, err
		}

		page, err := r.idx.ScanStations(ctx, req)
		if err != nil {
			return pages, fmt.Errorf("scan stations page %d: %w", pages+1, errors.Mark(err, errors.ErrIndexQuery))
		}
		pages++

		for _, st := range page.Items {
			visit(st)
		}

		if page.Next == nil {
			return pages, nil
		}
		req.Cursor = page.Next
	}
}
