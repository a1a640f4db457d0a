// Package memory implements index.Index over in-memory tables.
//
// Station filters are interpreted with filter.Eval. Results are paged
// with an offset cursor so callers exercise the same continuation logic
// as against a remote store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/xtxerr/seisfetch/internal/errors"
	"github.com/xtxerr/seisfetch/internal/filter"
	"github.com/xtxerr/seisfetch/internal/index"
)

// Index holds station and file tables in memory.
//
// Index is safe for concurrent use.
type Index struct {
	mu       sync.RWMutex
	stations []index.Station
	files    map[string][]index.File

	pageSize int

	// Statistics
	scans   atomic.Int64
	queries atomic.Int64
}

// Stats holds request counters.
type Stats struct {
	Scans   int64
	Queries int64
}

// cursor is the offset of the next item to return.
type cursor int

// New creates an empty index. pageSize <= 0 returns everything in one page.
func New(pageSize int) *Index {
	return &Index{
		files:    make(map[string][]index.File),
		pageSize: pageSize,
	}
}

// Name returns the backend name.
func (*Index) Name() string {
	return "memory"
}

// Close is a no-op.
func (*Index) Close() error {
	return nil
}

// AddStations appends station items.
func (m *Index) AddStations(stations ...index.Station) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stations = append(m.stations, stations...)
}

// AddFiles appends file items, keeping each station's files ordered by date.
func (m *Index) AddFiles(files ...index.File) {
	m.mu.Lock()
	defer m.mu.Unlock()

	touched := make(map[string]bool)
	for _, f := range files {
		m.files[f.StationID] = append(m.files[f.StationID], f)
		touched[f.StationID] = true
	}
	for id := range touched {
		list := m.files[id]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Date < list[j].Date })
	}
}

// Stats returns request counters.
func (m *Index) Stats() Stats {
	return Stats{
		Scans:   m.scans.Load(),
		Queries: m.queries.Load(),
	}
}

// ScanStations implements index.StationIndex.
func (m *Index) ScanStations(ctx context.Context, req index.ScanRequest) (index.Page[index.Station], error) {
	m.scans.Add(1)

	if err := ctx.Err(); err != nil {
		return index.Page[index.Station]{}, err
	}

	start, err := offset(req.Cursor)
	if err != nil {
		return index.Page[index.Station]{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	// Like a DynamoDB scan, the page limit applies to items examined,
	// not items matched, so a page may come back empty with a cursor.
	end := pageEnd(start, len(m.stations), limitOr(req.Limit, m.pageSize))

	var page index.Page[index.Station]
	for _, st := range m.stations[start:end] {
		if filter.Eval(req.Filter, st.Attrs) {
			page.Items = append(page.Items, project(st, req.Projection))
		}
	}
	if end < len(m.stations) {
		page.Next = cursor(end)
	}

	return page, nil
}

// QueryFiles implements index.FileIndex.
func (m *Index) QueryFiles(ctx context.Context, q index.FileQuery) (index.Page[index.File], error) {
	m.queries.Add(1)

	if err := ctx.Err(); err != nil {
		return index.Page[index.File]{}, err
	}

	start, err := offset(q.Cursor)
	if err != nil {
		return index.Page[index.File]{}, err
	}

	m.mu.RLock()
	var matched []index.File
	for _, f := range m.files[q.StationID] {
		if f.Date >= q.Window.Start && f.Date <= q.Window.End {
			matched = append(matched, f)
		}
	}
	m.mu.RUnlock()

	if start > len(matched) {
		return index.Page[index.File]{}, fmt.Errorf("offset %d beyond %d items: %w", start, len(matched), errors.ErrInvalidCursor)
	}

	end := pageEnd(start, len(matched), limitOr(q.Limit, m.pageSize))

	page := index.Page[index.File]{Items: append([]index.File(nil), matched[start:end]...)}
	if end < len(matched) {
		page.Next = cursor(end)
	}

	return page, nil
}

func offset(c index.Cursor) (int, error) {
	switch v := c.(type) {
	case nil:
		return 0, nil
	case cursor:
		if v < 0 {
			return 0, fmt.Errorf("negative offset: %w", errors.ErrInvalidCursor)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("cursor type %T: %w", c, errors.ErrInvalidCursor)
	}
}

func limitOr(limit, fallback int) int {
	if limit > 0 {
		return limit
	}
	return fallback
}

func pageEnd(start, total, size int) int {
	if start > total {
		return total
	}
	if size <= 0 || start+size > total {
		return total
	}
	return start + size
}

func project(st index.Station, attrs []string) index.Station {
	if len(attrs) == 0 {
		return st
	}
	out := index.Station{ID: st.ID, Attrs: make(filter.AttributeMap, len(attrs))}
	for _, a := range attrs {
		if v, ok := st.Attrs[a]; ok {
			out.Attrs[a] = v
		}
	}
	return out
}

// Verify interface compliance.
var _ index.Index = (*Index)(nil)
