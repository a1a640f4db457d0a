package locate

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/xtxerr/seisfetch/internal/errors"
	"github.com/xtxerr/seisfetch/internal/filter"
	"github.com/xtxerr/seisfetch/internal/index"
	"github.com/xtxerr/seisfetch/internal/index/memory"
	"github.com/xtxerr/seisfetch/internal/query"
)

// scripted returns canned pages per station and records every query.
type scripted struct {
	pages   map[string][]index.Page[index.File]
	calls   []index.FileQuery
	failFor string
}

func (s *scripted) QueryFiles(_ context.Context, q index.FileQuery) (index.Page[index.File], error) {
	s.calls = append(s.calls, q)
	if q.StationID == s.failFor {
		return index.Page[index.File]{}, fmt.Errorf("provisioned throughput exceeded")
	}

	n := 0
	if q.Cursor != nil {
		n = q.Cursor.(int)
	}
	page := s.pages[q.StationID][n]
	return page, nil
}

func filePage(next index.Cursor, paths ...string) index.Page[index.File] {
	p := index.Page[index.File]{Next: next}
	for _, path := range paths {
		p.Items = append(p.Items, index.File{Path: path})
	}
	return p
}

var day = query.Window{Start: "2016-07-04", End: "2016-07-04"}

func TestLocateFollowsEveryCursor(t *testing.T) {
	idx := &scripted{pages: map[string][]index.Page[index.File]{
		"CI.PAS": {
			filePage(1, "p1"),
			filePage(2, "p2", "p3"),
			filePage(nil, "p4"),
		},
		"CI.RFO": {
			filePage(nil, "r1"),
		},
	}}

	files, err := NewLocator(idx, 0).Locate(context.Background(), []string{"CI.PAS", "CI.RFO"}, day)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}

	if len(idx.calls) != 4 {
		t.Fatalf("expected 4 queries (3 pages + 1 page), got %d", len(idx.calls))
	}
	for i, q := range idx.calls[:3] {
		if q.StationID != "CI.PAS" || q.Window != day {
			t.Errorf("query %d changed key condition: %+v", i, q)
		}
		if !reflect.DeepEqual(q.Projection, []string{"FILEPATH"}) {
			t.Errorf("query %d projection = %v", i, q.Projection)
		}
	}
	if idx.calls[0].Cursor != nil || idx.calls[1].Cursor != 1 || idx.calls[2].Cursor != 2 {
		t.Errorf("unexpected cursors: %v %v %v", idx.calls[0].Cursor, idx.calls[1].Cursor, idx.calls[2].Cursor)
	}

	want := []string{"p1", "p2", "p3", "p4", "r1"}
	if got := Keys(files); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestLocateEmptyPageWithCursor(t *testing.T) {
	idx := &scripted{pages: map[string][]index.Page[index.File]{
		"CI.RFO": {
			filePage(1),
			filePage(nil, "r1"),
		},
	}}

	files, err := NewLocator(idx, 0).Locate(context.Background(), []string{"CI.RFO"}, day)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if len(idx.calls) != 2 || len(files) != 1 {
		t.Errorf("calls = %d, files = %d; want 2, 1", len(idx.calls), len(files))
	}
}

func TestLocateError(t *testing.T) {
	idx := &scripted{failFor: "CI.RFO"}

	_, err := NewLocator(idx, 0).Locate(context.Background(), []string{"CI.RFO"}, day)
	if !errors.Is(err, errors.ErrIndexQuery) {
		t.Errorf("expected ErrIndexQuery, got %v", err)
	}
}

func TestLocateNoStations(t *testing.T) {
	idx := &scripted{}
	files, err := NewLocator(idx, 0).Locate(context.Background(), nil, day)
	if err != nil || len(files) != 0 || len(idx.calls) != 0 {
		t.Errorf("files=%v err=%v calls=%d", files, err, len(idx.calls))
	}
}

func stationItem(id, cha string) index.Station {
	return index.Station{ID: id, Attrs: filter.AttributeMap{
		"stationID": query.String(id),
		"CHAN":      query.String(cha),
	}}
}

func TestResolveDedupesAndSorts(t *testing.T) {
	m := memory.New(2)
	m.AddStations(
		stationItem("CI.RFO", "HHZ"),
		stationItem("CI.PAS", "HHZ"),
		stationItem("CI.RFO", "HHN"),
		stationItem("CI.BBR", "BHZ"),
		stationItem("CI.PAS", "HHE"),
	)

	ids, err := NewResolver(m, 0).Resolve(context.Background(), filter.Prefix{Attr: "CHAN", Prefix: "HH"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	want := []string{"CI.PAS", "CI.RFO"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("Resolve() = %v, want %v", ids, want)
	}
	if got := m.Stats().Scans; got != 3 {
		t.Errorf("expected 3 scan pages, got %d", got)
	}
}

func TestResolveNoMatches(t *testing.T) {
	m := memory.New(0)
	m.AddStations(stationItem("CI.RFO", "HHZ"))

	ids, err := NewResolver(m, 0).Resolve(context.Background(), filter.Eq{Attr: "CHAN", Value: query.String("LHZ")})
	if err != nil {
		t.Fatalf("no results must not be an error: %v", err)
	}
	if ids == nil || len(ids) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", ids)
	}
}

type failingStations struct{}

func (failingStations) ScanStations(context.Context, index.ScanRequest) (index.Page[index.Station], error) {
	return index.Page[index.Station]{}, fmt.Errorf("access denied")
}

func TestResolveError(t *testing.T) {
	_, err := NewResolver(failingStations{}, 0).Resolve(context.Background(), nil)
	if !errors.Is(err, errors.ErrIndexQuery) {
		t.Errorf("expected ErrIndexQuery, got %v", err)
	}
	if errors.ErrorToExitCode(err) != errors.ExitIndex {
		t.Errorf("exit code = %d, want %d", errors.ErrorToExitCode(err), errors.ExitIndex)
	}
}

func TestResolveStationsKeepsEveryItem(t *testing.T) {
	m := memory.New(2)
	m.AddStations(
		stationItem("CI.RFO", "HHZ"),
		stationItem("CI.PAS", "BHZ"),
		stationItem("CI.RFO", "HHN"),
	)

	items, err := NewResolver(m, 0).Stations(context.Background(), filter.Prefix{Attr: "CHAN", Prefix: "HH"})
	if err != nil {
		t.Fatalf("Stations: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	for _, it := range items {
		if it.ID != "CI.RFO" {
			t.Errorf("unexpected station %s", it.ID)
		}
		if _, ok := it.Attrs["CHAN"]; !ok {
			t.Errorf("item %s lost CHAN attribute", it.ID)
		}
	}
}

func TestLocatorProjection(t *testing.T) {
	idx := &scripted{pages: map[string][]index.Page[index.File]{
		"CI.RFO": {filePage(nil, "r1")},
	}}

	l := NewLocator(idx, 0)
	if _, err := l.Locate(context.Background(), []string{"CI.RFO"}, day); err != nil {
		t.Fatal(err)
	}
	if _, err := l.WithFullRecords().Locate(context.Background(), []string{"CI.RFO"}, day); err != nil {
		t.Fatal(err)
	}

	if got := idx.calls[0].Projection; !reflect.DeepEqual(got, []string{"FILEPATH"}) {
		t.Errorf("default projection = %v, want [FILEPATH]", got)
	}
	if got := idx.calls[1].Projection; got != nil {
		t.Errorf("full projection = %v, want nil", got)
	}
}
