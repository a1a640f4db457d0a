package dynamo

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/xtxerr/seisfetch/internal/errors"
	"github.com/xtxerr/seisfetch/internal/filter"
	"github.com/xtxerr/seisfetch/internal/index"
	"github.com/xtxerr/seisfetch/internal/query"
)

// fakeAPI replays canned pages and records every request.
type fakeAPI struct {
	scanPages  []*dynamodb.ScanOutput
	queryPages []*dynamodb.QueryOutput
	err        error

	scans   []*dynamodb.ScanInput
	queries []*dynamodb.QueryInput
}

func (f *fakeAPI) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.scans = append(f.scans, in)
	if f.err != nil {
		return nil, f.err
	}
	out := f.scanPages[0]
	f.scanPages = f.scanPages[1:]
	return out, nil
}

func (f *fakeAPI) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queries = append(f.queries, in)
	if f.err != nil {
		return nil, f.err
	}
	out := f.queryPages[0]
	f.queryPages = f.queryPages[1:]
	return out, nil
}

func s(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }
func n(v string) types.AttributeValue { return &types.AttributeValueMemberN{Value: v} }

func newIndex(t *testing.T, api API) *Index {
	t.Helper()
	x, err := New(api, DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return x
}

func names(m map[string]string) []string {
	var out []string
	for _, v := range m {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func values(m map[string]types.AttributeValue) map[string]bool {
	out := make(map[string]bool)
	for _, av := range m {
		switch v := av.(type) {
		case *types.AttributeValueMemberS:
			out["S:"+v.Value] = true
		case *types.AttributeValueMemberN:
			out["N:"+v.Value] = true
		}
	}
	return out
}

func TestScanStationsRequestShape(t *testing.T) {
	api := &fakeAPI{scanPages: []*dynamodb.ScanOutput{{
		Items: []map[string]types.AttributeValue{
			{"stationID": s("CI.RFO")},
		},
	}}}
	x := newIndex(t, api)

	expr := filter.And{Terms: []filter.Expr{
		filter.Eq{Attr: "NET", Value: query.String("CI")},
		filter.Prefix{Attr: "CHAN", Prefix: "HH"},
		filter.Gte{Attr: "LAT", Value: query.Number(34.1)},
	}}

	page, err := x.ScanStations(context.Background(), index.ScanRequest{
		Filter:     expr,
		Projection: []string{"stationID"},
	})
	if err != nil {
		t.Fatalf("ScanStations: %v", err)
	}

	if len(api.scans) != 1 {
		t.Fatalf("expected 1 scan, got %d", len(api.scans))
	}
	in := api.scans[0]
	if *in.TableName != "SCEDC-stations" {
		t.Errorf("TableName = %s", *in.TableName)
	}
	if in.FilterExpression == nil || in.ProjectionExpression == nil {
		t.Fatal("expected filter and projection expressions")
	}

	wantNames := []string{"CHAN", "LAT", "NET", "stationID"}
	if got := names(in.ExpressionAttributeNames); fmt.Sprint(got) != fmt.Sprint(wantNames) {
		t.Errorf("attribute names = %v, want %v", got, wantNames)
	}

	vals := values(in.ExpressionAttributeValues)
	for _, want := range []string{"S:CI", "S:HH", "N:34.1"} {
		if !vals[want] {
			t.Errorf("missing expression value %s in %v", want, vals)
		}
	}

	if len(page.Items) != 1 || page.Items[0].ID != "CI.RFO" {
		t.Errorf("unexpected items: %+v", page.Items)
	}
	if page.Next != nil {
		t.Error("expected exhausted cursor")
	}
}

func TestScanStationsWithoutExpression(t *testing.T) {
	api := &fakeAPI{scanPages: []*dynamodb.ScanOutput{{}}}
	x := newIndex(t, api)

	if _, err := x.ScanStations(context.Background(), index.ScanRequest{}); err != nil {
		t.Fatalf("ScanStations: %v", err)
	}
	in := api.scans[0]
	if in.FilterExpression != nil || in.ProjectionExpression != nil {
		t.Error("expected bare scan")
	}
}

func TestScanStationsCursor(t *testing.T) {
	lek := map[string]types.AttributeValue{"stationID": s("CI.PAS")}
	api := &fakeAPI{scanPages: []*dynamodb.ScanOutput{
		{Items: []map[string]types.AttributeValue{{"stationID": s("CI.PAS")}}, LastEvaluatedKey: lek},
		{Items: []map[string]types.AttributeValue{{"stationID": s("CI.RFO")}}},
	}}
	x := newIndex(t, api)

	first, err := x.ScanStations(context.Background(), index.ScanRequest{})
	if err != nil {
		t.Fatalf("ScanStations: %v", err)
	}
	if first.Next == nil {
		t.Fatal("expected continuation cursor")
	}

	if _, err := x.ScanStations(context.Background(), index.ScanRequest{Cursor: first.Next}); err != nil {
		t.Fatalf("ScanStations: %v", err)
	}
	start := api.scans[1].ExclusiveStartKey
	if v, ok := start["stationID"].(*types.AttributeValueMemberS); !ok || v.Value != "CI.PAS" {
		t.Errorf("ExclusiveStartKey = %v", start)
	}
}

func TestScanStationsDecodesNumbers(t *testing.T) {
	api := &fakeAPI{scanPages: []*dynamodb.ScanOutput{{
		Items: []map[string]types.AttributeValue{
			{"stationID": s("CI.RFO"), "LAT": n("33.611"), "TAGS": &types.AttributeValueMemberSS{Value: []string{"x"}}},
		},
	}}}
	x := newIndex(t, api)

	page, err := x.ScanStations(context.Background(), index.ScanRequest{})
	if err != nil {
		t.Fatalf("ScanStations: %v", err)
	}
	lat, ok := page.Items[0].Attrs["LAT"]
	if !ok || !lat.IsNumber() || lat.Text() != "33.611" {
		t.Errorf("LAT = %+v", lat)
	}
	if _, ok := page.Items[0].Attrs["TAGS"]; ok {
		t.Error("set attributes should be skipped")
	}
}

func TestScanStationsMissingID(t *testing.T) {
	api := &fakeAPI{scanPages: []*dynamodb.ScanOutput{{
		Items: []map[string]types.AttributeValue{{"NET": s("CI")}},
	}}}
	x := newIndex(t, api)

	_, err := x.ScanStations(context.Background(), index.ScanRequest{})
	if !errors.Is(err, errors.ErrIndexQuery) {
		t.Errorf("expected ErrIndexQuery, got %v", err)
	}
}

func TestScanStationsError(t *testing.T) {
	api := &fakeAPI{err: fmt.Errorf("throttled")}
	x := newIndex(t, api)

	_, err := x.ScanStations(context.Background(), index.ScanRequest{})
	if !errors.Is(err, errors.ErrIndexQuery) {
		t.Errorf("expected ErrIndexQuery, got %v", err)
	}
}

func TestQueryFilesRequestShape(t *testing.T) {
	api := &fakeAPI{queryPages: []*dynamodb.QueryOutput{{
		Items: []map[string]types.AttributeValue{
			{"FILEPATH": s("continuous_waveforms/2016/2016_186/CIRFO__HHZ___2016186.ms")},
		},
		LastEvaluatedKey: map[string]types.AttributeValue{"stationID": s("CI.RFO"), "DATE": s("2016-07-04")},
	}}}
	x := newIndex(t, api)

	page, err := x.QueryFiles(context.Background(), index.FileQuery{
		StationID:  "CI.RFO",
		Window:     query.Window{Start: "2016-07-04", End: "2016-07-04"},
		Projection: []string{"FILEPATH"},
	})
	if err != nil {
		t.Fatalf("QueryFiles: %v", err)
	}

	in := api.queries[0]
	if *in.TableName != "SCEDC-files" {
		t.Errorf("TableName = %s", *in.TableName)
	}
	if in.KeyConditionExpression == nil {
		t.Fatal("expected key condition")
	}
	wantNames := []string{"DATE", "FILEPATH", "stationID"}
	if got := names(in.ExpressionAttributeNames); fmt.Sprint(got) != fmt.Sprint(wantNames) {
		t.Errorf("attribute names = %v, want %v", got, wantNames)
	}
	vals := values(in.ExpressionAttributeValues)
	if !vals["S:CI.RFO"] || !vals["S:2016-07-04"] {
		t.Errorf("unexpected values %v", vals)
	}

	if len(page.Items) != 1 {
		t.Fatalf("expected 1 file, got %d", len(page.Items))
	}
	f := page.Items[0]
	if f.StationID != "CI.RFO" || f.Path != "continuous_waveforms/2016/2016_186/CIRFO__HHZ___2016186.ms" {
		t.Errorf("unexpected file %+v", f)
	}
	if page.Next == nil {
		t.Error("expected continuation cursor")
	}
}

func TestPageSizeAndInvalidCursor(t *testing.T) {
	api := &fakeAPI{scanPages: []*dynamodb.ScanOutput{{}}}
	cfg := DefaultConfig()
	cfg.PageSize = 25
	x, err := New(api, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := x.ScanStations(context.Background(), index.ScanRequest{}); err != nil {
		t.Fatalf("ScanStations: %v", err)
	}
	if api.scans[0].Limit == nil || *api.scans[0].Limit != 25 {
		t.Errorf("Limit = %v, want 25", api.scans[0].Limit)
	}

	_, err = x.ScanStations(context.Background(), index.ScanRequest{Cursor: 42})
	if !errors.Is(err, errors.ErrInvalidCursor) {
		t.Errorf("expected ErrInvalidCursor, got %v", err)
	}
}

func TestConditionRejectsEmptyJunction(t *testing.T) {
	if _, err := Condition(filter.Or{}); !errors.Is(err, errors.ErrInvalidFilter) {
		t.Errorf("expected ErrInvalidFilter, got %v", err)
	}
}

func TestNumberMarshal(t *testing.T) {
	av, err := number(query.Number(-118.25).Num).MarshalDynamoDBAttributeValue()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	v, ok := av.(*types.AttributeValueMemberN)
	if !ok || v.Value != "-118.25" {
		t.Errorf("got %#v, want N -118.25", av)
	}
}
