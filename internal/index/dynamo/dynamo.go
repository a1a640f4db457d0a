// Package dynamo implements index.Index over the DynamoDB station and file
// tables.
//
// Station scans carry a filter expression built from filter.Expr with the
// SDK expression builder. File queries use a key condition on stationID
// and a DATE range. Continuation uses LastEvaluatedKey.
package dynamo

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/xtxerr/seisfetch/config"
	"github.com/xtxerr/seisfetch/internal/errors"
	"github.com/xtxerr/seisfetch/internal/filter"
	"github.com/xtxerr/seisfetch/internal/index"
	"github.com/xtxerr/seisfetch/internal/logging"
)

// API is the subset of the DynamoDB client used by Index.
// This interface allows for mocking in tests.
type API interface {
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Config holds table settings.
type Config struct {
	StationsTable string
	FilesTable    string

	// PageSize sets Limit on every request. Zero leaves it to the service.
	PageSize int32

	// Endpoint overrides the service endpoint (DynamoDB Local, LocalStack).
	Endpoint string
}

// DefaultConfig returns the public SCEDC table names.
func DefaultConfig() Config {
	return Config{
		StationsTable: config.DefaultStationsTable,
		FilesTable:    config.DefaultFilesTable,
		PageSize:      config.DefaultPageSize,
	}
}

// Index serves the station and file tables from DynamoDB.
type Index struct {
	api    API
	cfg    Config
	logger *slog.Logger

	// Statistics
	scans   atomic.Int64
	queries atomic.Int64
}

// cursor is a LastEvaluatedKey.
type cursor map[string]types.AttributeValue

// fileItem is the stored shape of a file index item.
type fileItem struct {
	StationID string `dynamodbav:"stationID"`
	Date      string `dynamodbav:"DATE"`
	Path      string `dynamodbav:"FILEPATH"`
}

// New creates an Index over an existing client.
func New(api API, cfg Config) (*Index, error) {
	if api == nil {
		return nil, fmt.Errorf("dynamodb client is required")
	}
	if cfg.StationsTable == "" || cfg.FilesTable == "" {
		return nil, errors.NewMissingField("table")
	}
	return &Index{
		api:    api,
		cfg:    cfg,
		logger: logging.Component("index.dynamo"),
	}, nil
}

// NewFromConfig creates an Index with a new client built from awsCfg.
func NewFromConfig(awsCfg aws.Config, cfg Config) (*Index, error) {
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return New(client, cfg)
}

// Name returns the backend name.
func (*Index) Name() string {
	return "dynamodb"
}

// Close is a no-op; the SDK client holds no resources to release.
func (*Index) Close() error {
	return nil
}

// Stats returns request counters.
func (x *Index) Stats() (scans, queries int64) {
	return x.scans.Load(), x.queries.Load()
}

// ScanStations implements index.StationIndex.
func (x *Index) ScanStations(ctx context.Context, req index.ScanRequest) (index.Page[index.Station], error) {
	in := &dynamodb.ScanInput{
		TableName: aws.String(x.cfg.StationsTable),
	}

	builder := expression.NewBuilder()
	hasExpr := false
	if req.Filter != nil {
		cond, err := Condition(req.Filter)
		if err != nil {
			return index.Page[index.Station]{}, err
		}
		builder = builder.WithFilter(cond)
		hasExpr = true
	}
	if len(req.Projection) > 0 {
		builder = builder.WithProjection(projection(req.Projection))
		hasExpr = true
	}
	if hasExpr {
		expr, err := builder.Build()
		if err != nil {
			return index.Page[index.Station]{}, fmt.Errorf("build scan expression: %w", errors.Mark(err, errors.ErrInvalidFilter))
		}
		in.FilterExpression = expr.Filter()
		in.ProjectionExpression = expr.Projection()
		in.ExpressionAttributeNames = expr.Names()
		in.ExpressionAttributeValues = expr.Values()
	}

	if err := x.applyPaging(&in.Limit, &in.ExclusiveStartKey, req.Limit, req.Cursor); err != nil {
		return index.Page[index.Station]{}, err
	}

	x.scans.Add(1)
	out, err := x.api.Scan(ctx, in)
	if err != nil {
		return index.Page[index.Station]{}, fmt.Errorf("scan %s: %w", x.cfg.StationsTable, errors.Mark(err, errors.ErrIndexQuery))
	}

	page := index.Page[index.Station]{Items: make([]index.Station, 0, len(out.Items))}
	for _, item := range out.Items {
		st, err := decodeStation(item)
		if err != nil {
			return index.Page[index.Station]{}, fmt.Errorf("decode station: %w", errors.Mark(err, errors.ErrIndexQuery))
		}
		page.Items = append(page.Items, st)
	}
	if len(out.LastEvaluatedKey) > 0 {
		page.Next = cursor(out.LastEvaluatedKey)
	}

	x.logger.Debug("scan page",
		"table", x.cfg.StationsTable,
		"scanned", out.ScannedCount,
		"matched", len(page.Items),
		"more", page.Next != nil)

	return page, nil
}

// QueryFiles implements index.FileIndex.
func (x *Index) QueryFiles(ctx context.Context, q index.FileQuery) (index.Page[index.File], error) {
	key := expression.Key(config.AttrStationID).Equal(expression.Value(q.StationID)).
		And(expression.Key(config.AttrDate).Between(expression.Value(q.Window.Start), expression.Value(q.Window.End)))

	builder := expression.NewBuilder().WithKeyCondition(key)
	if len(q.Projection) > 0 {
		builder = builder.WithProjection(projection(q.Projection))
	}
	expr, err := builder.Build()
	if err != nil {
		return index.Page[index.File]{}, fmt.Errorf("build query expression: %w", errors.Mark(err, errors.ErrInvalidFilter))
	}

	in := &dynamodb.QueryInput{
		TableName:                 aws.String(x.cfg.FilesTable),
		KeyConditionExpression:    expr.KeyCondition(),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	if err := x.applyPaging(&in.Limit, &in.ExclusiveStartKey, q.Limit, q.Cursor); err != nil {
		return index.Page[index.File]{}, err
	}

	x.queries.Add(1)
	out, err := x.api.Query(ctx, in)
	if err != nil {
		return index.Page[index.File]{}, fmt.Errorf("query %s for %s: %w", x.cfg.FilesTable, q.StationID, errors.Mark(err, errors.ErrIndexQuery))
	}

	var items []fileItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return index.Page[index.File]{}, fmt.Errorf("decode files: %w", errors.Mark(err, errors.ErrIndexQuery))
	}

	page := index.Page[index.File]{Items: make([]index.File, 0, len(items))}
	for _, it := range items {
		f := index.File{StationID: it.StationID, Date: it.Date, Path: it.Path}
		if f.StationID == "" {
			f.StationID = q.StationID
		}
		page.Items = append(page.Items, f)
	}
	if len(out.LastEvaluatedKey) > 0 {
		page.Next = cursor(out.LastEvaluatedKey)
	}

	return page, nil
}

func (x *Index) applyPaging(limit **int32, start *map[string]types.AttributeValue, reqLimit int, c index.Cursor) error {
	switch {
	case reqLimit > 0:
		*limit = aws.Int32(int32(reqLimit))
	case x.cfg.PageSize > 0:
		*limit = aws.Int32(x.cfg.PageSize)
	}

	switch v := c.(type) {
	case nil:
	case cursor:
		*start = v
	case map[string]types.AttributeValue:
		*start = v
	default:
		return fmt.Errorf("cursor type %T: %w", c, errors.ErrInvalidCursor)
	}
	return nil
}

func projection(attrs []string) expression.ProjectionBuilder {
	names := make([]expression.NameBuilder, len(attrs))
	for i, a := range attrs {
		names[i] = expression.Name(a)
	}
	return expression.NamesList(names[0], names[1:]...)
}

func decodeStation(item map[string]types.AttributeValue) (index.Station, error) {
	st := index.Station{Attrs: make(filter.AttributeMap, len(item))}
	for name, av := range item {
		v, ok, err := attrValue(av)
		if err != nil {
			return index.Station{}, fmt.Errorf("attribute %s: %w", name, err)
		}
		if ok {
			st.Attrs[name] = v
		}
	}

	id, ok := st.Attrs[config.AttrStationID]
	if !ok || id.IsNumber() {
		return index.Station{}, fmt.Errorf("item without string %s", config.AttrStationID)
	}
	st.ID = id.Str

	return st, nil
}

// Verify interface compliance.
var _ index.Index = (*Index)(nil)
