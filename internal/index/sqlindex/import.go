package sqlindex

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/xtxerr/seisfetch/config"
	"github.com/xtxerr/seisfetch/internal/errors"
	"github.com/xtxerr/seisfetch/internal/index"
	"github.com/xtxerr/seisfetch/internal/query"
)

// insertBatch is the number of rows per INSERT statement.
const insertBatch = 500

// ImportStats reports rows loaded by ImportParquet.
type ImportStats struct {
	Stations int64
	Files    int64
}

// InsertStations appends station rows in a single transaction.
func (x *Index) InsertStations(ctx context.Context, stations []index.Station) error {
	rows := make([][]any, len(stations))
	for i, st := range stations {
		row := make([]any, len(stationAttrs))
		for j, a := range stationAttrs {
			if a == config.AttrStationID {
				row[j] = st.ID
				continue
			}
			if v, ok := st.Attrs[a]; ok {
				row[j] = insertValue(v)
			}
		}
		rows[i] = row
	}
	return x.insert(ctx, stationsTable, stationAttrs, rows)
}

// InsertFiles appends file rows in a single transaction.
func (x *Index) InsertFiles(ctx context.Context, files []index.File) error {
	rows := make([][]any, len(files))
	for i, f := range files {
		rows[i] = []any{f.StationID, f.Date, f.Path}
	}
	return x.insert(ctx, filesTable, fileAttrs, rows)
}

func (x *Index) insert(ctx context.Context, table string, attrs []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	cols := make([]string, len(attrs))
	for i, a := range attrs {
		cols[i] = quote(a)
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert into %s: %w", table, err)
	}
	defer func() { _ = tx.Rollback() }()

	for start := 0; start < len(rows); start += insertBatch {
		end := min(start+insertBatch, len(rows))

		ib := psq.Insert(table).Columns(cols...)
		for _, r := range rows[start:end] {
			ib = ib.Values(r...)
		}

		stmt, args, err := ib.ToSql()
		if err != nil {
			return fmt.Errorf("build insert into %s: %w", table, err)
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert into %s: %w", table, err)
	}

	x.logger.Debug("inserted rows", "table", table, "rows", len(rows))
	return nil
}

// ImportParquet loads snapshot files written by the parquet package into
// the index. An empty path skips that table.
func (x *Index) ImportParquet(ctx context.Context, stationsPath, filesPath string) (ImportStats, error) {
	var stats ImportStats

	n, err := x.importTable(ctx, stationsTable, stationAttrs, stationsPath)
	if err != nil {
		return stats, err
	}
	stats.Stations = n

	n, err = x.importTable(ctx, filesTable, fileAttrs, filesPath)
	if err != nil {
		return stats, err
	}
	stats.Files = n

	x.logger.Info("imported parquet snapshot",
		"stations", stats.Stations,
		"files", stats.Files)

	return stats, nil
}

func (x *Index) importTable(ctx context.Context, table string, attrs []string, path string) (int64, error) {
	if path == "" {
		return 0, nil
	}

	cols := make([]string, len(attrs))
	sel := make([]string, len(attrs))
	for i, a := range attrs {
		cols[i] = quote(a)
		sel[i] = cols[i]
		if stationKinds[a] == number {
			sel[i] = fmt.Sprintf("CAST(%s AS %s)", cols[i], coordType)
		}
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM read_parquet($1)",
		table, strings.Join(cols, ", "), strings.Join(sel, ", "))

	res, err := x.db.ExecContext(ctx, stmt, path)
	if err != nil {
		return 0, fmt.Errorf("import %s from %s: %w", table, path, errors.Mark(err, errors.ErrIndexUnavailable))
	}
	return rowsAffected(res), nil
}

// insertValue binds numbers as decimal text cast to the column type.
func insertValue(v query.Value) any {
	if v.IsNumber() {
		return sq.Expr("CAST(? AS "+coordType+")", v.Num.String())
	}
	return v.Str
}

func rowsAffected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}
