package parquet

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/xtxerr/seisfetch/internal/index"
)

// readBatch is the number of rows decoded per Read call.
const readBatch = 4096

// readBufferSize is the buffer used when reading column pages.
const readBufferSize = 1024 * 1024

// ReadAll reads every row of the file at path.
func ReadAll[R any](path string) ([]R, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	pf, err := parquet.OpenFile(f, info.Size(), parquet.ReadBufferSize(readBufferSize))
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}

	reader := parquet.NewGenericReader[R](pf)
	defer reader.Close()

	rows := make([]R, 0, reader.NumRows())
	for {
		buf := make([]R, readBatch)
		n, err := reader.Read(buf)
		rows = append(rows, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if n == 0 {
			break
		}
	}

	return rows, nil
}

// ReadStations reads a station snapshot.
func ReadStations(path string) ([]index.Station, error) {
	rows, err := ReadAll[StationRow](path)
	if err != nil {
		return nil, err
	}
	out := make([]index.Station, len(rows))
	for i := range rows {
		out[i] = RowToStation(&rows[i])
	}
	return out, nil
}

// ReadFiles reads a file snapshot.
func ReadFiles(path string) ([]index.File, error) {
	rows, err := ReadAll[FileRow](path)
	if err != nil {
		return nil, err
	}
	out := make([]index.File, len(rows))
	for i := range rows {
		out[i] = RowToFile(&rows[i])
	}
	return out, nil
}
