package parquet

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/xtxerr/seisfetch/config"
	"github.com/xtxerr/seisfetch/internal/index"
)

// Options configures the Parquet writer.
type Options struct {
	// Compression algorithm
	Compression CompressionType
}

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// DefaultOptions returns default Parquet options.
func DefaultOptions() Options {
	return Options{
		Compression: CompressionZstd,
	}
}

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) (CompressionType, error) {
	switch s {
	case "snappy":
		return CompressionSnappy, nil
	case "zstd", "":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	case "gzip":
		return CompressionGzip, nil
	case "none":
		return CompressionNone, nil
	default:
		return CompressionZstd, fmt.Errorf("unknown compression %q", s)
	}
}

// getCompression returns the parquet-go compression codec.
func getCompression(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// Writer streams rows of type R to a Parquet file.
type Writer[R any] struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	writer   *parquet.GenericWriter[R]
	rowCount int64
	closed   bool
}

// NewWriter creates the file at path, including missing parent directories.
func NewWriter[R any](path string, opts Options) (*Writer[R], error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, config.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	writer := parquet.NewGenericWriter[R](f, parquet.Compression(getCompression(opts.Compression)))

	return &Writer[R]{
		path:   path,
		file:   f,
		writer: writer,
	}, nil
}

// Write appends rows.
func (w *Writer[R]) Write(rows []R) error {
	if len(rows) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}

	n, err := w.writer.Write(rows)
	if err != nil {
		return fmt.Errorf("write rows: %w", err)
	}

	w.rowCount += int64(n)
	return nil
}

// Close flushes the footer and closes the file.
func (w *Writer[R]) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close writer: %w", err)
	}

	return w.file.Close()
}

// RowCount returns the number of rows written.
func (w *Writer[R]) RowCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rowCount
}

// Path returns the file path.
func (w *Writer[R]) Path() string {
	return w.path
}

// WriteStations writes stations to path in one pass.
func WriteStations(path string, stations []index.Station, opts Options) error {
	rows := make([]StationRow, len(stations))
	for i := range stations {
		rows[i] = StationToRow(&stations[i])
	}
	return writeAll(path, rows, opts)
}

// WriteFiles writes files to path in one pass.
func WriteFiles(path string, files []index.File, opts Options) error {
	rows := make([]FileRow, len(files))
	for i := range files {
		rows[i] = FileToRow(&files[i])
	}
	return writeAll(path, rows, opts)
}

func writeAll[R any](path string, rows []R, opts Options) error {
	w, err := NewWriter[R](path, opts)
	if err != nil {
		return err
	}
	if err := w.Write(rows); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// ErrWriterClosed is returned when writing to a closed writer.
var ErrWriterClosed = fmt.Errorf("parquet writer is closed")
