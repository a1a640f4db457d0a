// Package blob defines the object store the downloader fetches from.
//
// Implementations:
//   - blob/s3:  S3 GetObject (anonymous access to public buckets by default)
//   - blob/dir: a local mirror directory
package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xtxerr/seisfetch/internal/errors"
)

// Store fetches objects by key into local files.
type Store interface {
	// Fetch copies the object at key to dest and returns the bytes written.
	// dest's parent directory must exist. dest only appears once the
	// object has been copied completely.
	//
	// Errors wrap errors.ErrObjectNotFound, errors.ErrWriteFile or
	// errors.ErrFetch so callers can decide whether to retry.
	Fetch(ctx context.Context, key, dest string) (int64, error)

	// Name returns the backend name.
	Name() string
}

// WriteFile streams src into dest through a temporary file in the same
// directory and renames it into place. Failures reading src are marked
// errors.ErrFetch; failures on the local side errors.ErrWriteFile.
func WriteFile(dest string, src io.Reader, perm os.FileMode) (int64, error) {
	dir := filepath.Dir(dest)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("create temp file in %s: %w", dir, errors.Mark(err, errors.ErrWriteFile))
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	n, err := io.Copy(fileWriter{tmp}, src)
	if err != nil {
		if errors.Is(err, errors.ErrWriteFile) {
			return n, fmt.Errorf("write %s: %w", dest, err)
		}
		return n, fmt.Errorf("read object body: %w", errors.Mark(err, errors.ErrFetch))
	}

	if err := tmp.Chmod(perm); err != nil {
		return n, fmt.Errorf("chmod %s: %w", tmpName, errors.Mark(err, errors.ErrWriteFile))
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("close %s: %w", tmpName, errors.Mark(err, errors.ErrWriteFile))
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		committed = true
		return n, fmt.Errorf("rename to %s: %w", dest, errors.Mark(err, errors.ErrWriteFile))
	}
	committed = true

	return n, nil
}

// fileWriter marks write errors so io.Copy's result can be attributed.
type fileWriter struct {
	f *os.File
}

func (w fileWriter) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	if err != nil {
		return n, errors.Mark(err, errors.ErrWriteFile)
	}
	return n, nil
}
