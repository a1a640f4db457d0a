// Package dir implements blob.Store over a local mirror directory.
//
// Keys are resolved below the root exactly as they would be in a bucket,
// which makes a mirrored copy of the archive usable offline.
package dir

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xtxerr/seisfetch/config"
	"github.com/xtxerr/seisfetch/internal/blob"
	"github.com/xtxerr/seisfetch/internal/errors"
	"github.com/xtxerr/seisfetch/internal/validation"
)

// Store copies objects out of a root directory.
type Store struct {
	root string
}

// New creates a Store rooted at root. The root must be an existing
// directory.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.NewMissingField("store.root")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.NewInvalidValue("store.root", root, err.Error())
	}
	if !info.IsDir() {
		return nil, errors.NewInvalidValue("store.root", root, "not a directory")
	}
	return &Store{root: root}, nil
}

// Name returns the backend name.
func (*Store) Name() string {
	return "dir"
}

// Fetch implements blob.Store.
func (s *Store) Fetch(ctx context.Context, key, dest string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return 0, err
	}

	src := filepath.Join(s.root, filepath.FromSlash(key))
	f, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("open %s: %w", src, errors.Mark(err, errors.ErrObjectNotFound))
		}
		return 0, fmt.Errorf("open %s: %w", src, errors.Mark(err, errors.ErrFetch))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", src, errors.Mark(err, errors.ErrFetch))
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is not a regular file: %w", src, errors.ErrObjectNotFound)
	}

	return blob.WriteFile(dest, f, config.DefaultFilePerm)
}

// Verify interface compliance.
var _ blob.Store = (*Store)(nil)
