package download

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xtxerr/seisfetch/internal/errors"
	"github.com/xtxerr/seisfetch/internal/validation"
)

// Job pairs a remote key with its local destination.
type Job struct {
	// Index is the 1-based position of the key in the input list.
	Index int
	Key   string
	Dest  string
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", path, errors.Mark(err, errors.ErrHomeDirUnset))
	}
	if home == "" {
		return "", fmt.Errorf("expand %s: %w", path, errors.ErrHomeDirUnset)
	}

	return filepath.Join(home, path[1:]), nil
}

// Derive joins outDir with each key. Keys that are absolute or would
// escape outDir are returned as failures instead of jobs.
func Derive(outDir string, keys []string) ([]Job, []Failure) {
	jobs := make([]Job, 0, len(keys))
	var rejected []Failure

	for i, key := range keys {
		job := Job{Index: i + 1, Key: key}

		if err := validation.ValidateObjectKey(key); err != nil {
			rejected = append(rejected, Failure{Job: job, Kind: KindInvalidKey, Err: err})
			continue
		}

		job.Dest = filepath.Join(outDir, filepath.FromSlash(key))
		jobs = append(jobs, job)
	}

	return jobs, rejected
}

// PrepareDirs creates the distinct parent directories of jobs, including
// missing ancestors. Existing directories are not an error. The result
// maps each directory that could not be created to its error.
func PrepareDirs(jobs []Job, perm os.FileMode) map[string]error {
	dirs := make(map[string]struct{})
	for _, j := range jobs {
		dirs[filepath.Dir(j.Dest)] = struct{}{}
	}

	sorted := make([]string, 0, len(dirs))
	for d := range dirs {
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)

	failed := make(map[string]error)
	for _, d := range sorted {
		if err := os.MkdirAll(d, perm); err != nil {
			failed[d] = fmt.Errorf("create %s: %w", d, errors.Mark(err, errors.ErrCreateDir))
		}
	}

	return failed
}
