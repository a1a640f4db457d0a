package download

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xtxerr/seisfetch/internal/errors"
)

func TestDeriveJoinsKeyBelowOutDir(t *testing.T) {
	jobs, rejected := Derive("/data", []string{"net/STA/2016/file.mseed"})
	if len(rejected) != 0 {
		t.Fatalf("unexpected rejections: %v", rejected)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}

	want := filepath.Join("/data", "net", "STA", "2016", "file.mseed")
	if jobs[0].Dest != want {
		t.Errorf("Dest = %s, want %s", jobs[0].Dest, want)
	}
	if jobs[0].Index != 1 {
		t.Errorf("Index = %d, want 1", jobs[0].Index)
	}
}

func TestDeriveRejectsEscapingKeys(t *testing.T) {
	keys := []string{
		"ok/a.ms",
		"../etc/passwd",
		"/abs/path.ms",
		"a//b.ms",
		"",
	}

	jobs, rejected := Derive("/data", keys)
	if len(jobs) != 1 || jobs[0].Key != "ok/a.ms" {
		t.Fatalf("jobs = %+v, want only ok/a.ms", jobs)
	}
	if len(rejected) != 4 {
		t.Fatalf("expected 4 rejections, got %d", len(rejected))
	}
	for _, f := range rejected {
		if f.Kind != KindInvalidKey {
			t.Errorf("%q: Kind = %s, want invalid_key", f.Job.Key, f.Kind)
		}
		if !errors.Is(f.Err, errors.ErrInvalidKey) {
			t.Errorf("%q: error %v does not wrap ErrInvalidKey", f.Job.Key, f.Err)
		}
	}
	if rejected[0].Job.Index != 2 {
		t.Errorf("first rejection Index = %d, want 2", rejected[0].Job.Index)
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/waveforms", filepath.Join(home, "waveforms")},
		{"/data", "/data"},
		{"rel/dir", "rel/dir"},
		{"~other/dir", "~other/dir"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ExpandHome(tt.in)
			if err != nil {
				t.Fatalf("ExpandHome(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ExpandHome(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestExpandHomeUnset(t *testing.T) {
	t.Setenv("HOME", "")

	_, err := ExpandHome("~/data")
	if !errors.Is(err, errors.ErrHomeDirUnset) {
		t.Errorf("error = %v, want ErrHomeDirUnset", err)
	}
}

func TestPrepareDirsIsIdempotent(t *testing.T) {
	root := t.TempDir()
	jobs, _ := Derive(root, []string{
		"CI/RFO/2016/a.ms",
		"CI/RFO/2016/b.ms",
		"CI/PASC/2016/c.ms",
	})

	for i := 0; i < 2; i++ {
		if failed := PrepareDirs(jobs, 0o755); len(failed) != 0 {
			t.Fatalf("pass %d: unexpected failures: %v", i, failed)
		}
	}

	for _, sub := range []string{"CI/RFO/2016", "CI/PASC/2016"} {
		info, err := os.Stat(filepath.Join(root, filepath.FromSlash(sub)))
		if err != nil {
			t.Fatalf("stat %s: %v", sub, err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", sub)
		}
	}
}

func TestPrepareDirsReportsOnlyFailingDir(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "blocked"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	jobs, _ := Derive(root, []string{"blocked/x.ms", "open/y.ms"})
	failed := PrepareDirs(jobs, 0o755)

	if len(failed) != 1 {
		t.Fatalf("expected 1 failed dir, got %v", failed)
	}
	err, ok := failed[filepath.Join(root, "blocked")]
	if !ok {
		t.Fatalf("blocked dir not reported: %v", failed)
	}
	if !errors.Is(err, errors.ErrCreateDir) {
		t.Errorf("error = %v, want ErrCreateDir", err)
	}
	if _, err := os.Stat(filepath.Join(root, "open")); err != nil {
		t.Errorf("open dir not created: %v", err)
	}
}
