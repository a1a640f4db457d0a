package validation

import (
	"strings"
	"testing"

	"github.com/xtxerr/seisfetch/internal/errors"
)

func TestValidateTableName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"stations", "SCEDC-stations", false},
		{"files", "SCEDC-files", false},
		{"dots and underscores", "my_table.v2", false},
		{"too short", "ab", true},
		{"slash", "a/bcd", true},
		{"space", "my table", true},
		{"control char", "abc\x00d", true},
		{"too long", strings.Repeat("a", 256), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTableName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTableName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateBucketName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"scedc", "scedc-pds", false},
		{"dotted", "my.bucket.name", false},
		{"upper", "SCEDC-pds", true},
		{"underscore", "my_bucket", true},
		{"leading dot", ".bucket", true},
		{"double dot", "my..bucket", true},
		{"too long", strings.Repeat("a", 64), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBucketName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBucketName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateObjectKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"waveform", "continuous_waveforms/2016/2016_186/CIRFO__HHZ___2016186.ms", false},
		{"single segment", "file.mseed", false},
		{"dot segment", "./a/b", false},
		{"dots in name", "a/b..c", false},
		{"empty", "", true},
		{"absolute", "/etc/passwd", true},
		{"parent", "../outside", true},
		{"inner parent", "a/../../b", true},
		{"trailing parent", "a/..", true},
		{"backslash", "a\\b", true},
		{"drive", "C:/x", true},
		{"double slash", "a//b", true},
		{"trailing slash", "a/b/", true},
		{"control char", "a/\nb", true},
		{"too long", strings.Repeat("a", MaxKeyLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateObjectKey(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateObjectKey(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrInvalidKey) {
				t.Errorf("ValidateObjectKey(%q) error does not wrap ErrInvalidKey: %v", tt.input, err)
			}
		})
	}
}

func TestEscapeLikePattern(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no special", "HH", "HH"},
		{"percent", "100%", "100\\%"},
		{"underscore", "CI_RFO", "CI\\_RFO"},
		{"both", "100%_complete", "100\\%\\_complete"},
		{"backslash", "path\\file", "path\\\\file"},
		{"brackets untouched", "[test]", "[test]"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EscapeLikePattern(tt.input)
			if got != tt.want {
				t.Errorf("EscapeLikePattern(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSafeLikePrefix(t *testing.T) {
	got := SafeLikePrefix("H_")
	want := "H\\_%"
	if got != want {
		t.Errorf("SafeLikePrefix(%q) = %q, want %q", "H_", got, want)
	}
}

func BenchmarkValidateObjectKey(b *testing.B) {
	key := "continuous_waveforms/2016/2016_186/CIRFO__HHZ___2016186.ms"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ValidateObjectKey(key)
	}
}
