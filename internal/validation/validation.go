// Package validation provides centralized input validation for seisfetch.
//
// Object keys come from a remote index and are joined onto a local
// directory, so they are checked before any path is built from them.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/xtxerr/seisfetch/internal/errors"
)

// =============================================================================
// Name Validation
// =============================================================================

// NameRules defines the validation rules for resource names.
type NameRules struct {
	MinLength    int
	MaxLength    int
	AllowDots    bool
	AllowHyphens bool
	AllowUnders  bool
	LowerOnly    bool
}

// TableNameRules returns the DynamoDB table naming rules.
func TableNameRules() NameRules {
	return NameRules{
		MinLength:    3,
		MaxLength:    255,
		AllowDots:    true,
		AllowHyphens: true,
		AllowUnders:  true,
	}
}

// BucketNameRules returns the S3 bucket naming rules.
func BucketNameRules() NameRules {
	return NameRules{
		MinLength:    3,
		MaxLength:    63,
		AllowDots:    true,
		AllowHyphens: true,
		LowerOnly:    true,
	}
}

// ValidateName validates a name according to the given rules.
func ValidateName(name string, rules NameRules) error {
	if len(name) < rules.MinLength {
		return fmt.Errorf("name too short: minimum %d characters required", rules.MinLength)
	}
	if len(name) > rules.MaxLength {
		return fmt.Errorf("name too long: maximum %d characters allowed", rules.MaxLength)
	}

	for i, r := range name {
		if r < 32 || r == 127 {
			return fmt.Errorf("name cannot contain control characters at position %d", i)
		}
		if r > unicode.MaxASCII {
			return fmt.Errorf("non-ASCII character at position %d", i)
		}
		if !isAllowedNameChar(r, rules) {
			return fmt.Errorf("invalid character '%c' at position %d", r, i)
		}
	}

	return nil
}

func isAllowedNameChar(r rune, rules NameRules) bool {
	if unicode.IsDigit(r) {
		return true
	}
	if unicode.IsLetter(r) {
		return !rules.LowerOnly || unicode.IsLower(r)
	}
	switch r {
	case '.':
		return rules.AllowDots
	case '-':
		return rules.AllowHyphens
	case '_':
		return rules.AllowUnders
	}
	return false
}

// ValidateTableName validates a DynamoDB table name.
func ValidateTableName(name string) error {
	return ValidateName(name, TableNameRules())
}

// ValidateBucketName validates an S3 bucket name.
func ValidateBucketName(name string) error {
	if err := ValidateName(name, BucketNameRules()); err != nil {
		return err
	}
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") || strings.Contains(name, "..") {
		return fmt.Errorf("bucket name has misplaced dots")
	}
	return nil
}

// =============================================================================
// Object Key Validation
// =============================================================================

// MaxKeyLength is the longest key S3 accepts.
const MaxKeyLength = 1024

// ValidateObjectKey checks that key is a relative slash-separated path
// that stays below the directory it is joined onto. Failures wrap
// errors.ErrInvalidKey.
func ValidateObjectKey(key string) error {
	if key == "" {
		return errors.NewInvalidKey(key, "empty")
	}
	if len(key) > MaxKeyLength {
		return errors.NewInvalidKey(key, fmt.Sprintf("longer than %d bytes", MaxKeyLength))
	}
	if strings.HasPrefix(key, "/") || strings.HasPrefix(key, "\\") || hasDriveLetter(key) {
		return errors.NewInvalidKey(key, "absolute path")
	}
	if strings.Contains(key, "\\") {
		return errors.NewInvalidKey(key, "contains backslash")
	}

	for i, c := range key {
		if c < 32 || c == 127 {
			return errors.NewInvalidKey(key, fmt.Sprintf("control character at position %d", i))
		}
	}

	for _, seg := range strings.Split(key, "/") {
		switch seg {
		case "..":
			return errors.NewInvalidKey(key, "escapes the output directory")
		case "":
			return errors.NewInvalidKey(key, "empty path segment")
		}
	}

	return nil
}

func hasDriveLetter(key string) bool {
	return len(key) >= 2 && key[1] == ':' && unicode.IsLetter(rune(key[0]))
}

// =============================================================================
// SQL LIKE Patterns
// =============================================================================

var sqlLikeMetaChars = regexp.MustCompile(`[%_\\]`)

// EscapeLikePattern escapes special characters in a LIKE pattern.
// The escape character is a backslash; queries must use ESCAPE '\'.
func EscapeLikePattern(pattern string) string {
	return sqlLikeMetaChars.ReplaceAllStringFunc(pattern, func(s string) string {
		return "\\" + s
	})
}

// SafeLikePrefix creates a safe LIKE prefix pattern.
func SafeLikePrefix(prefix string) string {
	return EscapeLikePattern(prefix) + "%"
}
