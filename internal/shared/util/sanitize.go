package util

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode"
)

// MaxFileNameRunes bounds names echoed in logs and responses.
const MaxFileNameRunes = 120

var errInvalidFileName = errors.New("invalid file name")

// SanitizeFileName makes an uploaded file name safe to log: separators
// become underscores, control characters are dropped and long names are
// shortened while keeping the extension. Traversal patterns are rejected.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errInvalidFileName
	}
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == '/' || r == '\\':
			b.WriteByte('_')
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	s := strings.TrimSpace(b.String())
	if s == "" {
		return "", errInvalidFileName
	}
	return shortenName(s, MaxFileNameRunes), nil
}

func shortenName(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	ext := []rune(filepath.Ext(s))
	if len(ext) == 0 || len(ext) >= limit/2 {
		return string(runes[:limit])
	}
	return string(runes[:limit-len(ext)]) + string(ext)
}
