package util

import (
	"strings"
	"unicode"
)

// ExportFileName builds a download file name from a display name, falling back to id.
// Path separators, control characters and traversal sequences never survive.
func ExportFileName(name, id, ext string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == '/' || r == '\\' || r == '"' || unicode.IsControl(r):
			b.WriteRune('_')
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	base := strings.ReplaceAll(b.String(), "..", "_")
	base = strings.Trim(base, ".-_")
	if base == "" {
		base = "resume-" + id
	}
	return base + ext
}
