// Package view projects form state and stored records into escaped display models.
package view

import "strings"

var (
	htmlEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)
	htmlUnescaper = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
	attrEscaper = strings.NewReplacer(`"`, "&quot;")
)

// EscapeHTML escapes text for element content.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// UnescapeHTML reverses EscapeHTML.
func UnescapeHTML(s string) string {
	return htmlUnescaper.Replace(s)
}

// EscapeAttr neutralizes double quotes so s can sit inside a quoted attribute.
func EscapeAttr(s string) string {
	return attrEscaper.Replace(s)
}
