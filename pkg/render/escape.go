package render

import "strings"

var (
	htmlReplacer = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)
	attrReplacer = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
		"\n", "&#10;",
		"\r", "&#13;",
		"\t", "&#9;",
	)
)

// EscapeHTML escapes text for inclusion in HTML content.
func EscapeHTML(s string) string {
	return htmlReplacer.Replace(s)
}

// EscapeAttr escapes text for inclusion in a double-quoted attribute value.
// Newlines and tabs are escaped too so values survive a round trip.
func EscapeAttr(s string) string {
	return attrReplacer.Replace(s)
}
