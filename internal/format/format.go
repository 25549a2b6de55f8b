// Package format converts the small markdown subset used by chat replies into markup.
package format

import "regexp"

var (
	fencedCode = regexp.MustCompile("(?s)```(.*?)```")
	inlineCode = regexp.MustCompile("`([^`]+)`")
	bold       = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italic     = regexp.MustCompile(`\*(.*?)\*`)
	newline    = regexp.MustCompile(`\n`)
)

// Markup applies fenced code, inline code, bold, italic and line break substitutions,
// in that order. Each pass runs once over the output of the previous one and nothing is
// escaped, so malformed delimiters may render oddly.
func Markup(content string) string {
	content = fencedCode.ReplaceAllString(content, "<pre><code>${1}</code></pre>")
	content = inlineCode.ReplaceAllString(content, "<code>${1}</code>")
	content = bold.ReplaceAllString(content, "<strong>${1}</strong>")
	content = italic.ReplaceAllString(content, "<em>${1}</em>")
	content = newline.ReplaceAllString(content, "<br>")
	return content
}
