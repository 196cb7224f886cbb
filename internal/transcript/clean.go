package transcript

import (
	"regexp"
	"strings"
)

var (
	artifactRe   = regexp.MustCompile(`(?i)\[.?music.?\]|\[.?applause.?\]|\[.?laughter.?\]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// CleanText strips YouTube caption artifacts and collapses runs of
// whitespace.
func CleanText(text string) string {
	text = artifactRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Clean applies CleanText to every segment in place.
func Clean(segments []Segment) {
	for i := range segments {
		segments[i].Text = CleanText(segments[i].Text)
	}
}
