package indexer

import (
	"regexp"
	"strings"
)

var (
	horizontalSpaceRe = regexp.MustCompile(`[ \t]+`)
	blankLinesRe      = regexp.MustCompile(`\n{3,}`)
)

// Preprocess normalizes extracted text before chunking: NUL bytes become spaces,
// runs of spaces and tabs collapse to one space, more than two consecutive
// newlines collapse to two, and the result is trimmed.
func Preprocess(text string) string {
	text = strings.ReplaceAll(text, "\x00", " ")
	text = horizontalSpaceRe.ReplaceAllString(text, " ")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
