package files

import (
	"regexp"
	"unicode/utf8"
)

const (
	snippetBefore = 50
	snippetWidth  = 100
	snippetMarker = "..."
)

// literalMatcher finds a term as a case-insensitive literal substring.
type literalMatcher struct {
	re *regexp.Regexp
}

func newLiteralMatcher(term string) literalMatcher {
	return literalMatcher{re: regexp.MustCompile("(?i)" + regexp.QuoteMeta(term))}
}

// index returns the byte offset of the first match in line, or -1.
func (m literalMatcher) index(line string) int {
	loc := m.re.FindStringIndex(line)
	if loc == nil {
		return -1
	}
	return loc[0]
}

// buildSnippet cuts up to snippetWidth characters of line starting
// snippetBefore characters ahead of the match at byte offset matchAt. An
// ellipsis marks each end where the line was cut.
func buildSnippet(line string, matchAt int) string {
	runes := []rune(line)
	idx := utf8.RuneCountInString(line[:matchAt])

	start := max(0, idx-snippetBefore)
	length := min(len(runes)-start, snippetWidth)

	snippet := string(runes[start : start+length])
	if start > 0 {
		snippet = snippetMarker + snippet
	}
	if start+length < len(runes) {
		snippet += snippetMarker
	}
	return snippet
}
