package prompt

import (
	"regexp"
	"strconv"
	"strings"
)

var reTextBlock = regexp.MustCompile("(?ms)^```(?:\\w+)?\\s*([\\s\\S]+?)\\s*```$")

// ExtractOneTextCodeBlock returns the contents of the fenced block in s.
// When there is no block it returns the trimmed input and false.
func ExtractOneTextCodeBlock(s string) (string, bool) {
	s = strings.TrimSpace(s)
	m := reTextBlock.FindStringSubmatch(s)
	if len(m) == 2 {
		return strings.TrimSpace(m[1]), true
	}
	return s, false
}

var (
	reOpenFence  = regexp.MustCompile("^```(?:json)?")
	reCloseFence = regexp.MustCompile("```$")
)

// StripFences removes a leading ```json fence and a trailing ``` fence.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(reOpenFence.ReplaceAllString(s, ""))
	return strings.TrimSpace(reCloseFence.ReplaceAllString(s, ""))
}

// ClipLines keeps the head and tail of s when it has more than limit lines,
// replacing the middle with a marker. limit <= 0 disables clipping.
func ClipLines(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	n := len(lines)
	if n <= limit {
		return s
	}

	tail := limit / 5
	head := limit - tail

	var b strings.Builder
	for _, ln := range lines[:head] {
		b.WriteString(ln + "\n")
	}
	b.WriteString("... " + strconv.Itoa(n-head-tail) + " lines omitted ...\n")
	for _, ln := range lines[n-tail:] {
		b.WriteString(ln + "\n")
	}
	return b.String()
}
