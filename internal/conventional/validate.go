// Package conventional validates commit messages against the Conventional
// Commits grammar:
//
//	type(scope)!: description
//
//	optional body
//
//	optional footers
//
// Checks run in a fixed order and stop at the first violation: empty
// message, type, scope, colon, description, header length, body layout,
// word count.
// The type token is checked before the colon, so "added foo" is reported
// as invalid-type while "feat add foo" is reported as missing-colon.
package conventional

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Types is the accepted set of commit types.
var Types = []string{"feat", "fix", "docs", "style", "refactor", "perf", "test", "build", "ci", "chore", "revert"}

// Rule identifies the first grammar rule a candidate violated.
type Rule string

const (
	RuleEmptyMessage         Rule = "empty-message"
	RuleInvalidType          Rule = "invalid-type"
	RuleInvalidScope         Rule = "invalid-scope"
	RuleMissingColon         Rule = "missing-colon"
	RuleEmptyDescription     Rule = "empty-description"
	RuleMalformedDescription Rule = "malformed-description"
	RuleHeaderTooLong        Rule = "header-too-long"
	RuleMalformedBody        Rule = "malformed-body"
	RuleTooFewWords          Rule = "word-count-below-min"
	RuleTooManyWords         Rule = "word-count-above-max"
)

const DefaultMaxHeaderLength = 72

// Verdict is the outcome of validating one candidate.
type Verdict struct {
	Accepted bool
	Rule     Rule   // set when rejected
	Detail   string // human readable, set when rejected

	// Set when accepted.
	Message     string
	Type        string
	Scope       string
	Breaking    bool
	Description string
	Body        string
}

// WordCount counts words in the description and body.
func (v Verdict) WordCount() int {
	return len(strings.Fields(v.Description)) + len(strings.Fields(v.Body))
}

// Validator is stateless; the zero value uses DefaultMaxHeaderLength and
// places no bound on the word count.
type Validator struct {
	MaxHeaderLength int

	// MinWords and MaxWords bound WordCount when positive.
	MinWords int
	MaxWords int
}

func New(maxHeaderLength int) Validator {
	return Validator{MaxHeaderLength: maxHeaderLength}
}

// WithWordBounds returns v with the given word count bounds. Zero disables
// a bound.
func (v Validator) WithWordBounds(minWords, maxWords int) Validator {
	v.MinWords = minWords
	v.MaxWords = maxWords
	return v
}

func reject(rule Rule, format string, args ...any) Verdict {
	return Verdict{Rule: rule, Detail: fmt.Sprintf(format, args...)}
}

// Validate checks candidate and returns a verdict. It never panics and the
// same candidate always yields the same verdict.
func (v Validator) Validate(candidate string) Verdict {
	msg := Normalize(candidate)
	if msg == "" {
		return reject(RuleEmptyMessage, "message is empty")
	}

	lines := strings.Split(msg, "\n")
	header := lines[0]

	h, verdict, ok := parseHeader(header)
	if !ok {
		return verdict
	}

	limit := v.MaxHeaderLength
	if limit <= 0 {
		limit = DefaultMaxHeaderLength
	}
	if n := utf8.RuneCountInString(header); n > limit {
		return reject(RuleHeaderTooLong, "header is %d characters, limit is %d", n, limit)
	}

	var body string
	var bodyLines []string
	if len(lines) > 1 {
		if lines[1] != "" {
			return reject(RuleMalformedBody, "body must be separated from the header by a blank line")
		}
		if len(lines) < 3 || lines[2] == "" {
			return reject(RuleMalformedBody, "body must be separated from the header by exactly one blank line")
		}
		bodyLines = lines[2:]
		body = strings.Join(bodyLines, "\n")
	}

	verdict = Verdict{
		Accepted:    true,
		Message:     msg,
		Type:        h.typ,
		Scope:       h.scope,
		Breaking:    h.bang || hasBreakingFooter(bodyLines),
		Description: h.description,
		Body:        body,
	}
	n := verdict.WordCount()
	if v.MinWords > 0 && n < v.MinWords {
		return reject(RuleTooFewWords, "message has %d words, minimum is %d", n, v.MinWords)
	}
	if v.MaxWords > 0 && n > v.MaxWords {
		return reject(RuleTooManyWords, "message has %d words, maximum is %d", n, v.MaxWords)
	}
	return verdict
}

type header struct {
	typ         string
	scope       string
	bang        bool
	description string
}

func parseHeader(line string) (header, Verdict, bool) {
	var h header

	i := 0
	for i < len(line) && isLetter(line[i]) {
		i++
	}
	h.typ = line[:i]
	if h.typ == "" {
		return h, reject(RuleInvalidType, "missing type prefix"), false
	}
	if !isType(h.typ) {
		return h, reject(RuleInvalidType, "unknown type %q", h.typ), false
	}
	rest := line[i:]

	if strings.HasPrefix(rest, "(") {
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return h, reject(RuleInvalidScope, "scope is not closed"), false
		}
		h.scope = rest[1:end]
		if h.scope == "" || strings.TrimSpace(h.scope) != h.scope || strings.Contains(h.scope, "(") {
			return h, reject(RuleInvalidScope, "invalid scope %q", h.scope), false
		}
		rest = rest[end+1:]
	}

	if strings.HasPrefix(rest, "!") {
		h.bang = true
		rest = rest[1:]
	}

	if !strings.HasPrefix(rest, ":") {
		return h, reject(RuleMissingColon, "expected ':' after %q", line[:len(line)-len(rest)]), false
	}
	rest = rest[1:]

	if strings.TrimSpace(rest) == "" {
		return h, reject(RuleEmptyDescription, "description is empty"), false
	}
	if !strings.HasPrefix(rest, " ") {
		return h, reject(RuleMalformedDescription, "expected a single space after ':'"), false
	}
	h.description = rest[1:]
	if !utf8.ValidString(h.description) {
		return h, reject(RuleMalformedDescription, "description is not valid UTF-8"), false
	}
	if r, _ := utf8.DecodeRuneInString(h.description); unicode.IsSpace(r) {
		return h, reject(RuleMalformedDescription, "description starts with whitespace"), false
	}
	return h, Verdict{}, true
}

// Normalize converts line endings to LF, trims trailing whitespace on every
// line and drops surrounding blank lines. It is idempotent.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimRightFunc(ln, unicode.IsSpace)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func hasBreakingFooter(lines []string) bool {
	for _, ln := range lines {
		if strings.HasPrefix(ln, "BREAKING CHANGE:") || strings.HasPrefix(ln, "BREAKING-CHANGE:") {
			return true
		}
	}
	return false
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isType(s string) bool {
	for _, t := range Types {
		if s == t {
			return true
		}
	}
	return false
}
