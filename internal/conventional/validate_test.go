package conventional

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var headerPattern = regexp.MustCompile(`^(feat|fix|docs|style|refactor|perf|test|build|ci|chore|revert)(\([^()\s][^()]*[^()\s]\)|\([^()\s]\))?!?: \S.*$`)

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		rule      Rule
	}{
		{"empty", "", RuleEmptyMessage},
		{"whitespace only", "  \n\t\n ", RuleEmptyMessage},
		{"no type", ": add foo", RuleInvalidType},
		{"unknown verb", "added foo", RuleInvalidType},
		{"unknown type", "feature: add foo", RuleInvalidType},
		{"uppercase type", "Feat: add foo", RuleInvalidType},
		{"unclosed scope", "feat(api: add foo", RuleInvalidScope},
		{"empty scope", "feat(): add foo", RuleInvalidScope},
		{"padded scope", "feat( api ): add foo", RuleInvalidScope},
		{"nested scope", "feat(a(b)): add foo", RuleInvalidScope},
		{"missing colon", "feat add foo", RuleMissingColon},
		{"missing colon after scope", "fix(parser) handle eof", RuleMissingColon},
		{"empty description", "fix:", RuleEmptyDescription},
		{"blank description", "fix:    ", RuleEmptyDescription},
		{"no space", "fix:add foo", RuleMalformedDescription},
		{"two spaces", "fix:  add foo", RuleMalformedDescription},
		{"tab separator", "fix:\tadd foo", RuleMalformedDescription},
		{"invalid utf-8", "feat: \xff", RuleMalformedDescription},
		{"invalid utf-8 after text", "feat: add \xffoo", RuleMalformedDescription},
		{"header too long", "feat: " + strings.Repeat("a", 67), RuleHeaderTooLong},
		{"body without blank line", "fix: add foo\nmore detail", RuleMalformedBody},
		{"body after two blank lines", "fix: add foo\n\n\nmore detail", RuleMalformedBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(DefaultMaxHeaderLength).Validate(tt.candidate)
			assert.False(t, v.Accepted)
			assert.Equal(t, tt.rule, v.Rule)
			assert.NotEmpty(t, v.Detail)
			assert.Empty(t, v.Message)
		})
	}
}

func TestValidateAccepts(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		want      Verdict
	}{
		{
			name:      "plain",
			candidate: "fix: add foo helper",
			want:      Verdict{Accepted: true, Message: "fix: add foo helper", Type: "fix", Description: "add foo helper"},
		},
		{
			name:      "scope",
			candidate: "feat(api): expose health endpoint",
			want:      Verdict{Accepted: true, Message: "feat(api): expose health endpoint", Type: "feat", Scope: "api", Description: "expose health endpoint"},
		},
		{
			name:      "bang",
			candidate: "refactor(core)!: drop v1 handlers",
			want:      Verdict{Accepted: true, Message: "refactor(core)!: drop v1 handlers", Type: "refactor", Scope: "core", Breaking: true, Description: "drop v1 handlers"},
		},
		{
			name:      "colons in description",
			candidate: "docs: note: use key: value form",
			want:      Verdict{Accepted: true, Message: "docs: note: use key: value form", Type: "docs", Description: "note: use key: value form"},
		},
		{
			name:      "body and breaking footer",
			candidate: "feat: switch config format\n\nYAML replaces INI.\n\nBREAKING CHANGE: old files are ignored",
			want: Verdict{
				Accepted:    true,
				Message:     "feat: switch config format\n\nYAML replaces INI.\n\nBREAKING CHANGE: old files are ignored",
				Type:        "feat",
				Breaking:    true,
				Description: "switch config format",
				Body:        "YAML replaces INI.\n\nBREAKING CHANGE: old files are ignored",
			},
		},
		{
			name:      "hyphenated footer",
			candidate: "fix: reject empty ids\n\nBREAKING-CHANGE: callers must send an id",
			want: Verdict{
				Accepted:    true,
				Message:     "fix: reject empty ids\n\nBREAKING-CHANGE: callers must send an id",
				Type:        "fix",
				Breaking:    true,
				Description: "reject empty ids",
				Body:        "BREAKING-CHANGE: callers must send an id",
			},
		},
		{
			name:      "normalized",
			candidate: "\r\n  chore: bump deps   \r\n\r\n",
			want:      Verdict{Accepted: true, Message: "chore: bump deps", Type: "chore", Description: "bump deps"},
		},
		{
			name:      "header at the limit",
			candidate: "feat: " + strings.Repeat("a", 66),
			want:      Verdict{Accepted: true, Message: "feat: " + strings.Repeat("a", 66), Type: "feat", Description: strings.Repeat("a", 66)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validator{}.Validate(tt.candidate)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateHeaderLimitCountsRunes(t *testing.T) {
	msg := "fix: " + strings.Repeat("é", 15)
	assert.True(t, New(20).Validate(msg).Accepted)
	assert.Equal(t, RuleHeaderTooLong, New(19).Validate(msg).Rule)
}

func TestValidateIsIdempotent(t *testing.T) {
	candidates := []string{
		"fix: add foo helper",
		"  feat(ui)!: new theme  \r\n\r\nDark by default.\r\n",
		"docs: a: b: c",
		"added foo",
		"feat add foo",
		"",
	}
	v := New(DefaultMaxHeaderLength)
	for _, c := range candidates {
		first := v.Validate(c)
		assert.Equal(t, first, v.Validate(c), c)
		if first.Accepted {
			assert.Equal(t, first, v.Validate(first.Message), c)
		}
	}
}

func TestAcceptedHeadersMatchGrammar(t *testing.T) {
	candidates := []string{
		"fix: add foo helper",
		"feat(api)!: expose health endpoint",
		"perf(db): batch inserts\n\nCuts write time in half.",
		"ci(x): y",
		"revert: undo \"feat: add foo\"",
	}
	for _, c := range candidates {
		v := New(DefaultMaxHeaderLength).Validate(c)
		require.True(t, v.Accepted, c)
		header := strings.SplitN(v.Message, "\n", 2)[0]
		assert.Regexp(t, headerPattern, header)
		assert.LessOrEqual(t, len([]rune(header)), DefaultMaxHeaderLength)
	}
}

func TestValidateWordBounds(t *testing.T) {
	v := New(DefaultMaxHeaderLength).WithWordBounds(3, 6)
	tests := []struct {
		name      string
		candidate string
		rule      Rule
	}{
		{"below min", "fix: typo", RuleTooFewWords},
		{"at min", "fix: correct readme typo", ""},
		{"body counts", "fix: typo\n\nin the readme", ""},
		{"at max", "feat: add one two three four five", ""},
		{"above max", "feat: add one two three four\n\nfive six", RuleTooManyWords},
		{"header checked first", "feat: " + strings.Repeat("a", 80), RuleHeaderTooLong},
		{"body layout checked first", "fix: typo\nbody", RuleMalformedBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Validate(tt.candidate)
			assert.Equal(t, tt.rule == "", got.Accepted)
			assert.Equal(t, tt.rule, got.Rule)
		})
	}

	// zero disables a bound
	assert.True(t, New(0).WithWordBounds(0, 2).Validate("fix: typo").Accepted)
	assert.True(t, New(0).WithWordBounds(1, 0).Validate("fix: many words\n\n"+strings.Repeat("word ", 40)).Accepted)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a\n\nb", Normalize("\n\na  \r\n\r\nb\t\n\n"))
	once := Normalize(" x \r y \n")
	assert.Equal(t, once, Normalize(once))
}

func TestWordCount(t *testing.T) {
	v := New(0).Validate("feat: add two words\n\nand three more")
	require.True(t, v.Accepted)
	assert.Equal(t, 6, v.WordCount())
}
