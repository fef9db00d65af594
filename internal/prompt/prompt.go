// Package prompt turns a staged diff into the text sent to a provider and
// decodes provider responses back into candidate commit messages.
package prompt

import (
	"sort"
	"strconv"
	"strings"

	"github.com/hoanghonghuy/commitlab/internal/config"
	"github.com/hoanghonghuy/commitlab/internal/conventional"
)

// Prompt is the system and user text for one request.
type Prompt struct {
	System string
	User   string
}

type Options struct {
	MaxHeaderLength int
	Intent          string

	// MinWords and MaxWords bound the words in description and body when
	// positive.
	MinWords int
	MaxWords int

	// Feedback describes why the previous candidate was rejected.
	Feedback string

	// MaxDiffLines clips long diffs to their head and tail. Zero keeps
	// the whole diff.
	MaxDiffLines int
}

// Strategy builds prompts and decodes responses. Implementations are pure.
type Strategy interface {
	Name() string
	Build(diff, status string, opts Options) Prompt
	// JSON reports whether the provider should be asked for a JSON object.
	JSON() bool
	Decode(raw string) (string, error)
}

var strategies = map[string]Strategy{
	"zero_shot":  zeroShot{},
	"few_shot":   fewShot{},
	"structured": structured{},
}

// Names returns the known strategy names, sorted.
func Names() []string {
	names := make([]string, 0, len(strategies))
	for n := range strategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves a strategy by name. "zero-shot" and "zero_shot" are the
// same strategy.
func Lookup(name string) (Strategy, error) {
	s, ok := strategies[config.NormalizeName(name)]
	if !ok {
		return nil, config.InvalidEnum("strategy", name, Names())
	}
	return s, nil
}

func rules(opts Options) string {
	maxHeader := opts.MaxHeaderLength
	if maxHeader <= 0 {
		maxHeader = conventional.DefaultMaxHeaderLength
	}

	var b strings.Builder
	b.WriteString("You are an AI programming assistant, helping a software developer to write the best git commit message for their staged changes.\n")
	b.WriteString("The message MUST follow the Conventional Commits format:\n\n")
	b.WriteString("type(scope)!: description\n\n")
	b.WriteString("optional body\n\n")
	b.WriteString("# RULES:\n")
	b.WriteString("- type is one of: " + strings.Join(conventional.Types, ", ") + "\n")
	b.WriteString("- (scope) is optional and names the area of the code that changed\n")
	b.WriteString("- add ! before the colon only for breaking changes\n")
	b.WriteString("- write exactly one space after the colon\n")
	b.WriteString("- the header line is at most " + strconv.Itoa(maxHeader) + " characters\n")
	b.WriteString("- separate the body from the header with one blank line\n")
	switch {
	case opts.MinWords > 0 && opts.MaxWords > 0:
		b.WriteString("- description and body together use " + strconv.Itoa(opts.MinWords) + " to " + strconv.Itoa(opts.MaxWords) + " words\n")
	case opts.MinWords > 0:
		b.WriteString("- description and body together use at least " + strconv.Itoa(opts.MinWords) + " words\n")
	case opts.MaxWords > 0:
		b.WriteString("- description and body together use at most " + strconv.Itoa(opts.MaxWords) + " words\n")
	}
	b.WriteString("- do not add issue references, tags, or author names\n")
	return b.String()
}

func userText(diff, status string, opts Options, reminder string) string {
	var b strings.Builder

	if s := strings.TrimSpace(status); s != "" {
		b.WriteString("<status>\n")
		b.WriteString("# GIT STATUS:\n")
		b.WriteString(s + "\n")
		b.WriteString("</status>\n")
	}

	b.WriteString("<changes>\n")
	b.WriteString("# CODE CHANGES:\n")
	b.WriteString("```diff\n")
	b.WriteString(strings.TrimRight(ClipLines(diff, opts.MaxDiffLines), "\n"))
	b.WriteString("\n```\n")
	b.WriteString("</changes>\n")

	if s := strings.TrimSpace(opts.Intent); s != "" {
		b.WriteString("<intent>\n")
		b.WriteString(s + "\n")
		b.WriteString("</intent>\n")
	}

	b.WriteString(reminder)

	if s := strings.TrimSpace(opts.Feedback); s != "" {
		b.WriteString("\nFeedback:\n")
		b.WriteString(s + "\n")
	}
	return b.String()
}
