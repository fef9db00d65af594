package harness

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoanghonghuy/commitlab/internal/config"
)

const experimentYAML = `
name: baseline
defaults:
  retry_bound: 2
  timeout: 30s
concurrency: 2
log: out/runs.jsonl
corpus: corpus
matrix:
  providers:
    ollama: [llama3, qwen2.5-coder]
    groq: [llama-3.1-8b-instant]
  strategies: [zero-shot, structured]
configurations:
  - provider: ollama
    model: llama3
    strategy: structured
    retry_bound: 0
  - provider: openai
    model: gpt-4o-mini
rate_limits:
  groq: 30
`

var (
	knownProviders  = []string{"anthropic", "gemini", "groq", "ollama", "openai"}
	knownStrategies = []string{"few_shot", "structured", "zero_shot"}
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadExperiment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exp.yaml")
	writeFile(t, path, experimentYAML)

	exp, err := LoadExperiment(path)
	require.NoError(t, err)
	assert.Equal(t, "baseline", exp.Name)
	assert.Equal(t, 2, exp.Concurrency)
	assert.Equal(t, filepath.Join(dir, "out/runs.jsonl"), exp.Log)
	assert.Equal(t, filepath.Join(dir, "corpus"), exp.Corpus)
	assert.Equal(t, 30.0, exp.RateLimits["groq"])
	require.NotNil(t, exp.Defaults.Timeout)
	assert.Equal(t, 30*time.Second, *exp.Defaults.Timeout)
	require.Len(t, exp.Configurations, 2)
	require.NotNil(t, exp.Configurations[0].RetryBound)
	assert.Equal(t, 0, *exp.Configurations[0].RetryBound)

	require.NoError(t, exp.Validate(knownProviders, knownStrategies))
}

func TestLoadExperimentRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exp.yaml")
	writeFile(t, path, "name: x\nconcurrency: 1\nstrategys: [zero_shot]\n")
	_, err := LoadExperiment(path)
	assert.Error(t, err)
}

func TestExpand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exp.yaml")
	writeFile(t, path, experimentYAML)
	exp, err := LoadExperiment(path)
	require.NoError(t, err)

	got := exp.Expand()
	var keys []string
	for _, s := range got {
		keys = append(keys, s.Provider+"/"+s.Model+"/"+s.Strategy)
	}
	assert.Equal(t, []string{
		"groq/llama-3.1-8b-instant/zero_shot",
		"groq/llama-3.1-8b-instant/structured",
		"ollama/llama3/zero_shot",
		"ollama/llama3/structured",
		"ollama/qwen2.5-coder/zero_shot",
		"ollama/qwen2.5-coder/structured",
		"openai/gpt-4o-mini/zero_shot",
	}, keys)

	// defaults flow into every configuration
	assert.Equal(t, 2, got[0].RetryBound)
	assert.Equal(t, 30*time.Second, got[0].Timeout)
	assert.Equal(t, config.DefaultMaxHeaderLength, got[0].MaxHeaderLength)

	// the explicit entry replaced the matrix one
	assert.Equal(t, 0, got[3].RetryBound)
	assert.Equal(t, 2, got[6].RetryBound)
}

const constraintsYAML = `
log: runs.jsonl
corpus: corpus
defaults:
  max_words: 40
matrix:
  providers:
    ollama: [llama3]
  strategies: [zero_shot]
  constraints:
    short:
      max_words: 8
    detailed:
      min_words: 10
configurations:
  - provider: groq
    model: llama-3.1-8b-instant
    constraints: short
    min_words: 2
`

func TestExpandConstraints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exp.yaml")
	writeFile(t, path, constraintsYAML)
	exp, err := LoadExperiment(path)
	require.NoError(t, err)
	require.NoError(t, exp.Validate(knownProviders, knownStrategies))

	got := exp.Expand()
	require.Len(t, got, 3)

	assert.Equal(t, "detailed", got[0].Constraints)
	assert.Equal(t, 10, got[0].MinWords)
	assert.Equal(t, 40, got[0].MaxWords)

	assert.Equal(t, "short", got[1].Constraints)
	assert.Equal(t, 0, got[1].MinWords)
	assert.Equal(t, 8, got[1].MaxWords)

	assert.Equal(t, "groq", got[2].Provider)
	assert.Equal(t, "short", got[2].Constraints)
	assert.Equal(t, 2, got[2].MinWords)
	assert.Equal(t, 8, got[2].MaxWords)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		exp    Experiment
		kind   config.ErrorKind
		option string
	}{
		{
			name:   "no corpus",
			exp:    Experiment{Log: "l", Configurations: []Entry{{Provider: "ollama", Model: "m"}}},
			kind:   config.MissingRequiredOption,
			option: "corpus",
		},
		{
			name:   "no configurations",
			exp:    Experiment{Log: "l", Corpus: "c"},
			kind:   config.MissingRequiredOption,
			option: "configurations",
		},
		{
			name:   "unknown strategy",
			exp:    Experiment{Log: "l", Corpus: "c", Configurations: []Entry{{Provider: "ollama", Model: "m", Strategy: "tree_of_thought"}}},
			kind:   config.InvalidEnumValue,
			option: "strategy",
		},
		{
			name:   "unknown provider",
			exp:    Experiment{Log: "l", Corpus: "c", Matrix: Matrix{Providers: map[string][]string{"bard": {"m"}}, Strategies: []string{"zero_shot"}}},
			kind:   config.InvalidEnumValue,
			option: "provider",
		},
		{
			name:   "unknown constraint set",
			exp:    Experiment{Log: "l", Corpus: "c", Configurations: []Entry{{Provider: "ollama", Model: "m", Constraints: "terse"}}},
			kind:   config.InvalidEnumValue,
			option: "constraints",
		},
		{
			name: "inverted word bounds",
			exp: Experiment{Log: "l", Corpus: "c",
				Matrix: Matrix{
					Providers:   map[string][]string{"ollama": {"m"}},
					Strategies:  []string{"zero_shot"},
					Constraints: map[string]Constraints{"broken": {MinWords: intp(9), MaxWords: intp(3)}},
				}},
			kind:   config.InvalidValue,
			option: "max_words",
		},
		{
			name:   "bad rate limit",
			exp:    Experiment{Log: "l", Corpus: "c", Configurations: []Entry{{Provider: "ollama", Model: "m"}}, RateLimits: map[string]float64{"ollama": 0}},
			kind:   config.InvalidValue,
			option: "rate_limits.ollama",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.exp.Validate(knownProviders, knownStrategies)
			require.Error(t, err)
			assert.True(t, errors.Is(err, config.ErrInvalidConfiguration))

			var cfgErr *config.Error
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.kind, cfgErr.Kind)
			assert.Equal(t, tt.option, cfgErr.Option)
		})
	}
}
