package app

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoanghonghuy/commitlab/internal/config"
)

func parse(t *testing.T, args ...string) (*cobra.Command, *settingsFlags) {
	t.Helper()
	f := &settingsFlags{}
	cmd := &cobra.Command{Use: "x"}
	f.register(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, f
}

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestResolveDefaults(t *testing.T) {
	cmd, f := parse(t)
	assert.Equal(t, config.Defaults(), f.resolve(cmd, config.FileConfig{}, env(nil)))
}

func TestResolvePrecedence(t *testing.T) {
	bound := 5
	temp := 0.7
	timeout := 10 * time.Second
	never := config.FeedbackNever
	file := config.FileConfig{
		Provider: "openai",
		Model:    "gpt-4o-mini",
		Strategy: "few_shot",
		Overrides: config.Overrides{
			RetryBound:  &bound,
			Temperature: &temp,
			Timeout:     &timeout,
			Feedback:    &never,
		},
	}

	maxWords := 30
	file.MaxWords = &maxWords

	cmd, f := parse(t, "--model", "flag-model", "--retry-bound", "0", "--timeout", "3s", "--min-words", "4")
	s := f.resolve(cmd, file, env(map[string]string{
		"COMMITLAB_PROVIDER": "groq",
		"COMMITLAB_MODEL":    "env-model",
	}))

	assert.Equal(t, "groq", s.Provider)
	assert.Equal(t, "flag-model", s.Model)
	assert.Equal(t, "few_shot", s.Strategy)
	assert.Equal(t, 0, s.RetryBound)
	assert.Equal(t, 0.7, s.Temperature)
	assert.Equal(t, 3*time.Second, s.Timeout)
	assert.Equal(t, config.FeedbackNever, s.Feedback)
	assert.Equal(t, config.DefaultMaxHeaderLength, s.MaxHeaderLength)
	assert.Equal(t, 4, s.MinWords)
	assert.Equal(t, 30, s.MaxWords)

	opts := f.promptOptions(s)
	assert.Equal(t, 4, opts.MinWords)
	assert.Equal(t, 30, opts.MaxWords)
}

func TestFallbackSettings(t *testing.T) {
	s := config.Defaults()
	assert.Nil(t, fallbackSettings(s, config.FileConfig{}))

	fb := fallbackSettings(s, config.FileConfig{Fallback: &config.Target{Provider: "groq"}})
	require.NotNil(t, fb)
	assert.Equal(t, "groq", fb.Provider)
	assert.Equal(t, s.Model, fb.Model)
	assert.Equal(t, s.Strategy, fb.Strategy)
	assert.Equal(t, s.RetryBound, fb.RetryBound)

	fb = fallbackSettings(s, config.FileConfig{Fallback: &config.Target{Provider: "groq", Model: "llama", Strategy: "structured"}})
	assert.Equal(t, "llama", fb.Model)
	assert.Equal(t, "structured", fb.Strategy)
}
