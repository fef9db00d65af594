package app

import (
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/spf13/cobra"

	"github.com/hoanghonghuy/commitlab/internal/config"
	"github.com/hoanghonghuy/commitlab/internal/engine"
	"github.com/hoanghonghuy/commitlab/internal/prompt"
)

// settingsFlags are the generation flags shared by generate and dump-prompt.
type settingsFlags struct {
	provider        string
	model           string
	strategy        string
	retryBound      int
	maxHeaderLength int
	temperature     float64
	maxTokens       int
	timeout         time.Duration
	feedback        string
	minWords        int
	maxWords        int
	maxDiffLines    int
	intent          string
}

func (f *settingsFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.provider, "provider", "p", "", "provider name (env COMMITLAB_PROVIDER)")
	fl.StringVarP(&f.model, "model", "m", "", "model name (env COMMITLAB_MODEL)")
	fl.StringVarP(&f.strategy, "strategy", "s", "", "prompt strategy (env COMMITLAB_STRATEGY)")
	fl.IntVar(&f.retryBound, "retry-bound", config.DefaultRetryBound, "retries after the first attempt")
	fl.IntVar(&f.maxHeaderLength, "max-header-length", config.DefaultMaxHeaderLength, "header length limit")
	fl.Float64Var(&f.temperature, "temperature", config.DefaultTemperature, "sampling temperature")
	fl.IntVar(&f.maxTokens, "max-tokens", config.DefaultMaxTokens, "response token limit")
	fl.DurationVar(&f.timeout, "timeout", config.DefaultTimeout, "provider request timeout")
	fl.StringVar(&f.feedback, "feedback", "", "feedback policy (never|validation|always)")
	fl.IntVar(&f.minWords, "min-words", config.DefaultMinWords, "fewest words in description and body (0 for no bound)")
	fl.IntVar(&f.maxWords, "max-words", config.DefaultMaxWords, "most words in description and body (0 for no bound)")
	fl.IntVar(&f.maxDiffLines, "max-diff-lines", 0, "clip the diff in the prompt to this many lines (0 keeps it whole)")
	fl.StringVar(&f.intent, "intent", "", "one line describing what the change is for")
}

// resolve layers flag > env > file > default. Numeric options have no
// environment variable.
func (f *settingsFlags) resolve(cmd *cobra.Command, file config.FileConfig, getenv func(string) string) config.Settings {
	def := config.Defaults()
	fl := cmd.Flags()

	s := config.Settings{
		Provider:        config.ResolveString(f.provider, getenv("COMMITLAB_PROVIDER"), file.Provider, def.Provider),
		Model:           config.ResolveString(f.model, getenv("COMMITLAB_MODEL"), file.Model, def.Model),
		Strategy:        config.ResolveString(f.strategy, getenv("COMMITLAB_STRATEGY"), file.Strategy, def.Strategy),
		RetryBound:      config.ResolveInt(f.retryBound, fl.Changed("retry-bound"), file.RetryBound, def.RetryBound),
		MaxHeaderLength: config.ResolveInt(f.maxHeaderLength, fl.Changed("max-header-length"), file.MaxHeaderLength, def.MaxHeaderLength),
		Temperature:     config.ResolveFloat(f.temperature, fl.Changed("temperature"), file.Temperature, def.Temperature),
		MaxTokens:       config.ResolveInt(f.maxTokens, fl.Changed("max-tokens"), file.MaxTokens, def.MaxTokens),
		MinWords:        config.ResolveInt(f.minWords, fl.Changed("min-words"), file.MinWords, def.MinWords),
		MaxWords:        config.ResolveInt(f.maxWords, fl.Changed("max-words"), file.MaxWords, def.MaxWords),
		Timeout:         def.Timeout,
		Feedback:        def.Feedback,
	}
	if file.Timeout != nil {
		s.Timeout = *file.Timeout
	}
	if fl.Changed("timeout") {
		s.Timeout = f.timeout
	}
	fb := ""
	if file.Feedback != nil {
		fb = string(*file.Feedback)
	}
	s.Feedback = config.Feedback(config.ResolveString(f.feedback, getenv("COMMITLAB_FEEDBACK"), fb, string(def.Feedback)))
	return s
}

func (f *settingsFlags) promptOptions(s config.Settings) prompt.Options {
	return prompt.Options{
		MaxHeaderLength: s.MaxHeaderLength,
		Intent:          f.intent,
		MinWords:        s.MinWords,
		MaxWords:        s.MaxWords,
		MaxDiffLines:    f.maxDiffLines,
	}
}

// fallbackSettings returns s retargeted at the configured fallback, or nil.
func fallbackSettings(s config.Settings, file config.FileConfig) *config.Settings {
	if file.Fallback == nil || file.Fallback.Provider == "" {
		return nil
	}
	fb := s
	fb.Provider = file.Fallback.Provider
	fb.Model = config.ResolveString("", file.Fallback.Model, "", s.Model)
	fb.Strategy = config.ResolveString("", file.Fallback.Strategy, "", s.Strategy)
	return &fb
}

func engineConfig(s config.Settings, strategy prompt.Strategy, opts prompt.Options) engine.Config {
	return engine.Config{
		Provider:    s.Provider,
		Model:       s.Model,
		Strategy:    strategy,
		Options:     opts,
		RetryBound:  s.RetryBound,
		Temperature: s.Temperature,
		MaxTokens:   s.MaxTokens,
		Feedback:    s.Feedback,
	}
}

func newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	return b
}
