package config

import (
	"errors"
	"strings"
	"time"
)

// Feedback selects which rejections are fed back into the next prompt.
type Feedback string

const (
	FeedbackNever      Feedback = "never"
	FeedbackValidation Feedback = "validation"
	FeedbackAlways     Feedback = "always"
)

var feedbackValues = []string{string(FeedbackNever), string(FeedbackValidation), string(FeedbackAlways)}

// Settings is one fully resolved generation configuration.
type Settings struct {
	Provider        string        `yaml:"provider" json:"provider"`
	Model           string        `yaml:"model" json:"model"`
	Strategy        string        `yaml:"strategy" json:"strategy"`
	RetryBound      int           `yaml:"retry_bound" json:"retry_bound"`
	MaxHeaderLength int           `yaml:"max_header_length" json:"max_header_length"`
	Temperature     float64       `yaml:"temperature" json:"temperature"`
	MaxTokens       int           `yaml:"max_tokens" json:"max_tokens"`
	Timeout         time.Duration `yaml:"timeout" json:"timeout"`
	Feedback        Feedback      `yaml:"feedback" json:"feedback"`

	// MinWords and MaxWords bound the message word count; zero is no bound.
	MinWords int `yaml:"min_words" json:"min_words"`
	MaxWords int `yaml:"max_words" json:"max_words"`

	// Constraints names the experiment constraint set the bounds came
	// from, if any.
	Constraints string `yaml:"constraints,omitempty" json:"constraints,omitempty"`
}

// Default values. Every option has one; nothing is implied by a zero value.
const (
	DefaultProvider        = "ollama"
	DefaultModel           = "llama3"
	DefaultStrategy        = "zero_shot"
	DefaultRetryBound      = 3
	DefaultMaxHeaderLength = 72
	DefaultTemperature     = 0.2
	DefaultMaxTokens       = 512
	DefaultTimeout         = 60 * time.Second
	DefaultFeedback        = FeedbackValidation
	DefaultMinWords        = 0 // no bound
	DefaultMaxWords        = 0 // no bound
)

func Defaults() Settings {
	return Settings{
		Provider:        DefaultProvider,
		Model:           DefaultModel,
		Strategy:        DefaultStrategy,
		RetryBound:      DefaultRetryBound,
		MaxHeaderLength: DefaultMaxHeaderLength,
		Temperature:     DefaultTemperature,
		MaxTokens:       DefaultMaxTokens,
		Timeout:         DefaultTimeout,
		Feedback:        DefaultFeedback,
		MinWords:        DefaultMinWords,
		MaxWords:        DefaultMaxWords,
	}
}

// Overrides holds optional values layered on top of Settings.
type Overrides struct {
	RetryBound      *int           `yaml:"retry_bound,omitempty"`
	MaxHeaderLength *int           `yaml:"max_header_length,omitempty"`
	Temperature     *float64       `yaml:"temperature,omitempty"`
	MaxTokens       *int           `yaml:"max_tokens,omitempty"`
	Timeout         *time.Duration `yaml:"timeout,omitempty"`
	Feedback        *Feedback      `yaml:"feedback,omitempty"`
	MinWords        *int           `yaml:"min_words,omitempty"`
	MaxWords        *int           `yaml:"max_words,omitempty"`
}

// Apply returns s with every set override replacing the existing value.
func (o Overrides) Apply(s Settings) Settings {
	if o.RetryBound != nil {
		s.RetryBound = *o.RetryBound
	}
	if o.MaxHeaderLength != nil {
		s.MaxHeaderLength = *o.MaxHeaderLength
	}
	if o.Temperature != nil {
		s.Temperature = *o.Temperature
	}
	if o.MaxTokens != nil {
		s.MaxTokens = *o.MaxTokens
	}
	if o.Timeout != nil {
		s.Timeout = *o.Timeout
	}
	if o.Feedback != nil {
		s.Feedback = *o.Feedback
	}
	if o.MinWords != nil {
		s.MinWords = *o.MinWords
	}
	if o.MaxWords != nil {
		s.MaxWords = *o.MaxWords
	}
	return s
}

// Validate checks s against the known provider and strategy names.
// All problems are reported, joined.
func (s Settings) Validate(providers, strategies []string) error {
	var errs []error
	if strings.TrimSpace(s.Provider) == "" {
		errs = append(errs, Missing("provider"))
	} else if !contains(providers, s.Provider) {
		errs = append(errs, InvalidEnum("provider", s.Provider, providers))
	}
	if strings.TrimSpace(s.Model) == "" {
		errs = append(errs, Missing("model"))
	}
	if strings.TrimSpace(s.Strategy) == "" {
		errs = append(errs, Missing("strategy"))
	} else if !contains(strategies, NormalizeName(s.Strategy)) {
		errs = append(errs, InvalidEnum("strategy", s.Strategy, strategies))
	}
	if !contains(feedbackValues, string(s.Feedback)) {
		errs = append(errs, InvalidEnum("feedback", string(s.Feedback), feedbackValues))
	}
	if s.RetryBound < 0 {
		errs = append(errs, Invalid("retry_bound", s.RetryBound))
	}
	if s.MaxHeaderLength <= 0 {
		errs = append(errs, Invalid("max_header_length", s.MaxHeaderLength))
	}
	if s.Temperature < 0 || s.Temperature > 2.0 {
		errs = append(errs, Invalid("temperature", s.Temperature))
	}
	if s.MaxTokens < 0 {
		errs = append(errs, Invalid("max_tokens", s.MaxTokens))
	}
	if s.MinWords < 0 {
		errs = append(errs, Invalid("min_words", s.MinWords))
	}
	if s.MaxWords < 0 || (s.MaxWords > 0 && s.MaxWords < s.MinWords) {
		errs = append(errs, Invalid("max_words", s.MaxWords))
	}
	if s.Timeout <= 0 {
		errs = append(errs, Invalid("timeout", s.Timeout))
	}
	return errors.Join(errs...)
}

// NormalizeName maps "zero-shot" and "Zero_Shot" to "zero_shot".
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
