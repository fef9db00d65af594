// Package providers maps provider names to adapter constructors.
package providers

import (
	"sort"
	"strings"
	"time"

	"github.com/hoanghonghuy/commitlab/internal/ai"
	"github.com/hoanghonghuy/commitlab/internal/anthropic"
	"github.com/hoanghonghuy/commitlab/internal/config"
	"github.com/hoanghonghuy/commitlab/internal/gemini"
	"github.com/hoanghonghuy/commitlab/internal/ollama"
	"github.com/hoanghonghuy/commitlab/internal/openai"
)

const GroqBaseURL = "https://api.groq.com/openai/v1"

// Factory builds a provider from explicit credentials.
type Factory func(creds config.Credentials, timeout time.Duration) (ai.Provider, error)

// Registry is a name -> factory table.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Default returns a registry with every built-in adapter.
func Default() *Registry {
	r := NewRegistry()
	r.Register("ollama", func(c config.Credentials, timeout time.Duration) (ai.Provider, error) {
		return ollama.New(ollama.Config{BaseURL: c.OllamaHost, Timeout: timeout}), nil
	})
	r.Register("openai", func(c config.Credentials, timeout time.Duration) (ai.Provider, error) {
		if strings.TrimSpace(c.OpenAIKey) == "" && strings.TrimSpace(c.OpenAIBaseURL) == "" {
			return nil, config.Missing("OPENAI_API_KEY")
		}
		return openai.New(openai.Config{BaseURL: c.OpenAIBaseURL, APIKey: c.OpenAIKey, Timeout: timeout}), nil
	})
	r.Register("groq", func(c config.Credentials, timeout time.Duration) (ai.Provider, error) {
		if strings.TrimSpace(c.GroqKey) == "" {
			return nil, config.Missing("GROQ_API_KEY")
		}
		return openai.New(openai.Config{Name: "groq", BaseURL: GroqBaseURL, APIKey: c.GroqKey, Timeout: timeout}), nil
	})
	r.Register("anthropic", func(c config.Credentials, timeout time.Duration) (ai.Provider, error) {
		if strings.TrimSpace(c.AnthropicKey) == "" {
			return nil, config.Missing("ANTHROPIC_API_KEY")
		}
		return anthropic.New(anthropic.Config{APIKey: c.AnthropicKey, Timeout: timeout}), nil
	})
	r.Register("gemini", func(c config.Credentials, timeout time.Duration) (ai.Provider, error) {
		if strings.TrimSpace(c.GeminiKey) == "" {
			return nil, config.Missing("GEMINI_API_KEY")
		}
		return gemini.New(gemini.Config{APIKey: c.GeminiKey, Timeout: timeout}), nil
	})
	return r
}

func (r *Registry) Register(name string, f Factory) {
	r.factories[strings.ToLower(name)] = f
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New builds the named provider. Unknown names and missing credentials
// are reported as *config.Error.
func (r *Registry) New(name string, creds config.Credentials, timeout time.Duration) (ai.Provider, error) {
	f, ok := r.factories[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, config.InvalidEnum("provider", name, r.Names())
	}
	return f(creds, timeout)
}
