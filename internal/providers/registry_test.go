package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoanghonghuy/commitlab/internal/ai"
	"github.com/hoanghonghuy/commitlab/internal/config"
)

func TestDefaultNames(t *testing.T) {
	assert.Equal(t, []string{"anthropic", "gemini", "groq", "ollama", "openai"}, Default().Names())
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := Default().New("bard", config.Credentials{}, time.Second)
	require.Error(t, err)

	var cfgErr *config.Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, config.InvalidEnumValue, cfgErr.Kind)
}

func TestNewMissingCredentials(t *testing.T) {
	for _, name := range []string{"openai", "groq", "anthropic", "gemini"} {
		t.Run(name, func(t *testing.T) {
			_, err := Default().New(name, config.Credentials{}, time.Second)
			var cfgErr *config.Error
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, config.MissingRequiredOption, cfgErr.Kind)
		})
	}
}

func TestNewBuildsAdapters(t *testing.T) {
	creds := config.Credentials{OpenAIKey: "a", AnthropicKey: "b", GeminiKey: "c", GroqKey: "d"}
	for _, name := range Default().Names() {
		p, err := Default().New(name, creds, time.Second)
		require.NoError(t, err, name)
		assert.NotNil(t, p, name)
	}

	p, err := Default().New("OLLAMA", config.Credentials{}, time.Second)
	require.NoError(t, err)
	_, ok := p.(ai.ModelLister)
	assert.True(t, ok)
}

func TestRegisterCustom(t *testing.T) {
	r := NewRegistry()
	r.Register("echo", func(config.Credentials, time.Duration) (ai.Provider, error) {
		return ai.ProviderFunc(func(_ context.Context, req ai.Request) (string, error) {
			return req.Prompt, nil
		}), nil
	})

	p, err := r.New("echo", config.Credentials{}, time.Second)
	require.NoError(t, err)
	out, err := p.Generate(context.Background(), ai.Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
}
