package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const fileName = ".commitlab.yaml"

// Target names one (provider, model, strategy) triple.
type Target struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	Strategy string `yaml:"strategy,omitempty"`
}

// Credentials are handed to provider constructors explicitly.
type Credentials struct {
	OpenAIKey     string `yaml:"openai_key,omitempty"`
	OpenAIBaseURL string `yaml:"openai_base_url,omitempty"`
	AnthropicKey  string `yaml:"anthropic_key,omitempty"`
	GeminiKey     string `yaml:"gemini_key,omitempty"`
	GroqKey       string `yaml:"groq_key,omitempty"`
	OllamaHost    string `yaml:"ollama_host,omitempty"`
}

// FileConfig is the user config stored in ~/.commitlab.yaml.
type FileConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	Strategy string `yaml:"strategy,omitempty"`

	Overrides `yaml:",inline"`

	// Fallback runs when the primary target exhausts its retries.
	Fallback *Target `yaml:"fallback,omitempty"`

	Credentials Credentials `yaml:"credentials,omitempty"`

	IgnoredFiles []string `yaml:"ignored_files,omitempty"`
}

// DefaultPath returns ~/.commitlab.yaml, or "" when there is no home directory.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, fileName)
}

func Load(path string) (FileConfig, error) {
	var cfg FileConfig
	if path == "" {
		path = DefaultPath()
		if path == "" {
			return cfg, nil
		}
	}

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func Save(cfg FileConfig, path string) error {
	if path == "" {
		path = DefaultPath()
	}

	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Credentials live here, keep the file private.
	return os.WriteFile(path, b, 0600)
}

// Merge fills empty credential fields of c from other.
func (c Credentials) Merge(other Credentials) Credentials {
	c.OpenAIKey = ResolveString("", c.OpenAIKey, other.OpenAIKey, "")
	c.OpenAIBaseURL = ResolveString("", c.OpenAIBaseURL, other.OpenAIBaseURL, "")
	c.AnthropicKey = ResolveString("", c.AnthropicKey, other.AnthropicKey, "")
	c.GeminiKey = ResolveString("", c.GeminiKey, other.GeminiKey, "")
	c.GroqKey = ResolveString("", c.GroqKey, other.GroqKey, "")
	c.OllamaHost = ResolveString("", c.OllamaHost, other.OllamaHost, "")
	return c
}

// CredentialsFromEnv reads provider credentials from the process environment.
// It is only called at the binary's edge.
func CredentialsFromEnv() Credentials {
	return Credentials{
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		AnthropicKey:  os.Getenv("ANTHROPIC_API_KEY"),
		GeminiKey:     os.Getenv("GEMINI_API_KEY"),
		GroqKey:       os.Getenv("GROQ_API_KEY"),
		OllamaHost:    os.Getenv("OLLAMA_HOST"),
	}
}

func ResolveString(flagVal, envVal, fileVal, defVal string) string {
	if flagVal != "" {
		return flagVal
	}
	if envVal != "" {
		return envVal
	}
	if fileVal != "" {
		return fileVal
	}
	return defVal
}

func ResolveInt(flagVal int, flagSet bool, fileVal *int, defVal int) int {
	if flagSet {
		return flagVal
	}
	if fileVal != nil {
		return *fileVal
	}
	return defVal
}

func ResolveFloat(flagVal float64, flagSet bool, fileVal *float64, defVal float64) float64 {
	if flagSet {
		return flagVal
	}
	if fileVal != nil {
		return *fileVal
	}
	return defVal
}
