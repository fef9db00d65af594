package app

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/hoanghonghuy/commitlab/internal/config"
	"github.com/hoanghonghuy/commitlab/internal/engine"
)

// Action is the user's choice after a message is shown.
type Action int

const (
	ActionCommit Action = iota
	ActionRegenerate
	ActionEdit
	ActionCancel
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	boxStyle   = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2).
			MarginBottom(1)
	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// renderMessage draws the accepted message and how it was obtained.
func renderMessage(msg string, res engine.Result) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Generated Commit Message:"))
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(strings.TrimSpace(msg)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d attempt(s), %d ms", len(res.Attempts), res.LatencyMs)))
	return b.String()
}

func confirmCommitInteractive(out io.Writer, commitMsg string, res engine.Result) (Action, error) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderMessage(commitMsg, res))

	var selected string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("What would you like to do?").
				Options(
					huh.NewOption("Commit (Apply)", "commit"),
					huh.NewOption("Regenerate", "regenerate"),
					huh.NewOption("Edit", "edit"),
					huh.NewOption("Cancel", "cancel"),
				).
				Value(&selected),
		),
	)
	if err := form.Run(); err != nil {
		return ActionCancel, err
	}

	switch selected {
	case "commit":
		return ActionCommit, nil
	case "edit":
		return ActionEdit, nil
	case "regenerate":
		return ActionRegenerate, nil
	default:
		return ActionCancel, nil
	}
}

func editCommitMessageInteractive(initialMsg string) (string, error) {
	content := initialMsg
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Edit Commit Message").
				Description("The edited message is validated again before use").
				Value(&content),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return content, nil
}

// configForm holds the string-typed values edited by the config form.
type configForm struct {
	provider, model, strategy string
	retryBound, temperature   string
	feedback                  string
	fallbackProvider          string
	fallbackModel             string
	openAIKey, anthropicKey   string
	geminiKey, groqKey        string
	ollamaHost                string
	ignoredFiles              string
}

func newConfigForm(cfg config.FileConfig) *configForm {
	s := cfg.Overrides.Apply(config.Defaults())
	f := &configForm{
		provider:     config.ResolveString("", cfg.Provider, "", config.DefaultProvider),
		model:        config.ResolveString("", cfg.Model, "", config.DefaultModel),
		strategy:     config.ResolveString("", cfg.Strategy, "", config.DefaultStrategy),
		retryBound:   strconv.Itoa(s.RetryBound),
		temperature:  strconv.FormatFloat(s.Temperature, 'f', 2, 64),
		feedback:     string(s.Feedback),
		openAIKey:    cfg.Credentials.OpenAIKey,
		anthropicKey: cfg.Credentials.AnthropicKey,
		geminiKey:    cfg.Credentials.GeminiKey,
		groqKey:      cfg.Credentials.GroqKey,
		ollamaHost:   cfg.Credentials.OllamaHost,
		ignoredFiles: strings.Join(cfg.IgnoredFiles, ", "),
	}
	if cfg.Fallback != nil {
		f.fallbackProvider = cfg.Fallback.Provider
		f.fallbackModel = cfg.Fallback.Model
	}
	return f
}

// apply writes the form values back into cfg. Values are validated by the
// form, so parse errors cannot occur here.
func (f *configForm) apply(cfg config.FileConfig) config.FileConfig {
	cfg.Provider = f.provider
	cfg.Model = strings.TrimSpace(f.model)
	cfg.Strategy = f.strategy

	if v, err := strconv.Atoi(f.retryBound); err == nil {
		cfg.RetryBound = &v
	}
	if v, err := strconv.ParseFloat(f.temperature, 64); err == nil {
		cfg.Temperature = &v
	}
	fb := config.Feedback(f.feedback)
	cfg.Feedback = &fb

	if f.fallbackProvider == "" {
		cfg.Fallback = nil
	} else {
		target := config.Target{Provider: f.fallbackProvider, Model: strings.TrimSpace(f.fallbackModel)}
		if cfg.Fallback != nil {
			target.Strategy = cfg.Fallback.Strategy
		}
		cfg.Fallback = &target
	}

	cfg.Credentials.OpenAIKey = f.openAIKey
	cfg.Credentials.AnthropicKey = f.anthropicKey
	cfg.Credentials.GeminiKey = f.geminiKey
	cfg.Credentials.GroqKey = f.groqKey
	cfg.Credentials.OllamaHost = f.ollamaHost

	cfg.IgnoredFiles = splitList(f.ignoredFiles)
	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func options(values []string) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(values))
	for _, v := range values {
		opts = append(opts, huh.NewOption(v, v))
	}
	return opts
}

// runConfigInteractive launches a TUI form to edit the config file.
func runConfigInteractive(cfg config.FileConfig, path string, providers, strategies []string) (config.FileConfig, error) {
	f := newConfigForm(cfg)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("commitlab configuration").
				Description("Update your settings in "+path),

			huh.NewSelect[string]().
				Title("Provider").
				Options(options(providers)...).
				Value(&f.provider),

			huh.NewInput().
				Title("Model").
				Suggestions([]string{"gpt-4o-mini", "claude-3-5-haiku-latest", "gemini-1.5-flash", "llama-3.1-8b-instant", "llama3"}).
				Value(&f.model),

			huh.NewSelect[string]().
				Title("Prompt strategy").
				Options(options(strategies)...).
				Value(&f.strategy),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("Retry bound").
				Description("Retries after the first attempt").
				Value(&f.retryBound).
				Validate(func(s string) error {
					v, err := strconv.Atoi(s)
					if err != nil {
						return err
					}
					if v < 0 {
						return fmt.Errorf("must not be negative")
					}
					return nil
				}),

			huh.NewInput().
				Title("Temperature").
				Description("LLM Temperature (0.0 - 2.0)").
				Value(&f.temperature).
				Validate(func(s string) error {
					v, err := strconv.ParseFloat(s, 64)
					if err != nil {
						return err
					}
					if v < 0 || v > 2.0 {
						return fmt.Errorf("must be between 0.0 and 2.0")
					}
					return nil
				}),

			huh.NewSelect[string]().
				Title("Feedback").
				Description("Which rejections are described to the model on retry").
				Options(options([]string{string(config.FeedbackValidation), string(config.FeedbackAlways), string(config.FeedbackNever)})...).
				Value(&f.feedback),
		),

		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Fallback provider").
				Options(append([]huh.Option[string]{huh.NewOption("none", "")}, options(providers)...)...).
				Value(&f.fallbackProvider),

			huh.NewInput().
				Title("Fallback model").
				Value(&f.fallbackModel),
		),

		huh.NewGroup(
			huh.NewInput().Title("OpenAI API Key").Value(&f.openAIKey).EchoMode(huh.EchoModePassword),
			huh.NewInput().Title("Anthropic API Key").Value(&f.anthropicKey).EchoMode(huh.EchoModePassword),
			huh.NewInput().Title("Gemini API Key").Value(&f.geminiKey).EchoMode(huh.EchoModePassword),
			huh.NewInput().Title("Groq API Key").Value(&f.groqKey).EchoMode(huh.EchoModePassword),
			huh.NewInput().Title("Ollama host").Placeholder("http://localhost:11434").Value(&f.ollamaHost),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("Ignored Files").
				Description("Glob patterns (comma separated)").
				Value(&f.ignoredFiles),
		),
	)

	if err := form.Run(); err != nil {
		return cfg, err
	}
	return f.apply(cfg), nil
}
