package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/hoanghonghuy/commitlab/internal/ai"
)

const DefaultBaseURL = "https://api.openai.com/v1"

// Config holds settings for any OpenAI-compatible endpoint (OpenAI, Groq, vLLM, ...).
type Config struct {
	Name    string // provider name used in errors, defaults to "openai"
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatReq struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (c *Client) Generate(ctx context.Context, req ai.Request) (string, error) {
	msgs := make([]message, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		msgs = append(msgs, message{Role: "system", Content: req.System})
	}
	msgs = append(msgs, message{Role: "user", Content: req.Prompt})

	body := chatReq{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	b, err := c.do(ctx, http.MethodPost, "/chat/completions", body)
	if err != nil {
		return "", err
	}

	var out chatResp
	if err := json.Unmarshal(b, &out); err != nil {
		return "", ai.Malformed(c.cfg.Name, "decode error: %v", err)
	}
	if out.Error != nil {
		return "", ai.Malformed(c.cfg.Name, "llm error: %s (%s)", out.Error.Message, out.Error.Type)
	}
	if len(out.Choices) == 0 {
		return "", ai.Malformed(c.cfg.Name, "empty choices")
	}
	text := out.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", ai.Malformed(c.cfg.Name, "empty content")
	}
	return text, nil
}

// Non-chat model families served from the same /models listing.
var excludedModelKeywords = []string{"whisper", "guard", "safeguard", "prompt-guard", "orpheus", "tts", "embedding"}

func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	b, err := c.do(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, ai.Malformed(c.cfg.Name, "decode models: %v", err)
	}

	seen := map[string]bool{}
	var ids []string
	for _, m := range out.Data {
		if m.ID == "" || seen[m.ID] || excluded(m.ID) {
			continue
		}
		seen[m.ID] = true
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

func excluded(id string) bool {
	lower := strings.ToLower(id)
	for _, kw := range excludedModelKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + path

	var rd io.Reader
	if payload != nil {
		p, err := json.Marshal(payload)
		if err != nil {
			return nil, ai.Classify(c.cfg.Name, err)
		}
		rd = bytes.NewReader(p)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, ai.Classify(c.cfg.Name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(c.cfg.APIKey) != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, ai.Classify(c.cfg.Name, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ai.Classify(c.cfg.Name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ai.FromStatus(c.cfg.Name, resp.StatusCode, b)
	}
	return b, nil
}
