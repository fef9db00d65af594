package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hoanghonghuy/commitlab/internal/ai"
)

const (
	DefaultHost   = "http://localhost:11434"
	DefaultNumCtx = 8192
)

// Config holds Ollama specific settings
type Config struct {
	BaseURL string // e.g. "http://localhost:11434"
	NumCtx  int
	Timeout time.Duration
}

// Client implements ai.Provider for Ollama
type Client struct {
	baseURL string
	numCtx  int
	client  *http.Client
}

func New(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultHost
	}
	numCtx := cfg.NumCtx
	if numCtx <= 0 {
		numCtx = DefaultNumCtx
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		numCtx:  numCtx,
		client:  &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
	Format   string    `json:"format,omitempty"`
	Options  options   `json:"options"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type options struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
	NumCtx      int     `json:"num_ctx,omitempty"`
}

type chatResponse struct {
	Message *message `json:"message"`
	Done    bool     `json:"done"`
	Error   string   `json:"error,omitempty"`
}

func (c *Client) Generate(ctx context.Context, req ai.Request) (string, error) {
	msgs := make([]message, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		msgs = append(msgs, message{Role: "system", Content: req.System})
	}
	msgs = append(msgs, message{Role: "user", Content: req.Prompt})

	reqBody := chatRequest{
		Model:    req.Model,
		Messages: msgs,
		Stream:   false,
		Options: options{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
			NumCtx:      c.numCtx,
		},
	}
	if req.JSON {
		reqBody.Format = "json"
	}

	b, err := c.do(ctx, http.MethodPost, "/api/chat", reqBody)
	if err != nil {
		return "", err
	}

	var chatResp chatResponse
	if err := json.Unmarshal(b, &chatResp); err != nil {
		return "", ai.Malformed("ollama", "decode response: %v", err)
	}
	if chatResp.Error != "" {
		return "", ai.Malformed("ollama", "%s", chatResp.Error)
	}
	if chatResp.Message == nil || strings.TrimSpace(chatResp.Message.Content) == "" {
		return "", ai.Malformed("ollama", "empty message")
	}
	return chatResp.Message.Content, nil
}

func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	b, err := c.do(ctx, http.MethodGet, "/api/tags", nil)
	if err != nil {
		return nil, err
	}
	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(b, &tags); err != nil {
		return nil, ai.Malformed("ollama", "decode tags: %v", err)
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		if m.Name != "" {
			names = append(names, m.Name)
		}
	}
	return names, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var rd io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, ai.Classify("ollama", fmt.Errorf("marshal request: %w", err))
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, ai.Classify("ollama", fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, ai.Classify("ollama", fmt.Errorf("ollama request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ai.Classify("ollama", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, ai.FromStatus("ollama", resp.StatusCode, body)
	}
	return body, nil
}
