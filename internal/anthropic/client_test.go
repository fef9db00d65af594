package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoanghonghuy/commitlab/internal/ai"
)

func TestGenerate(t *testing.T) {
	var got messageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"docs: "},{"type":"text","text":"update readme"}]}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "key", BaseURL: srv.URL})
	text, err := c.Generate(context.Background(), ai.Request{Model: "claude-3-5-haiku-latest", System: " sys ", Prompt: "diff"})
	require.NoError(t, err)
	assert.Equal(t, "docs: update readme", text)
	assert.Equal(t, defaultMaxTokens, got.MaxTokens)
	assert.Equal(t, "sys", got.System)
	require.Len(t, got.Messages, 1)
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, `{}`, ai.ErrRateLimited},
		{"overloaded", 529, `{"type":"error"}`, ai.ErrUnavailable},
		{"empty content", http.StatusOK, `{"content":[]}`, ai.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(Config{BaseURL: srv.URL}).Generate(context.Background(), ai.Request{Model: "m", Prompt: "p"})
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}
