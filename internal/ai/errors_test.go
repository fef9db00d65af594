package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{http.StatusTooManyRequests, KindRateLimited},
		{http.StatusRequestTimeout, KindTimeout},
		{http.StatusGatewayTimeout, KindTimeout},
		{http.StatusInternalServerError, KindUnavailable},
		{http.StatusUnauthorized, KindUnavailable},
		{http.StatusBadRequest, KindUnavailable},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := FromStatus("openai", tt.status, []byte("boom"))
			assert.Equal(t, tt.want, err.Kind)
			assert.Equal(t, tt.status, err.Status)
			assert.Contains(t, err.Error(), "boom")
		})
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindTimeout, Classify("x", context.DeadlineExceeded).Kind)
	assert.Equal(t, KindTimeout, Classify("x", fmt.Errorf("post: %w", context.Canceled)).Kind)
	assert.Equal(t, KindUnavailable, Classify("x", errors.New("connection refused")).Kind)

	orig := Malformed("x", "empty")
	assert.Same(t, orig, Classify("x", fmt.Errorf("wrapped: %w", orig)))
}

func TestSentinels(t *testing.T) {
	err := fmt.Errorf("call: %w", &ProviderError{Kind: KindRateLimited, Provider: "groq"})

	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.False(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, KindRateLimited, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
