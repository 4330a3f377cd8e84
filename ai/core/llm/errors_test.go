package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
)

func TestWaitHint(t *testing.T) {
	tests := []struct {
		name     string
		upstream string
		want     string
	}{
		{name: "seconds", upstream: "Rate limit exceeded, retry after 30 seconds", want: "retry in about 30 seconds"},
		{name: "short unit", upstream: "try again in 45s", want: "retry in about 45 seconds"},
		{name: "minutes", upstream: "please wait 2 minutes before retrying", want: "retry in about 2 minutes"},
		{name: "single minute", upstream: "quota resets in 1 min", want: "retry in about 1 minute"},
		{name: "single second", upstream: "retry after 1 second", want: "retry in about 1 second"},
		{name: "hours", upstream: "daily quota exhausted, resets in 3 hours", want: "retry in about 3 hours"},
		{name: "single hour", upstream: "resets in 1 hour", want: "retry in about 1 hour"},
		{name: "no duration", upstream: "too many requests", want: "try again later"},
		{name: "empty", upstream: "", want: "try again later"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewRateLimitError(tt.upstream).WaitHint())
		})
	}
}

func TestRateLimitErrorHidesUpstreamText(t *testing.T) {
	err := NewRateLimitError("org-12345 exceeded quota for key sk-secret")
	assert.Equal(t, "model provider rate limited", err.Error())
	assert.NotContains(t, err.Error(), "sk-secret")
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, IsRateLimited(NewRateLimitError("slow down")))
	assert.True(t, IsRateLimited(fmt.Errorf("model call failed: %w", NewRateLimitError(""))))
	assert.False(t, IsRateLimited(errors.New("connection refused")))
	assert.False(t, IsRateLimited(nil))
}

func TestClassify(t *testing.T) {
	t.Run("api error 429", func(t *testing.T) {
		err := classify(&openai.APIError{HTTPStatusCode: 429, Message: "retry after 10 seconds"})
		assert.True(t, IsRateLimited(err))

		var rateLimited *RateLimitError
		assert.True(t, errors.As(err, &rateLimited))
		assert.Equal(t, "retry in about 10 seconds", rateLimited.WaitHint())
	})

	t.Run("api error other status passes through", func(t *testing.T) {
		original := &openai.APIError{HTTPStatusCode: 500, Message: "server error"}
		assert.False(t, IsRateLimited(classify(original)))
	})

	t.Run("request error 429", func(t *testing.T) {
		err := classify(&openai.RequestError{HTTPStatusCode: 429, Err: errors.New("throttled")})
		assert.True(t, IsRateLimited(err))
	})

	t.Run("plain text rate limit", func(t *testing.T) {
		assert.True(t, IsRateLimited(classify(errors.New("Rate limit reached for gpt-4o"))))
	})

	t.Run("unrelated error untouched", func(t *testing.T) {
		original := errors.New("dial tcp: connection refused")
		assert.Equal(t, original, classify(original))
	})
}

func TestMaskCredential(t *testing.T) {
	assert.Equal(t, "****", MaskCredential(""))
	assert.Equal(t, "****", MaskCredential("short"))
	masked := MaskCredential("sk-abcdefghijklmnop")
	assert.NotContains(t, masked, "abcdefghijkl")
	assert.Contains(t, masked, "sk-")
	assert.Contains(t, masked, "mnop")
}
