package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIScore(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		MaxTokens   int     `json:"max_tokens"`
		Temperature float32 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  42  "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	o := NewOpenAI("key", srv.URL, "test-model")
	out, err := o.Score(context.Background(), "system", "user", 50, 0.3)
	require.NoError(t, err)
	assert.Equal(t, "42", out)

	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, 50, got.MaxTokens)
	assert.InDelta(t, 0.3, got.Temperature, 0.0001)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Content)
}

func TestOpenAIEmptyChoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAI("key", srv.URL, "m").Score(context.Background(), "", "u", 10, 0)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewOpenAI("key", srv.URL, "m").Score(context.Background(), "", "u", 10, 0)
	assert.Error(t, err)
}

func TestFactory(t *testing.T) {
	ctx := context.Background()

	s, err := New(ctx, Options{Provider: "noop"})
	require.NoError(t, err)
	_, err = s.Score(ctx, "", "", 1, 0)
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = New(ctx, Options{Provider: "openai"})
	assert.Error(t, err)

	_, err = New(ctx, Options{Provider: "vertex"})
	assert.Error(t, err)

	_, err = New(ctx, Options{Provider: "bedrock"})
	assert.Error(t, err)

	s, err = New(ctx, Options{Provider: "openai", OpenAIAPIKey: "k", OpenAIModel: "m"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, s)
}
