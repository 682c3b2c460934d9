package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: ProviderGemini}, nil)
	assert.EqualError(t, err, "gemini API key is required")
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "bard", APIKey: "k"}, nil)
	assert.EqualError(t, err, `unknown llm provider "bard"`)
}

func openAIServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req["model"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIGenerate(t *testing.T) {
	srv := openAIServer(t, http.StatusOK, `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"trigger:\n- main"},"finish_reason":"stop"}]}`)

	c, err := New(context.Background(), Config{
		Provider: ProviderOpenAI,
		Model:    "gpt-test",
		APIKey:   "test-key",
		BaseURL:  srv.URL + "/v1",
		Timeout:  5 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)

	out, err := c.Generate(context.Background(), "convert")
	require.NoError(t, err)
	assert.Equal(t, "trigger:\n- main", out)
	assert.Equal(t, "openai:gpt-test", c.Name())
}

func TestOpenAIGenerateNoChoices(t *testing.T) {
	srv := openAIServer(t, http.StatusOK, `{"id":"c1","object":"chat.completion","choices":[]}`)
	c := NewOpenAIClient(Config{Model: "gpt-test", APIKey: "test-key", BaseURL: srv.URL + "/v1"}, zap.NewNop())

	_, err := c.Generate(context.Background(), "convert")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestOpenAIGenerateHTTPError(t *testing.T) {
	srv := openAIServer(t, http.StatusInternalServerError, `{"error":{"message":"overloaded","type":"server_error"}}`)
	c := NewOpenAIClient(Config{Model: "gpt-test", APIKey: "test-key", BaseURL: srv.URL + "/v1"}, zap.NewNop())

	_, err := c.Generate(context.Background(), "convert")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai chat completion")
}

func geminiServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-2.5-flash:generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGeminiGenerate(t *testing.T) {
	srv := geminiServer(t, `{"candidates":[{"content":{"role":"model","parts":[{"text":"trigger:\n"},{"text":"- main"}]},"finishReason":"STOP"}]}`)

	c, err := NewGeminiClient(context.Background(), Config{APIKey: "k", BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)

	out, err := c.Generate(context.Background(), "convert")
	require.NoError(t, err)
	assert.Equal(t, "trigger:\n- main", out)
	assert.Equal(t, "gemini:gemini-2.5-flash", c.Name())
}

func TestGeminiGenerateNoCandidates(t *testing.T) {
	srv := geminiServer(t, `{"candidates":[]}`)

	c, err := NewGeminiClient(context.Background(), Config{APIKey: "k", BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "convert")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}
