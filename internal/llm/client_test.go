package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HartBrook/promptforge/internal/errors"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(WithAPIKey("test-api-key"), WithBaseURL(url), WithRequestsPerMinute(0))
	require.NoError(t, err)
	return c
}

func TestNewClient_NoAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := NewClient()

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAuthFailed))
}

func TestNewClient_FromEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")

	c, err := NewClient()

	require.NoError(t, err)
	assert.Equal(t, "env-key", c.apiKey)
	assert.Equal(t, defaultModel, c.Model())
	assert.Equal(t, defaultBaseURL, c.baseURL)
}

func TestNewClient_WithOptions(t *testing.T) {
	custom := &http.Client{}
	c, err := NewClient(
		WithAPIKey("k"),
		WithModel("claude-opus-4-20250514"),
		WithBaseURL("https://custom.api.com/"),
		WithHTTPClient(custom),
		WithTimeout(5*time.Second),
	)

	require.NoError(t, err)
	assert.Equal(t, "claude-opus-4-20250514", c.model)
	assert.Equal(t, "https://custom.api.com", c.baseURL)
	assert.Same(t, custom, c.httpClient)
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
}

func TestClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))

		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "improve this", req.Messages[0].Content)

		_ = json.NewEncoder(w).Encode(messagesResponse{
			ID:   "msg_1",
			Type: "message",
			Role: "assistant",
			Content: []contentBlock{
				{Type: "text", Text: "You are a Developer. "},
				{Type: "tool_use", Text: "ignored"},
				{Type: "text", Text: "Write the function."},
			},
		})
	}))
	defer server.Close()

	out, err := newTestClient(t, server.URL).Generate(context.Background(), "improve this")

	require.NoError(t, err)
	assert.Equal(t, "You are a Developer. Write the function.", out)
}

func TestClient_Generate_Errors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantCode      errors.ErrorCode
		wantTransient bool
		wantMessage   string
	}{
		{name: "bad request", status: http.StatusBadRequest, body: `{"type":"error","error":{"type":"invalid_request_error","message":"bad prompt"}}`, wantCode: errors.ErrGenerationFailed, wantMessage: "bad prompt"},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{}`, wantCode: errors.ErrGenerationFailed, wantTransient: true},
		{name: "overloaded", status: statusOverloaded, body: `{}`, wantCode: errors.ErrGenerationFailed, wantTransient: true},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, wantCode: errors.ErrGenerationFailed, wantTransient: true, wantMessage: "status 500"},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{}`, wantCode: errors.ErrAuthFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(t, server.URL).Generate(context.Background(), "x")

			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.CodeOf(err))
			assert.Equal(t, tt.wantTransient, errors.IsTransient(err))
			if tt.wantMessage != "" {
				assert.Contains(t, err.Error(), tt.wantMessage)
			}
		})
	}
}

func TestClient_Generate_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(messagesResponse{Content: []contentBlock{{Type: "text", Text: "  "}}})
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Generate(context.Background(), "x")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrGenerationFailed))
}

func TestClient_Generate_CanceledContextIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, err := NewClient(WithAPIKey("k"), WithBaseURL(server.URL), WithRequestsPerMinute(1))
	require.NoError(t, err)

	_, err = c.Generate(ctx, "x")

	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}

func TestGeneratorFunc(t *testing.T) {
	var g Generator = GeneratorFunc(func(_ context.Context, p string) (string, error) {
		return "echo: " + p, nil
	})

	out, err := g.Generate(context.Background(), "hi")

	require.NoError(t, err)
	assert.Equal(t, "echo: hi", out)
}
