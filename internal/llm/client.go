package llm

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/HartBrook/promptforge/internal/errors"
)

const (
	defaultBaseURL           = "https://api.anthropic.com/v1"
	defaultModel             = "claude-sonnet-4-20250514"
	defaultMaxTokens         = 4096
	defaultRequestsPerMinute = 50
	apiVersion               = "2023-06-01"

	// statusOverloaded is returned by the Messages API under load.
	statusOverloaded = 529
)

// systemPrompt frames every generation request.
const systemPrompt = `You write and improve prompts for code assistants.
Return only the requested text. No preamble, no commentary.`

// Client generates text through the Anthropic Messages API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithModel sets the model to use.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRequestsPerMinute paces outgoing requests. Zero or less disables pacing.
func WithRequestsPerMinute(n int) ClientOption {
	return func(c *Client) {
		if n <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
	}
}

// WithAPIKey sets the API key instead of reading ANTHROPIC_API_KEY.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// NewClient creates a new Messages API client.
// It reads the API key from the ANTHROPIC_API_KEY environment variable.
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		apiKey:    os.Getenv("ANTHROPIC_API_KEY"),
		baseURL:   defaultBaseURL,
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/defaultRequestsPerMinute), 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		return nil, errors.AuthFailed()
	}

	return c, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Message represents a message in the Messages API.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends prompt as a single user message and returns the text blocks
// of the reply joined together.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", errors.GenerationTransient("rate limiter wait", err)
	}

	resp, err := c.sendRequest(ctx, messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    systemPrompt,
		Messages:  []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", errors.GenerationFailed("empty response", nil)
	}
	return text, nil
}

func (c *Client) sendRequest(ctx context.Context, req messagesRequest) (*messagesResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.GenerationFailed("failed to encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, errors.GenerationFailed("failed to create request", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return nil, errors.GenerationTransient("API request timed out", err)
		}
		return nil, errors.GenerationFailed("API request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.GenerationFailed("failed to read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		reason := fmt.Sprintf("API returned status %d", resp.StatusCode)
		var apiErr apiError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error.Message != "" {
			reason = fmt.Sprintf("API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, errors.AuthFailed()
		}
		if retryableStatus(resp.StatusCode) {
			return nil, errors.GenerationTransient(reason, nil)
		}
		return nil, errors.GenerationFailed(reason, nil)
	}

	var result messagesResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, errors.GenerationFailed("failed to decode response", err)
	}

	return &result, nil
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == statusOverloaded || code >= http.StatusInternalServerError
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return stderrors.As(err, &t) && t.Timeout()
}
