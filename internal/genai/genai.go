// Package genai provides the generative fallback using the OpenAI API.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// systemInstruction caps the answer length and requires it to end on a
// complete sentence, matching what the truncation pass expects downstream.
const systemInstruction = "Provide a clear, concise, and informative response within 90 to 100 words and ensure the response ends at a complete sentence."

// Defaults for the completion call. Temperature is near-deterministic and
// the token ceiling bounds latency and cost.
const (
	DefaultModel       = openai.ChatModelGPT4oMini
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 140
	DefaultTimeout     = 60 * time.Second
)

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
	Timeout     time.Duration
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL overrides the API endpoint (for proxies or compatible servers).
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithModel overrides the completion model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithMaxTokens overrides the completion token ceiling.
func WithMaxTokens(n int64) Option {
	return func(o *Opts) { o.MaxTokens = n }
}

// WithTimeout overrides the client-side request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// Client wraps OpenAI chat completions for composing fallback replies.
type Client struct {
	client      openai.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewClient initializes a GenAI client. The API key is required.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{
		Model:       DefaultModel,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		Timeout:     DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not set")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}

	slog.Debug("GenAI client configured", "model", cfg.Model, "max_tokens", cfg.MaxTokens, "timeout", cfg.Timeout)
	return &Client{
		client:      openai.NewClient(reqOpts...),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// GenerateReply synthesizes a reply to userText. contextBlock carries the
// retrieved Q&A lines and may be empty when the corpus had no candidates.
func (c *Client) GenerateReply(ctx context.Context, contextBlock, userText string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemInstruction),
	}
	if contextBlock != "" {
		messages = append(messages, openai.SystemMessage(contextBlock))
	}
	messages = append(messages, openai.UserMessage(userText))

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    messages,
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(c.maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	slog.Debug("GenAI completion finished",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"completion_tokens", resp.Usage.CompletionTokens)
	return resp.Choices[0].Message.Content, nil
}
