// Package llm wraps an OpenAI-compatible chat-completion API behind the
// two calls the rest of the application needs: free-text generation and
// schema-guided JSON generation.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	maxRetries       = 3
	baseRetryDelay   = time.Second
	defaultMaxTokens = 2048
	jsonMaxTokens    = 4096
)

// Request carries one generation call. A zero Temperature leaves the
// provider default in place.
type Request struct {
	Prompt       string
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
}

// Client is an OpenAI-compatible API client with retry/backoff on
// rate-limit and transient server errors. Callers see only the final
// error; they never retry themselves.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a client for the given endpoint. An empty baseURL keeps the
// library default (api.openai.com).
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Ping verifies the endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.api.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("LLM endpoint unreachable: %w", err)
	}
	return nil
}

// Generate produces a text completion for the request.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	msgs := chatMessages(req.SystemPrompt, req.Prompt)
	var out string
	err := c.withRetry(ctx, "text generation", func() error {
		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    msgs,
			Temperature: req.Temperature,
			MaxTokens:   maxTokens,
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("LLM returned no choices")
		}
		out = resp.Choices[0].Message.Content
		return nil
	})
	return out, err
}

// GenerateJSON produces a structured JSON completion. The optional schema
// is appended to the system prompt; JSON response mode is requested from
// the provider and the reply is validated before being returned.
func (c *Client) GenerateJSON(ctx context.Context, req Request, schema json.RawMessage) (json.RawMessage, error) {
	system := req.SystemPrompt
	system += "\n\nYou must respond with valid JSON only. Do not include any " +
		"explanations or markdown formatting, just the raw JSON."
	if len(schema) > 0 {
		system += "\n\nThe JSON must conform to this schema:\n" + string(schema)
	}

	msgs := chatMessages(system, req.Prompt)
	var out json.RawMessage
	err := c.withRetry(ctx, "JSON generation", func() error {
		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    msgs,
			Temperature: req.Temperature,
			MaxTokens:   jsonMaxTokens,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("LLM returned no choices")
		}
		raw := []byte(resp.Choices[0].Message.Content)
		if !json.Valid(raw) {
			return fmt.Errorf("LLM returned invalid JSON: %s", truncate(string(raw), 200))
		}
		out = json.RawMessage(raw)
		return nil
	})
	return out, err
}

// withRetry runs fn with exponential backoff on retryable failures.
// Non-retryable errors fail immediately.
func (c *Client) withRetry(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) {
			return fmt.Errorf("%s failed: %w", operation, err)
		}
		if attempt < maxRetries-1 {
			delay := baseRetryDelay << attempt
			slog.Debug("retrying LLM call", "operation", operation, "attempt", attempt+1, "delay", delay, "error", err)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("%s canceled: %w", operation, ctx.Err())
			}
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", operation, maxRetries, lastErr)
}

// retryable reports whether the error is a rate limit, timeout, or
// transient server failure.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func chatMessages(system, prompt string) []openai.ChatCompletionMessage {
	var msgs []openai.ChatCompletionMessage
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})
	return msgs
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
