package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limit", &openai.APIError{HTTPStatusCode: 429}, true},
		{"server error", &openai.APIError{HTTPStatusCode: 500}, true},
		{"bad gateway", &openai.APIError{HTTPStatusCode: 502}, true},
		{"bad request", &openai.APIError{HTTPStatusCode: 400}, false},
		{"unauthorized", &openai.APIError{HTTPStatusCode: 401}, false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"plain error", errors.New("boom"), false},
		{"wrapped api error", errors.Join(errors.New("outer"), &openai.APIError{HTTPStatusCode: 503}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryable(tt.err); got != tt.want {
				t.Errorf("retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWithRetryStopsOnNonRetryable(t *testing.T) {
	c := New("", "key", "model")
	calls := 0
	err := c.withRetry(context.Background(), "test op", func() error {
		calls++
		return errors.New("fatal")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call for non-retryable error, got %d", calls)
	}
	if !strings.Contains(err.Error(), "test op failed") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestWithRetrySucceedsAfterTransientFailure(t *testing.T) {
	c := New("", "key", "model")
	calls := 0
	err := c.withRetry(context.Background(), "test op", func() error {
		calls++
		if calls < 2 {
			return &openai.APIError{HTTPStatusCode: 500}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestWithRetryHonorsCancellation(t *testing.T) {
	c := New("", "key", "model")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.withRetry(ctx, "test op", func() error {
		return &openai.APIError{HTTPStatusCode: 429}
	})
	if err == nil || !strings.Contains(err.Error(), "canceled") {
		t.Errorf("expected cancellation error, got %v", err)
	}
}

func TestChatMessages(t *testing.T) {
	msgs := chatMessages("be helpful", "do the thing")
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != openai.ChatMessageRoleSystem || msgs[0].Content != "be helpful" {
		t.Errorf("unexpected system message %+v", msgs[0])
	}
	if msgs[1].Role != openai.ChatMessageRoleUser || msgs[1].Content != "do the thing" {
		t.Errorf("unexpected user message %+v", msgs[1])
	}

	// No system prompt, no system message.
	msgs = chatMessages("", "just the prompt")
	if len(msgs) != 1 || msgs[0].Role != openai.ChatMessageRoleUser {
		t.Errorf("unexpected messages %+v", msgs)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("a long string here", 6); got != "a long..." {
		t.Errorf("truncate = %q", got)
	}
}
