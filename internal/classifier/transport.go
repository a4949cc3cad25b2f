package classifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Role is a message role in a classification conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a classification conversation. Retries that
// need to reference a prior bad response embed it as an assistant turn
// followed by a user remediation turn, rather than relying on a
// provider-native continuation handle (see transport doc below).
type Message struct {
	Role Role
	Text string
}

// Transport sends a classification conversation to the model and returns
// its final text reply.
//
// Anthropic's Messages API has no equivalent to a provider-native
// "previous response id" continuation handle, so this transport is always
// given the full message history: a remediation retry appends the prior
// (bad) assistant reply and a new user instruction, rather than resuming a
// server-side conversation state (spec.md §9's documented fallback for
// providers without continuation support).
type Transport interface {
	Send(ctx context.Context, systemPrompt string, messages []Message) (string, error)
}

// RateLimitError marks a Transport error as a provider rate-limit
// response, the only error class sendWithBackoff retries.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string { return e.Err.Error() }
func (e *RateLimitError) Unwrap() error { return e.Err }

// IsRateLimited reports whether err represents a provider rate-limit
// response (HTTP 429), the only error class the backoff policy retries.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

const systemPrompt = "You are helping identify links on public sector web pages that pertain to businesses seeking public sector contracts."

// AnthropicTransport sends classification conversations through the
// Anthropic Messages API.
type AnthropicTransport struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewAnthropicTransport builds a Transport backed by the given API key.
func NewAnthropicTransport(apiKey string) *AnthropicTransport {
	return &AnthropicTransport{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     anthropic.ModelClaude3_5HaikuLatest,
		maxTokens: 4096,
	}
}

func (t *AnthropicTransport) Send(ctx context.Context, system string, messages []Message) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     t.model,
		MaxTokens: t.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages:  toAnthropicMessages(messages),
	}

	resp, err := t.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			return "", &RateLimitError{Err: err}
		}
		return "", fmt.Errorf("anthropic messages.new: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}

func toAnthropicMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Text)
		switch m.Role {
		case RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(block))
		default:
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}
