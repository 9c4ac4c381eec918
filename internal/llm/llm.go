package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"studytrack/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// Sentinel errors for upstream conditions the caller must distinguish.
// Rate-limit and payment-required responses are surfaced verbatim so the
// user can back off or an operator can be alerted.
var (
	ErrRateLimited     = errors.New("ai service rate limit exceeded")
	ErrPaymentRequired = errors.New("ai service payment required")
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new LLM client. The model name is required; the base URL
// falls back to the upstream default when empty.
func New(baseURL, apiKey, modelName string) (*Client, error) {
	if modelName == "" {
		return nil, errors.New("LLM model name is required")
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}, nil
}

// Ping verifies the endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.api.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("LLM endpoint unreachable: %w", err)
	}
	return nil
}

// Chat sends one completion request: a system instruction, the accumulated
// conversation, and the current user prompt. It returns the raw reply text.
func (c *Client) Chat(ctx context.Context, system string, history []model.Turn, prompt string) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == model.TurnAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: 0.2,
	})
	if err != nil {
		return "", wrapUpstream(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)
	return raw, nil
}

// Transcribe converts recorded audio to text via the Whisper endpoint.
// The filename only carries the container format for the API.
func (c *Client) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		return "", wrapUpstream(err)
	}
	return resp.Text, nil
}

// wrapUpstream maps HTTP 429/402 from the upstream API onto the sentinel
// errors; everything else passes through wrapped.
func wrapUpstream(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 429:
			return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Message)
		case 402:
			return fmt.Errorf("%w: %s", ErrPaymentRequired, apiErr.Message)
		}
	}
	return fmt.Errorf("LLM API call: %w", err)
}
