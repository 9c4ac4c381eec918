package llm

import (
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestNewRequiresModelName(t *testing.T) {
	if _, err := New("http://localhost:11434/v1", "key", ""); err == nil {
		t.Error("expected an error for an empty model name")
	}

	c, err := New("", "key", "llama3.2")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c == nil {
		t.Fatal("expected a client")
	}
}

func TestWrapUpstream(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"rate limited", &openai.APIError{HTTPStatusCode: 429, Message: "slow down"}, ErrRateLimited},
		{"payment required", &openai.APIError{HTTPStatusCode: 402, Message: "pay up"}, ErrPaymentRequired},
		{"server error passes through", &openai.APIError{HTTPStatusCode: 500, Message: "boom"}, nil},
		{"plain error passes through", errors.New("dial tcp: refused"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapUpstream(tt.err)
			if got == nil {
				t.Fatal("wrapUpstream returned nil")
			}
			if tt.want != nil {
				if !errors.Is(got, tt.want) {
					t.Errorf("wrapUpstream(%v) = %v, want errors.Is %v", tt.err, got, tt.want)
				}
				return
			}
			if errors.Is(got, ErrRateLimited) || errors.Is(got, ErrPaymentRequired) {
				t.Errorf("wrapUpstream(%v) = %v, should not map to a sentinel", tt.err, got)
			}
		})
	}
}
