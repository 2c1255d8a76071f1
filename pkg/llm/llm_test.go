package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/crossborderlabs/kolgraph/pkg/llm"
)

func TestParseModelID(t *testing.T) {
	tests := []struct {
		input        string
		wantProvider string
		wantModel    string
		wantErr      bool
	}{
		{"anthropic:claude-sonnet-4-5", "anthropic", "claude-sonnet-4-5", false},
		{"openai:gpt-4o", "openai", "gpt-4o", false},
		{"invalid", "", "", true},
		{":", "", "", true},
		{":model", "", "", true},
		{"provider:", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			prov, model, err := llm.ParseModelID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseModelID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if prov != tt.wantProvider {
				t.Errorf("provider = %q, want %q", prov, tt.wantProvider)
			}
			if model != tt.wantModel {
				t.Errorf("model = %q, want %q", model, tt.wantModel)
			}
		})
	}
}

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := llm.NewClient("unknown_provider:some-model")
	if err == nil {
		t.Fatal("expected error for unknown provider, got nil")
	}
}

func TestRetryable(t *testing.T) {
	base := func(msg string) llm.LLMError { return llm.LLMError{Message: msg} }
	tests := []struct {
		err      error
		wantTrue bool
	}{
		{&llm.RateLimitError{LLMError: base("rate limit")}, true},
		{&llm.ServerError{LLMError: base("5xx")}, true},
		{&llm.AuthError{LLMError: base("auth")}, false},
		{&llm.ContextLengthError{LLMError: base("ctx")}, false},
		{errors.New("plain"), false},
	}
	for _, tt := range tests {
		got := llm.Retryable(tt.err)
		if got != tt.wantTrue {
			t.Errorf("Retryable(%T) = %v, want %v", tt.err, got, tt.wantTrue)
		}
	}
}

func TestWithRetry_NonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	err := llm.WithRetry(context.Background(), 4, func() error {
		calls++
		return &llm.AuthError{LLMError: llm.LLMError{Code: 401, Message: "bad key"}}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWithRetry_SucceedsAfterTransientFailure(t *testing.T) {
	calls := 0
	err := llm.WithRetry(context.Background(), 4, func() error {
		calls++
		if calls < 2 {
			return &llm.ServerError{LLMError: llm.LLMError{Code: 503, Message: "overloaded"}}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}
