// Package providers registers completion provider adapters.
// Import this package with a blank identifier to activate all providers:
//
//	import _ "github.com/crossborderlabs/kolgraph/pkg/llm/providers"
package providers

import (
	"context"
	"errors"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/crossborderlabs/kolgraph/pkg/llm"
)

func init() {
	llm.RegisterProvider("anthropic", func(modelName string) (llm.Client, error) {
		return newAnthropicClient(modelName)
	})
}

type anthropicClient struct {
	sdk       anthropicsdk.Client
	modelName string
}

func newAnthropicClient(modelName string) (*anthropicClient, error) {
	sdk := anthropicsdk.NewClient(option.WithAPIKey("")) // reads ANTHROPIC_API_KEY automatically
	return &anthropicClient{sdk: sdk, modelName: modelName}, nil
}

// Complete performs a blocking generation with automatic retry on transient errors.
func (a *anthropicClient) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	var resp llm.CompletionResponse
	err := llm.WithRetry(ctx, 4, func() error {
		var innerErr error
		resp, innerErr = a.doComplete(ctx, req)
		return innerErr
	})
	return resp, err
}

func (a *anthropicClient) doComplete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	model := a.modelName
	if req.Model != "" {
		model = req.Model
	}
	maxTokens := int64(4096)
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(model),
		MaxTokens: maxTokens,
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: req.System}}
	}

	msg, err := a.sdk.Messages.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, mapAnthropicError(err)
	}

	var text string
	for _, b := range msg.Content {
		if b.Type == "text" {
			text += b.Text
		}
	}
	return llm.CompletionResponse{
		Text: text,
		Usage: llm.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}, nil
}

func mapAnthropicError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *anthropicsdk.Error
	if errors.As(err, &apiErr) {
		base := llm.LLMError{Code: apiErr.StatusCode, Message: apiErr.Error(), Cause: err}
		switch apiErr.StatusCode {
		case 429:
			return &llm.RateLimitError{LLMError: base}
		case 401, 403:
			return &llm.AuthError{LLMError: base}
		case 400:
			return &llm.ContextLengthError{LLMError: base}
		case 500, 502, 503, 529:
			return &llm.ServerError{LLMError: base}
		}
	}
	return fmt.Errorf("anthropic: %w", err)
}
