package providers

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/crossborderlabs/kolgraph/pkg/llm"
)

func init() {
	llm.RegisterProvider("openai", func(modelName string) (llm.Client, error) {
		return newOpenAIClient(modelName)
	})
}

type openaiClient struct {
	sdk       *openai.Client
	modelName string
}

// newOpenAIClient builds a client against either the public OpenAI API or an
// Azure OpenAI deployment. Azure wins when AZURE_OPENAI_ENDPOINT is set; the
// model name doubles as the deployment name in that case.
func newOpenAIClient(modelName string) (*openaiClient, error) {
	if endpoint := os.Getenv("AZURE_OPENAI_ENDPOINT"); endpoint != "" {
		key := os.Getenv("AZURE_OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("openai: AZURE_OPENAI_ENDPOINT set but AZURE_OPENAI_API_KEY is not")
		}
		cfg := openai.DefaultAzureConfig(key, endpoint)
		if v := os.Getenv("AZURE_OPENAI_API_VERSION"); v != "" {
			cfg.APIVersion = v
		}
		return &openaiClient{
			sdk:       openai.NewClientWithConfig(cfg),
			modelName: modelName,
		}, nil
	}

	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("openai: OPENAI_API_KEY environment variable not set")
	}
	return &openaiClient{
		sdk:       openai.NewClient(key),
		modelName: modelName,
	}, nil
}

// Complete performs a blocking generation with automatic retry on transient errors.
func (c *openaiClient) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	var resp llm.CompletionResponse
	err := llm.WithRetry(ctx, 4, func() error {
		var innerErr error
		resp, innerErr = c.doComplete(ctx, req)
		return innerErr
	})
	return resp, err
}

func (c *openaiClient) doComplete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	model := c.modelName
	if req.Model != "" {
		model = req.Model
	}
	maxTokens := 4096
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	var msgs []openai.ChatCompletionMessage
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	params := openai.ChatCompletionRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		Messages:    msgs,
	}

	resp, err := c.sdk.CreateChatCompletion(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, mapOpenAIError(err)
	}

	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}
	return llm.CompletionResponse{
		Text: text,
		Usage: llm.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

func mapOpenAIError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		base := llm.LLMError{
			Code:    apiErr.HTTPStatusCode,
			Message: apiErr.Message,
			Cause:   err,
		}
		switch apiErr.HTTPStatusCode {
		case 429:
			return &llm.RateLimitError{LLMError: base}
		case 401, 403:
			return &llm.AuthError{LLMError: base}
		case 400:
			return &llm.ContextLengthError{LLMError: base}
		case 500, 502, 503:
			return &llm.ServerError{LLMError: base}
		default:
			return &base
		}
	}
	return fmt.Errorf("openai: %w", err)
}
