package providers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/crossborderlabs/kolgraph/pkg/llm"
)

func init() {
	llm.RegisterProvider("gemini", func(modelName string) (llm.Client, error) {
		return newGeminiClient(modelName)
	})
}

type geminiClient struct {
	sdk       *genai.Client
	modelName string
}

func newGeminiClient(modelName string) (*geminiClient, error) {
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("gemini: GEMINI_API_KEY environment variable not set")
	}
	// genai.NewClient requires a context; use Background for construction.
	sdk, err := genai.NewClient(context.Background(), option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &geminiClient{sdk: sdk, modelName: modelName}, nil
}

// Complete performs a blocking generation with automatic retry on transient errors.
func (c *geminiClient) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	var resp llm.CompletionResponse
	err := llm.WithRetry(ctx, 4, func() error {
		var innerErr error
		resp, innerErr = c.doComplete(ctx, req)
		return innerErr
	})
	return resp, err
}

func (c *geminiClient) doComplete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	name := c.modelName
	if req.Model != "" {
		name = req.Model
	}
	model := c.sdk.GenerativeModel(name)

	if req.MaxTokens > 0 {
		n := int32(req.MaxTokens)
		model.MaxOutputTokens = &n
	}
	if req.Temperature > 0 {
		t := req.Temperature
		model.Temperature = &t
	}

	// System prompt goes to SystemInstruction, not the message history.
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}

	apiResp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return llm.CompletionResponse{}, mapGeminiError(err)
	}

	var text string
	if len(apiResp.Candidates) > 0 && apiResp.Candidates[0].Content != nil {
		for _, part := range apiResp.Candidates[0].Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text += string(t)
			}
		}
	}

	var usage llm.Usage
	if apiResp.UsageMetadata != nil {
		usage.InputTokens = int(apiResp.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int(apiResp.UsageMetadata.CandidatesTokenCount)
	}

	return llm.CompletionResponse{Text: text, Usage: usage}, nil
}

func mapGeminiError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		base := llm.LLMError{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Cause:   err,
		}
		switch apiErr.Code {
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
	return fmt.Errorf("gemini: %w", err)
}
