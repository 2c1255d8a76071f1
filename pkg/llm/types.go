package llm

// CompletionRequest is the unified input to a completion client: one rendered
// prompt, one blocking call, one text response. Nodes build the prompt; the
// provider adapter owns transport and wire format.
type CompletionRequest struct {
	Model       string  `json:"model"`
	System      string  `json:"system,omitempty"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
}

// Usage reports token counts.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// CompletionResponse is the unified output from a completion client.
type CompletionResponse struct {
	Text  string `json:"text"`
	Usage Usage  `json:"usage"`
}
