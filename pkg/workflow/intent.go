package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/crossborderlabs/kolgraph/pkg/llm"
	"github.com/crossborderlabs/kolgraph/pkg/llm/outparse"
)

// IntentClassifier classifies the intent of a reply email in one completion
// call. An empty body short-circuits without a call. The parsed result must
// carry every key in intentRequiredKeys; a single missing key is a total
// failure — no partial intent result is ever produced.
type IntentClassifier struct {
	Client llm.Client
	Model  string
}

// Run implements graph.NodeFunc for IntentState.
func (n *IntentClassifier) Run(ctx context.Context, s IntentState) (IntentState, error) {
	var delta IntentState

	if strings.TrimSpace(s.EmailBody) == "" {
		delta.ErrorMessages = []string{"intent analysis: email body is empty"}
		return delta, nil
	}

	subject := s.EmailSubject
	if subject == "" {
		subject = "N/A"
	}
	prompt, err := renderPrompt(intentTmpl, struct {
		Subject string
		Body    string
	}{subject, s.EmailBody})
	if err != nil {
		delta.ErrorMessages = []string{fmt.Sprintf("intent analysis: %v", err)}
		return delta, nil
	}

	resp, err := n.Client.Complete(ctx, llm.CompletionRequest{Model: n.Model, Prompt: prompt})
	if err != nil {
		delta.ErrorMessages = []string{fmt.Sprintf("intent analysis: completion failed: %v", err)}
		return delta, nil
	}

	analysis, err := outparse.Decode[IntentAnalysis](resp.Text, intentRequiredKeys...)
	if err != nil {
		delta.ErrorMessages = []string{fmt.Sprintf("intent analysis: invalid or incomplete result: %v", err)}
		return delta, nil
	}

	slog.Info("intent classified", "intent", analysis.CooperationIntent, "sentiment", analysis.Sentiment)
	delta.Analysis = &analysis
	return delta, nil
}
