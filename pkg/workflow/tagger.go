package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/crossborderlabs/kolgraph/pkg/llm"
	"github.com/crossborderlabs/kolgraph/pkg/llm/outparse"
)

// productTagKeys must all be present in the tagger's parsed output.
var productTagKeys = []string{"feature_tags", "audience_tags", "usage_scenario_tags"}

// ProductTagger derives ProductTags from the run's product info with a single
// completion call. Missing product info is a hard stop for this node only:
// it returns no tags plus one error and the graph continues, so every
// downstream node must tolerate an absent product_tags.
type ProductTagger struct {
	Client llm.Client
	Model  string
}

// Run implements graph.NodeFunc for MarketingState.
func (n *ProductTagger) Run(ctx context.Context, s MarketingState) (MarketingState, error) {
	var delta MarketingState

	if len(s.ProductInfo) == 0 {
		delta.ErrorMessages = []string{"product analysis: product_info is missing"}
		return delta, nil
	}

	payload, err := canonicalJSON(s.ProductInfo)
	if err != nil {
		delta.ErrorMessages = []string{fmt.Sprintf("product analysis: %v", err)}
		return delta, nil
	}
	prompt, err := renderPrompt(productTaggerTmpl, struct{ ProductJSON string }{payload})
	if err != nil {
		delta.ErrorMessages = []string{fmt.Sprintf("product analysis: %v", err)}
		return delta, nil
	}

	resp, err := n.Client.Complete(ctx, llm.CompletionRequest{Model: n.Model, Prompt: prompt})
	if err != nil {
		delta.ErrorMessages = []string{fmt.Sprintf("product analysis: completion failed: %v", err)}
		return delta, nil
	}

	tags, err := outparse.Decode[ProductTags](resp.Text, productTagKeys...)
	if err != nil {
		delta.ErrorMessages = []string{fmt.Sprintf("product analysis: invalid tag response: %v", err)}
		return delta, nil
	}

	slog.Info("product tags derived",
		"features", len(tags.FeatureTags),
		"audiences", len(tags.AudienceTags),
		"scenarios", len(tags.UsageScenarioTags))
	delta.ProductTags = &tags
	return delta, nil
}
