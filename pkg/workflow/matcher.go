package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/crossborderlabs/kolgraph/pkg/llm"
	"github.com/crossborderlabs/kolgraph/pkg/llm/outparse"
)

// matchResultKeys are required on every item the matcher returns.
var matchResultKeys = []string{"influencer_id", "influencer_name", "match_score", "match_rationale"}

// matchCandidate is one profile as presented to the scoring prompt.
type matchCandidate struct {
	InfluencerID   string `json:"influencer_id"`
	InfluencerName string `json:"influencer_name"`
	InfluencerProfile
}

// Matcher scores all influencer profiles against the product in one batched
// completion call. Absent product tags or empty profiles short-circuit the
// node (empty results plus an error; the graph continues). A top-level
// non-array response is a total failure; invalid items within a valid array
// are dropped individually.
type Matcher struct {
	Client llm.Client
	Model  string
}

// Run implements graph.NodeFunc for MarketingState.
func (n *Matcher) Run(ctx context.Context, s MarketingState) (MarketingState, error) {
	delta := MarketingState{MatchResults: []MatchResult{}}

	if s.ProductTags == nil {
		delta.ErrorMessages = []string{"matcher: product tags missing"}
		return delta, nil
	}
	if len(s.InfluencerProfiles) == 0 {
		delta.ErrorMessages = []string{"matcher: influencer profiles missing"}
		return delta, nil
	}

	productJSON, err := canonicalJSON(mergeProductContext(s.ProductInfo, s.ProductTags))
	if err != nil {
		delta.ErrorMessages = []string{fmt.Sprintf("matcher: %v", err)}
		return delta, nil
	}

	ids := make([]string, 0, len(s.InfluencerProfiles))
	for id := range s.InfluencerProfiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	candidates := make([]matchCandidate, 0, len(ids))
	for _, id := range ids {
		candidates = append(candidates, matchCandidate{
			InfluencerID:      id,
			InfluencerName:    s.influencerName(id),
			InfluencerProfile: s.InfluencerProfiles[id],
		})
	}
	candidatesJSON, err := canonicalJSON(candidates)
	if err != nil {
		delta.ErrorMessages = []string{fmt.Sprintf("matcher: %v", err)}
		return delta, nil
	}

	prompt, err := renderPrompt(matcherTmpl, struct {
		ProductJSON    string
		CandidatesJSON string
	}{productJSON, candidatesJSON})
	if err != nil {
		delta.ErrorMessages = []string{fmt.Sprintf("matcher: %v", err)}
		return delta, nil
	}

	resp, err := n.Client.Complete(ctx, llm.CompletionRequest{Model: n.Model, Prompt: prompt})
	if err != nil {
		delta.ErrorMessages = []string{fmt.Sprintf("matcher: completion failed: %v", err)}
		return delta, nil
	}

	items, err := outparse.Array(resp.Text)
	if err != nil {
		delta.ErrorMessages = []string{fmt.Sprintf("matcher did not return a valid list: %v", err)}
		return delta, nil
	}

	results := make([]MatchResult, 0, len(items))
	for _, item := range items {
		match, decodeErr := outparse.DecodeItem[MatchResult](item, matchResultKeys...)
		if decodeErr != nil {
			delta.ErrorMessages = append(delta.ErrorMessages,
				fmt.Sprintf("matcher returned an invalid item %s: %v", compactJSON(item), decodeErr))
			continue
		}
		// IDs must refer to influencers that existed at run start.
		if _, known := s.InfluencerProfiles[match.InfluencerID]; !known {
			delta.ErrorMessages = append(delta.ErrorMessages,
				fmt.Sprintf("matcher returned unknown influencer id %q", match.InfluencerID))
			continue
		}
		results = append(results, match)
	}

	slog.Info("matching complete", "candidates", len(candidates), "results", len(results))
	delta.MatchResults = results
	return delta, nil
}

func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
