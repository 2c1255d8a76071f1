package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/crossborderlabs/kolgraph/pkg/llm"
	"github.com/crossborderlabs/kolgraph/pkg/llm/outparse"
)

// platformAnalysisKeys are the keys every per-platform analysis must carry.
var platformAnalysisKeys = []string{
	"audience_gender",
	"audience_age",
	"content_tone",
	"recent_content_summary",
}

// PlatformAnalyzer fans out over influencer×platform pairs, one completion
// per pair. Pairs are independent: a failure appends one error scoped to the
// pair and omits that entry, never aborting siblings. Platforms with empty
// content lists are skipped without a call or an error. Influencers with zero
// successfully analyzed platforms are omitted from the result map entirely.
type PlatformAnalyzer struct {
	Client  llm.Client
	Model   string
	Workers int
}

type platformPair struct {
	influencerID   string
	influencerName string
	platform       string
	content        []PlatformContent
}

type platformResult struct {
	pair     platformPair
	analysis PlatformAnalysis
	errMsg   string
	ok       bool
}

// Run implements graph.NodeFunc for MarketingState.
func (n *PlatformAnalyzer) Run(ctx context.Context, s MarketingState) (MarketingState, error) {
	delta := MarketingState{PlatformAnalysis: map[string]map[string]PlatformAnalysis{}}

	var pairs []platformPair
	for _, inf := range s.Influencers {
		platforms := make([]string, 0, len(inf.Platforms))
		for p := range inf.Platforms {
			platforms = append(platforms, p)
		}
		sort.Strings(platforms)
		for _, platform := range platforms {
			content := inf.Platforms[platform]
			if len(content) == 0 {
				continue
			}
			pairs = append(pairs, platformPair{
				influencerID:   inf.ID,
				influencerName: inf.Name,
				platform:       platform,
				content:        content,
			})
		}
	}
	if len(pairs) == 0 {
		return delta, nil
	}

	slog.Info("analyzing platforms", "influencers", len(s.Influencers), "pairs", len(pairs))

	results := make([]platformResult, len(pairs))
	jobs := make([]func(), len(pairs))
	for i, pair := range pairs {
		jobs[i] = func() {
			results[i] = n.analyzePair(ctx, pair)
		}
	}
	if err := runPool(n.Workers, jobs); err != nil {
		return MarketingState{}, fmt.Errorf("platform analysis: %w", err)
	}

	for _, r := range results {
		if !r.ok {
			delta.ErrorMessages = append(delta.ErrorMessages, r.errMsg)
			continue
		}
		byPlatform := delta.PlatformAnalysis[r.pair.influencerID]
		if byPlatform == nil {
			byPlatform = make(map[string]PlatformAnalysis)
			delta.PlatformAnalysis[r.pair.influencerID] = byPlatform
		}
		byPlatform[r.pair.platform] = r.analysis
	}
	return delta, nil
}

func (n *PlatformAnalyzer) analyzePair(ctx context.Context, pair platformPair) platformResult {
	fail := func(err error) platformResult {
		return platformResult{
			pair:   pair,
			errMsg: fmt.Sprintf("platform analysis for %s - %s: %v", pair.influencerName, pair.platform, err),
		}
	}

	payload, err := canonicalJSON(pair.content)
	if err != nil {
		return fail(err)
	}
	prompt, err := renderPrompt(platformAnalystTmpl, struct {
		InfluencerName string
		Platform       string
		ContentJSON    string
	}{pair.influencerName, pair.platform, payload})
	if err != nil {
		return fail(err)
	}

	resp, err := n.Client.Complete(ctx, llm.CompletionRequest{Model: n.Model, Prompt: prompt})
	if err != nil {
		return fail(err)
	}

	analysis, err := outparse.Decode[PlatformAnalysis](resp.Text, platformAnalysisKeys...)
	if err != nil {
		return fail(err)
	}
	analysis.Platform = pair.platform
	return platformResult{pair: pair, analysis: analysis, ok: true}
}
