package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/crossborderlabs/kolgraph/pkg/llm"
	"github.com/crossborderlabs/kolgraph/pkg/llm/outparse"
)

// profileKeys are the keys every synthesized profile must carry.
var profileKeys = []string{"content_directions", "persona", "audience_profile"}

// ProfileBuilder fans out over influencers present in platform_analysis and
// synthesizes one cross-platform profile per influencer. Per-influencer
// failures are isolated; an influencer with zero platform results is skipped
// with an error and no profile.
type ProfileBuilder struct {
	Client  llm.Client
	Model   string
	Workers int
}

type profileResult struct {
	influencerID string
	profile      InfluencerProfile
	errMsg       string
	ok           bool
}

// Run implements graph.NodeFunc for MarketingState.
func (n *ProfileBuilder) Run(ctx context.Context, s MarketingState) (MarketingState, error) {
	delta := MarketingState{InfluencerProfiles: map[string]InfluencerProfile{}}

	if len(s.PlatformAnalysis) == 0 {
		delta.ErrorMessages = []string{"profile generation: no platform analysis data available"}
		return delta, nil
	}

	ids := make([]string, 0, len(s.PlatformAnalysis))
	for id := range s.PlatformAnalysis {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var workIDs []string
	for _, id := range ids {
		if len(s.PlatformAnalysis[id]) == 0 {
			delta.ErrorMessages = append(delta.ErrorMessages,
				fmt.Sprintf("no platform data to generate profile for %s", s.influencerName(id)))
			continue
		}
		workIDs = append(workIDs, id)
	}
	if len(workIDs) == 0 {
		return delta, nil
	}

	slog.Info("building profiles", "influencers", len(workIDs))

	results := make([]profileResult, len(workIDs))
	jobs := make([]func(), len(workIDs))
	for i, id := range workIDs {
		jobs[i] = func() {
			results[i] = n.buildOne(ctx, id, s.influencerName(id), s.PlatformAnalysis[id])
		}
	}
	if err := runPool(n.Workers, jobs); err != nil {
		return MarketingState{}, fmt.Errorf("profile generation: %w", err)
	}

	for _, r := range results {
		if !r.ok {
			delta.ErrorMessages = append(delta.ErrorMessages, r.errMsg)
			continue
		}
		delta.InfluencerProfiles[r.influencerID] = r.profile
	}
	return delta, nil
}

func (n *ProfileBuilder) buildOne(ctx context.Context, id, name string, byPlatform map[string]PlatformAnalysis) profileResult {
	fail := func(err error) profileResult {
		return profileResult{
			influencerID: id,
			errMsg:       fmt.Sprintf("profile generation for %s: %v", name, err),
		}
	}

	// Stable platform order keeps prompts deterministic.
	platforms := make([]string, 0, len(byPlatform))
	for p := range byPlatform {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)
	analyses := make([]PlatformAnalysis, 0, len(platforms))
	for _, p := range platforms {
		a := byPlatform[p]
		a.Platform = p
		analyses = append(analyses, a)
	}

	payload, err := canonicalJSON(analyses)
	if err != nil {
		return fail(err)
	}
	prompt, err := renderPrompt(profileBuilderTmpl, struct {
		InfluencerID   string
		InfluencerName string
		AnalysesJSON   string
	}{id, name, payload})
	if err != nil {
		return fail(err)
	}

	resp, err := n.Client.Complete(ctx, llm.CompletionRequest{Model: n.Model, Prompt: prompt})
	if err != nil {
		return fail(err)
	}

	profile, err := outparse.Decode[InfluencerProfile](resp.Text, profileKeys...)
	if err != nil {
		return fail(err)
	}
	return profileResult{influencerID: id, profile: profile, ok: true}
}
