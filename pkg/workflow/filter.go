package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Filter keeps every match result whose score meets the threshold
// (inclusive). It is a pure state transform: no completion calls. The output
// preserves the order of match_results; malformed scores are dropped with one
// error each and never abort filtering of the remaining results.
type Filter struct{}

// Run implements graph.NodeFunc for MarketingState.
func (n *Filter) Run(_ context.Context, s MarketingState) (MarketingState, error) {
	delta := MarketingState{SelectedInfluencers: []MatchResult{}}

	if len(s.MatchResults) == 0 {
		return delta, nil
	}

	threshold := s.MatchThreshold
	for _, result := range s.MatchResults {
		score, err := ParseScore(result.MatchScore)
		if err != nil {
			delta.ErrorMessages = append(delta.ErrorMessages,
				fmt.Sprintf("filter: invalid match score for influencer %s: %q", result.InfluencerID, result.MatchScore))
			continue
		}
		if score >= threshold {
			delta.SelectedInfluencers = append(delta.SelectedInfluencers, result)
		}
	}

	slog.Info("matches filtered",
		"results", len(s.MatchResults),
		"selected", len(delta.SelectedInfluencers),
		"threshold", threshold)
	return delta, nil
}

// ParseScore converts a percentage-style score string to a float. The
// canonical form is "88%"; the trailing percent sign is optional, so "88"
// parses to the same value. Surrounding whitespace is ignored.
func ParseScore(raw string) (float64, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "%"))
	if trimmed == "" {
		return 0, fmt.Errorf("empty score string")
	}
	score, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("parse score %q: %w", raw, err)
	}
	return score, nil
}
