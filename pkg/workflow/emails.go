package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/crossborderlabs/kolgraph/pkg/llm"
	"github.com/crossborderlabs/kolgraph/pkg/llm/outparse"
)

// emailKeys are required on every composed email.
var emailKeys = []string{"email_subject", "email_body"}

// emailProfile is the profile as presented to the composer prompt, augmented
// with the influencer's identity for personalization.
type emailProfile struct {
	InfluencerID   string `json:"influencer_id"`
	InfluencerName string `json:"influencer_name"`
	InfluencerProfile
}

// EmailComposer fans out over the selected influencers, one completion per
// email. A selected influencer whose profile is missing is skipped with an
// error; that is the one place a missing upstream artifact silently excludes
// only its own item. Per-influencer failures are isolated.
type EmailComposer struct {
	Client  llm.Client
	Model   string
	Workers int
}

type emailResult struct {
	email  GeneratedEmail
	errMsg string
	ok     bool
}

// Run implements graph.NodeFunc for MarketingState.
func (n *EmailComposer) Run(ctx context.Context, s MarketingState) (MarketingState, error) {
	delta := MarketingState{GeneratedEmails: []GeneratedEmail{}}

	if len(s.SelectedInfluencers) == 0 {
		return delta, nil
	}

	productJSON, err := canonicalJSON(mergeProductContext(s.ProductInfo, s.ProductTags))
	if err != nil {
		delta.ErrorMessages = []string{fmt.Sprintf("email generation: %v", err)}
		return delta, nil
	}

	slog.Info("composing emails", "selected", len(s.SelectedInfluencers))

	results := make([]emailResult, len(s.SelectedInfluencers))
	jobs := make([]func(), 0, len(s.SelectedInfluencers))
	for i, selected := range s.SelectedInfluencers {
		profile, found := s.InfluencerProfiles[selected.InfluencerID]
		if !found {
			results[i] = emailResult{
				errMsg: fmt.Sprintf("profile missing for selected influencer %s", selected.InfluencerName),
			}
			continue
		}
		jobs = append(jobs, func() {
			results[i] = n.composeOne(ctx, productJSON, selected, profile)
		})
	}
	if err := runPool(n.Workers, jobs); err != nil {
		return MarketingState{}, fmt.Errorf("email generation: %w", err)
	}

	// Assemble in selection order so output is a stable subsequence.
	for _, r := range results {
		if !r.ok {
			delta.ErrorMessages = append(delta.ErrorMessages, r.errMsg)
			continue
		}
		delta.GeneratedEmails = append(delta.GeneratedEmails, r.email)
	}
	return delta, nil
}

func (n *EmailComposer) composeOne(ctx context.Context, productJSON string, selected MatchResult, profile InfluencerProfile) emailResult {
	fail := func(err error) emailResult {
		return emailResult{errMsg: fmt.Sprintf("email generation for %s: %v", selected.InfluencerName, err)}
	}

	profileJSON, err := canonicalJSON(emailProfile{
		InfluencerID:      selected.InfluencerID,
		InfluencerName:    selected.InfluencerName,
		InfluencerProfile: profile,
	})
	if err != nil {
		return fail(err)
	}
	prompt, err := renderPrompt(emailComposerTmpl, struct {
		ProductJSON string
		ProfileJSON string
	}{productJSON, profileJSON})
	if err != nil {
		return fail(err)
	}

	resp, err := n.Client.Complete(ctx, llm.CompletionRequest{Model: n.Model, Prompt: prompt})
	if err != nil {
		return fail(err)
	}

	parsed, err := outparse.Object(resp.Text, emailKeys...)
	if err != nil {
		return fail(err)
	}
	subject, _ := parsed["email_subject"].(string)
	body, _ := parsed["email_body"].(string)
	if subject == "" || body == "" {
		return fail(fmt.Errorf("empty email_subject or email_body"))
	}

	return emailResult{
		email: GeneratedEmail{
			InfluencerID:   selected.InfluencerID,
			InfluencerName: selected.InfluencerName,
			Subject:        subject,
			Body:           body,
		},
		ok: true,
	}
}
