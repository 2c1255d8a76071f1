package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"
)

// Prompt templates. The exact wording is not contractual; what matters is
// that each template names the JSON shape the node's parser expects.

var productTaggerTmpl = template.Must(template.New("product_tagger").Parse(`You are a cross-border e-commerce product analyst.
Derive marketing tags for the following product.

Product data (JSON):
{{.ProductJSON}}

Respond with a single JSON object, no prose:
{
  "feature_tags": ["..."],
  "audience_tags": ["..."],
  "usage_scenario_tags": ["..."]
}`))

var platformAnalystTmpl = template.Must(template.New("platform_analyst").Parse(`You are a social media analyst.
Analyze the recent content of influencer "{{.InfluencerName}}" on the "{{.Platform}}" platform.

Content list (JSON):
{{.ContentJSON}}

Respond with a single JSON object, no prose:
{
  "platform": "{{.Platform}}",
  "audience_gender": "...",
  "audience_age": "...",
  "region_country": "...",
  "language": "...",
  "content_formats": ["..."],
  "recent_content_summary": "...",
  "video_style": "...",
  "content_tone": "...",
  "category_depth": "...",
  "promotion_ability": "...",
  "brand_repetition_rate": "...",
  "content_scenes": ["..."]
}`))

var profileBuilderTmpl = template.Must(template.New("profile_builder").Parse(`You are an influencer-marketing strategist.
Synthesize one cross-platform profile for influencer "{{.InfluencerName}}" (id {{.InfluencerID}})
from the per-platform analyses below.

Per-platform analyses (JSON array):
{{.AnalysesJSON}}

Respond with a single JSON object, no prose:
{
  "content_directions": ["..."],
  "persona": "...",
  "audience_profile": "...",
  "monetization_level": "...",
  "cross_platform_consistency": "...",
  "partner_brand_types": ["..."],
  "overall_assessment": "...",
  "sales_conversion_rating": "..."
}`))

var matcherTmpl = template.Must(template.New("matcher").Parse(`You are an influencer-marketing matchmaker.
Score how well each candidate influencer fits the product.

Product (JSON, includes derived tags):
{{.ProductJSON}}

Candidates (JSON array):
{{.CandidatesJSON}}

Respond with a JSON array, one object per candidate, no prose:
[
  {
    "influencer_id": "...",
    "influencer_name": "...",
    "match_score": "88%",
    "match_rationale": "..."
  }
]`))

var emailComposerTmpl = template.Must(template.New("email_composer").Parse(`You are a brand-partnership manager writing a first outreach email.

Product (JSON, includes derived tags):
{{.ProductJSON}}

Influencer profile (JSON):
{{.ProfileJSON}}

Write a personalized collaboration email. Respond with a single JSON object, no prose:
{
  "email_subject": "...",
  "email_body": "..."
}`))

var intentTmpl = template.Must(template.New("intent").Parse(`You are analyzing a reply to a brand-collaboration outreach email.

Subject: {{.Subject}}
Body:
{{.Body}}

Respond with a single JSON object, no prose:
{
  "cooperation_intent": "interested | declined | negotiating | unclear",
  "key_points": ["..."],
  "suggested_next_step": "...",
  "sentiment": "positive | neutral | negative",
  "urgent": true,
  "summary": "..."
}`))

// renderPrompt executes a template over data.
func renderPrompt(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// canonicalJSON serializes v with stable key order and indentation, the form
// every prompt embeds payloads in.
func canonicalJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize prompt payload: %w", err)
	}
	return string(data), nil
}

// mergeProductContext returns product info with the derived tag fields added.
// Existing product fields always win; tags never overwrite caller data.
func mergeProductContext(info map[string]any, tags *ProductTags) map[string]any {
	merged := make(map[string]any, len(info)+3)
	for k, v := range info {
		merged[k] = v
	}
	if tags == nil {
		return merged
	}
	for k, v := range map[string]any{
		"feature_tags":        tags.FeatureTags,
		"audience_tags":       tags.AudienceTags,
		"usage_scenario_tags": tags.UsageScenarioTags,
	} {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	return merged
}
