// Package workflow implements the influencer-marketing pipelines: product
// tagging, per-platform influencer analysis, profile synthesis, match
// scoring, threshold filtering, outreach email composition, and reply-intent
// classification. Nodes hold an injected llm.Client and plug directly into
// the pkg/graph executor.
package workflow

// Influencer is one candidate record supplied by the caller. IDs are stable
// for the duration of a run; every derived field references influencers by
// these IDs.
type Influencer struct {
	ID        string                       `json:"influencer_id"`
	Name      string                       `json:"influencer_name"`
	Platforms map[string][]PlatformContent `json:"platforms"`
}

// PlatformContent is one published content item on a platform.
type PlatformContent struct {
	Title         string `json:"content_title"`
	PromoCategory string `json:"promo_category,omitempty"`
	EnhancedTag   string `json:"enhanced_tag,omitempty"`
	CoverImageURL string `json:"cover_image_url,omitempty"`
	ContentURL    string `json:"content_url,omitempty"`
	LikeCount     int    `json:"like_count"`
	CommentCount  int    `json:"comment_count"`
	PublishDate   string `json:"publish_date,omitempty"`
}

// ProductTags is the tag set derived from product info.
type ProductTags struct {
	FeatureTags       []string `json:"feature_tags"`
	AudienceTags      []string `json:"audience_tags"`
	UsageScenarioTags []string `json:"usage_scenario_tags"`
}

// PlatformAnalysis is the per-platform analysis of one influencer's content.
type PlatformAnalysis struct {
	Platform             string   `json:"platform"`
	AudienceGender       string   `json:"audience_gender"`
	AudienceAge          string   `json:"audience_age"`
	RegionCountry        string   `json:"region_country"`
	Language             string   `json:"language"`
	ContentFormats       []string `json:"content_formats"`
	RecentContentSummary string   `json:"recent_content_summary"`
	VideoStyle           string   `json:"video_style"`
	ContentTone          string   `json:"content_tone"`
	CategoryDepth        string   `json:"category_depth"`
	PromotionAbility     string   `json:"promotion_ability"`
	BrandRepetitionRate  string   `json:"brand_repetition_rate"`
	ContentScenes        []string `json:"content_scenes"`
}

// InfluencerProfile is the cross-platform profile synthesized from the
// per-platform analyses.
type InfluencerProfile struct {
	ContentDirections        []string `json:"content_directions"`
	Persona                  string   `json:"persona"`
	AudienceProfile          string   `json:"audience_profile"`
	MonetizationLevel        string   `json:"monetization_level"`
	CrossPlatformConsistency string   `json:"cross_platform_consistency"`
	PartnerBrandTypes        []string `json:"partner_brand_types"`
	OverallAssessment        string   `json:"overall_assessment"`
	SalesConversionRating    string   `json:"sales_conversion_rating"`
}

// MatchResult scores one influencer against the product. MatchScore is a
// percentage string as produced by the model, canonically "88%"; the trailing
// percent sign is optional when parsed (see Filter).
type MatchResult struct {
	InfluencerID   string `json:"influencer_id"`
	InfluencerName string `json:"influencer_name"`
	MatchScore     string `json:"match_score"`
	MatchRationale string `json:"match_rationale"`
}

// GeneratedEmail is one composed outreach email.
type GeneratedEmail struct {
	InfluencerID   string `json:"influencer_id"`
	InfluencerName string `json:"influencer_name"`
	Subject        string `json:"email_subject"`
	Body           string `json:"email_body"`
}

// DefaultMatchThreshold is applied when the caller leaves the threshold unset.
const DefaultMatchThreshold = 75.0

// MarketingState is the evolving record of one marketing-pipeline run.
// Absence conventions: nil pointer / nil map / nil slice means the field was
// never produced; a non-nil empty value means the producing node ran and
// found nothing. Nodes return MarketingState deltas with only their output
// fields set.
type MarketingState struct {
	ProductInfo         map[string]any                         `json:"product_info,omitempty"`
	Influencers         []Influencer                           `json:"influencer_data,omitempty"`
	ProductTags         *ProductTags                           `json:"product_tags,omitempty"`
	PlatformAnalysis    map[string]map[string]PlatformAnalysis `json:"platform_analysis,omitempty"`
	InfluencerProfiles  map[string]InfluencerProfile           `json:"influencer_profiles,omitempty"`
	MatchResults        []MatchResult                          `json:"match_results,omitempty"`
	SelectedInfluencers []MatchResult                          `json:"selected_influencers,omitempty"`
	GeneratedEmails     []GeneratedEmail                       `json:"generated_emails,omitempty"`
	MatchThreshold      float64                                `json:"match_threshold,omitempty"`
	ErrorMessages       []string                               `json:"error_messages,omitempty"`
}

// Merge applies a node delta: set fields overwrite whole (no deep merge),
// the error log appends and is never cleared mid-run.
func (s MarketingState) Merge(d MarketingState) MarketingState {
	if d.ProductInfo != nil {
		s.ProductInfo = d.ProductInfo
	}
	if d.Influencers != nil {
		s.Influencers = d.Influencers
	}
	if d.ProductTags != nil {
		s.ProductTags = d.ProductTags
	}
	if d.PlatformAnalysis != nil {
		s.PlatformAnalysis = d.PlatformAnalysis
	}
	if d.InfluencerProfiles != nil {
		s.InfluencerProfiles = d.InfluencerProfiles
	}
	if d.MatchResults != nil {
		s.MatchResults = d.MatchResults
	}
	if d.SelectedInfluencers != nil {
		s.SelectedInfluencers = d.SelectedInfluencers
	}
	if d.GeneratedEmails != nil {
		s.GeneratedEmails = d.GeneratedEmails
	}
	if d.MatchThreshold != 0 {
		s.MatchThreshold = d.MatchThreshold
	}
	s.ErrorMessages = append(s.ErrorMessages, d.ErrorMessages...)
	return s
}

// influencerName resolves a display name from the run's input records.
func (s MarketingState) influencerName(id string) string {
	for _, inf := range s.Influencers {
		if inf.ID == id {
			return inf.Name
		}
	}
	return "unknown influencer " + id
}

// IntentAnalysis is the classified intent of a reply email.
type IntentAnalysis struct {
	CooperationIntent string   `json:"cooperation_intent"`
	KeyPoints         []string `json:"key_points"`
	SuggestedNextStep string   `json:"suggested_next_step"`
	Sentiment         string   `json:"sentiment"`
	Urgent            bool     `json:"urgent"`
	Summary           string   `json:"summary"`
}

// intentRequiredKeys is the fixed key set the classifier demands; a response
// missing any of them is a total failure, never a partial result.
var intentRequiredKeys = []string{
	"cooperation_intent",
	"key_points",
	"suggested_next_step",
	"sentiment",
	"urgent",
	"summary",
}

// IntentState is the state of one intent-classification run.
type IntentState struct {
	EmailSubject  string          `json:"email_subject,omitempty"`
	EmailBody     string          `json:"email_body"`
	Analysis      *IntentAnalysis `json:"analysis_result,omitempty"`
	ErrorMessages []string        `json:"error_messages,omitempty"`
}

// Merge applies a node delta, appending the error log.
func (s IntentState) Merge(d IntentState) IntentState {
	if d.EmailSubject != "" {
		s.EmailSubject = d.EmailSubject
	}
	if d.EmailBody != "" {
		s.EmailBody = d.EmailBody
	}
	if d.Analysis != nil {
		s.Analysis = d.Analysis
	}
	s.ErrorMessages = append(s.ErrorMessages, d.ErrorMessages...)
	return s
}
