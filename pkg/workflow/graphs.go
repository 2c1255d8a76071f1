package workflow

import (
	"context"
	"fmt"

	"github.com/crossborderlabs/kolgraph/pkg/graph"
	"github.com/crossborderlabs/kolgraph/pkg/llm"
)

// Node names used across the marketing-family graphs.
const (
	NodeTagProduct       = "analyze_product"
	NodeAnalyzePlatforms = "analyze_platforms"
	NodeBuildProfiles    = "build_profiles"
	NodeMatch            = "match_influencers"
	NodeFilter           = "filter_matches"
	NodeComposeEmails    = "compose_emails"
	NodeClassifyIntent   = "classify_intent"
)

// Config tunes the pipelines. Zero values fall back to defaults.
type Config struct {
	Model          string  // provider model id passed to the client
	Workers        int     // fan-out concurrency inside a node
	MatchThreshold float64 // default applied when a run's threshold is unset
	MaxSteps       int     // executor step ceiling
}

// ShouldComposeEmails is the marketing graph's only conditional edge: compose
// emails when the filter selected anyone, otherwise terminate.
func ShouldComposeEmails(s MarketingState) string {
	if len(s.SelectedInfluencers) > 0 {
		return NodeComposeEmails
	}
	return graph.End
}

// BuildProductAnalysisGraph builds the one-node product tagging graph.
func BuildProductAnalysisGraph(client llm.Client, cfg Config) (*graph.Graph[MarketingState], error) {
	tagger := &ProductTagger{Client: client, Model: cfg.Model}
	return graph.NewBuilder[MarketingState]("product_analysis").
		AddNode(NodeTagProduct, tagger.Run).
		SetEntryPoint(NodeTagProduct).
		Compile()
}

// BuildInfluencerProfileGraph builds the two-node linear graph that analyzes
// platforms and synthesizes profiles.
func BuildInfluencerProfileGraph(client llm.Client, cfg Config) (*graph.Graph[MarketingState], error) {
	analyzer := &PlatformAnalyzer{Client: client, Model: cfg.Model, Workers: cfg.Workers}
	builder := &ProfileBuilder{Client: client, Model: cfg.Model, Workers: cfg.Workers}
	return graph.NewBuilder[MarketingState]("influencer_profile").
		AddNode(NodeAnalyzePlatforms, analyzer.Run).
		AddNode(NodeBuildProfiles, builder.Run).
		AddEdge(NodeAnalyzePlatforms, NodeBuildProfiles).
		AddEdge(NodeBuildProfiles, graph.End).
		SetEntryPoint(NodeAnalyzePlatforms).
		Compile()
}

// BuildMarketingGraph builds the full six-node workflow with its single
// conditional branch after filtering.
func BuildMarketingGraph(client llm.Client, cfg Config) (*graph.Graph[MarketingState], error) {
	tagger := &ProductTagger{Client: client, Model: cfg.Model}
	analyzer := &PlatformAnalyzer{Client: client, Model: cfg.Model, Workers: cfg.Workers}
	builder := &ProfileBuilder{Client: client, Model: cfg.Model, Workers: cfg.Workers}
	matcher := &Matcher{Client: client, Model: cfg.Model}
	filter := &Filter{}
	composer := &EmailComposer{Client: client, Model: cfg.Model, Workers: cfg.Workers}

	return graph.NewBuilder[MarketingState]("marketing_workflow").
		AddNode(NodeTagProduct, tagger.Run).
		AddNode(NodeAnalyzePlatforms, analyzer.Run).
		AddNode(NodeBuildProfiles, builder.Run).
		AddNode(NodeMatch, matcher.Run).
		AddNode(NodeFilter, filter.Run).
		AddNode(NodeComposeEmails, composer.Run).
		AddEdge(NodeTagProduct, NodeAnalyzePlatforms).
		AddEdge(NodeAnalyzePlatforms, NodeBuildProfiles).
		AddEdge(NodeBuildProfiles, NodeMatch).
		AddEdge(NodeMatch, NodeFilter).
		AddConditionalEdge(NodeFilter, ShouldComposeEmails, NodeComposeEmails, graph.End).
		AddEdge(NodeComposeEmails, graph.End).
		SetEntryPoint(NodeTagProduct).
		Compile()
}

// BuildIntentGraph builds the one-node intent-classification graph.
func BuildIntentGraph(client llm.Client, cfg Config) (*graph.Graph[IntentState], error) {
	classifier := &IntentClassifier{Client: client, Model: cfg.Model}
	return graph.NewBuilder[IntentState]("intent_classification").
		AddNode(NodeClassifyIntent, classifier.Run).
		SetEntryPoint(NodeClassifyIntent).
		Compile()
}

// Runner bundles the compiled marketing-family graphs behind the graph-level
// entry points exposed to external collaborators. The final state plus its
// accumulated error_messages is the whole result: an empty error log is the
// only true full-success signal.
type Runner struct {
	cfg       Config
	product   *graph.Graph[MarketingState]
	profile   *graph.Graph[MarketingState]
	marketing *graph.Graph[MarketingState]
	intent    *graph.Graph[IntentState]
}

// NewRunner compiles all marketing-family graphs against one injected client.
func NewRunner(client llm.Client, cfg Config) (*Runner, error) {
	if client == nil {
		return nil, fmt.Errorf("workflow: client must not be nil")
	}
	if cfg.MatchThreshold == 0 {
		cfg.MatchThreshold = DefaultMatchThreshold
	}

	product, err := BuildProductAnalysisGraph(client, cfg)
	if err != nil {
		return nil, fmt.Errorf("build product analysis graph: %w", err)
	}
	profile, err := BuildInfluencerProfileGraph(client, cfg)
	if err != nil {
		return nil, fmt.Errorf("build influencer profile graph: %w", err)
	}
	marketing, err := BuildMarketingGraph(client, cfg)
	if err != nil {
		return nil, fmt.Errorf("build marketing graph: %w", err)
	}
	intent, err := BuildIntentGraph(client, cfg)
	if err != nil {
		return nil, fmt.Errorf("build intent graph: %w", err)
	}

	return &Runner{
		cfg:       cfg,
		product:   product,
		profile:   profile,
		marketing: marketing,
		intent:    intent,
	}, nil
}

// MarketingGraph exposes the compiled workflow graph (e.g. for DOT export).
func (r *Runner) MarketingGraph() *graph.Graph[MarketingState] { return r.marketing }

// ProductGraph exposes the compiled product-analysis graph.
func (r *Runner) ProductGraph() *graph.Graph[MarketingState] { return r.product }

// ProfileGraph exposes the compiled influencer-profile graph.
func (r *Runner) ProfileGraph() *graph.Graph[MarketingState] { return r.profile }

// IntentGraph exposes the compiled intent-classification graph.
func (r *Runner) IntentGraph() *graph.Graph[IntentState] { return r.intent }

func (r *Runner) executorOpts() []graph.ExecutorOption {
	if r.cfg.MaxSteps > 0 {
		return []graph.ExecutorOption{graph.WithMaxSteps(r.cfg.MaxSteps)}
	}
	return nil
}

// RunProductAnalysis tags a product.
func (r *Runner) RunProductAnalysis(ctx context.Context, productInfo map[string]any) (MarketingState, error) {
	exec := graph.NewExecutor(r.product, r.executorOpts()...)
	return exec.Run(ctx, MarketingState{ProductInfo: productInfo})
}

// RunInfluencerProfile analyzes platforms and synthesizes profiles.
func (r *Runner) RunInfluencerProfile(ctx context.Context, influencers []Influencer) (MarketingState, error) {
	exec := graph.NewExecutor(r.profile, r.executorOpts()...)
	return exec.Run(ctx, MarketingState{Influencers: influencers})
}

// RunMarketingWorkflow runs the full pipeline. A zero threshold falls back to
// the configured default (75 unless overridden).
func (r *Runner) RunMarketingWorkflow(ctx context.Context, productInfo map[string]any, influencers []Influencer, threshold float64) (MarketingState, error) {
	if threshold == 0 {
		threshold = r.cfg.MatchThreshold
	}
	exec := graph.NewExecutor(r.marketing, r.executorOpts()...)
	return exec.Run(ctx, MarketingState{
		ProductInfo:    productInfo,
		Influencers:    influencers,
		MatchThreshold: threshold,
	})
}

// RunIntentClassification classifies a reply email.
func (r *Runner) RunIntentClassification(ctx context.Context, subject, body string) (IntentState, error) {
	exec := graph.NewExecutor(r.intent, r.executorOpts()...)
	return exec.Run(ctx, IntentState{EmailSubject: subject, EmailBody: body})
}
