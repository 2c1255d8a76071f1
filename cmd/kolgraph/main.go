package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crossborderlabs/kolgraph/pkg/config"
	"github.com/crossborderlabs/kolgraph/pkg/llm"
	"github.com/crossborderlabs/kolgraph/pkg/panel"
	"github.com/crossborderlabs/kolgraph/pkg/workflow"

	// Register all LLM providers via their init() functions.
	_ "github.com/crossborderlabs/kolgraph/pkg/llm/providers"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kolgraph",
		Short: "kolgraph — influencer marketing pipelines on a graph engine",
		Long: `kolgraph runs LLM-backed marketing pipelines as stateful graphs.

The marketing workflow tags a product, analyzes influencer platform content,
builds profiles, scores matches, and drafts outreach emails for everyone who
clears the match threshold. Smaller graphs expose the individual stages, and
the panel graph simulates a cyclic talk-show discussion.`,
	}
	root.AddCommand(tagCmd())
	root.AddCommand(profileCmd())
	root.AddCommand(workflowCmd())
	root.AddCommand(intentCmd())
	root.AddCommand(panelCmd())
	root.AddCommand(graphCmd())
	return root
}

// ─── tag ──────────────────────────────────────────────────────────────────────

func tagCmd() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "tag <product.json>",
		Short: "Extract feature, audience and usage tags from a product description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, runner, err := buildRunner(model)
			if err != nil {
				return err
			}

			var productInfo map[string]any
			if err := readJSONFile(args[0], &productInfo); err != nil {
				return err
			}

			ctx := signalContext(cmd.Context())
			final, err := runner.RunProductAnalysis(ctx, productInfo)
			if err != nil {
				return err
			}
			return printJSON(final)
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "LLM model (provider:model-id); overrides KOLGRAPH_MODEL")
	return cmd
}

// ─── profile ──────────────────────────────────────────────────────────────────

func profileCmd() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "profile <influencers.json>",
		Short: "Analyze platform content and build influencer profiles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, runner, err := buildRunner(model)
			if err != nil {
				return err
			}

			var influencers []workflow.Influencer
			if err := readJSONFile(args[0], &influencers); err != nil {
				return err
			}

			ctx := signalContext(cmd.Context())
			final, err := runner.RunInfluencerProfile(ctx, influencers)
			if err != nil {
				return err
			}
			return printJSON(final)
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "LLM model (provider:model-id); overrides KOLGRAPH_MODEL")
	return cmd
}

// ─── workflow ─────────────────────────────────────────────────────────────────

// workflowInput is the JSON shape the workflow command reads.
type workflowInput struct {
	ProductInfo map[string]any        `json:"product_info"`
	Influencers []workflow.Influencer `json:"influencer_data"`
}

func workflowCmd() *cobra.Command {
	var (
		model     string
		threshold float64
	)

	cmd := &cobra.Command{
		Use:   "workflow <input.json>",
		Short: "Run the full marketing workflow from product to outreach emails",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, runner, err := buildRunner(model)
			if err != nil {
				return err
			}

			var in workflowInput
			if err := readJSONFile(args[0], &in); err != nil {
				return err
			}

			ctx := signalContext(cmd.Context())
			final, err := runner.RunMarketingWorkflow(ctx, in.ProductInfo, in.Influencers, threshold)
			if err != nil {
				return err
			}
			return printJSON(final)
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "LLM model (provider:model-id); overrides KOLGRAPH_MODEL")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "match score threshold (0 uses the configured default)")
	return cmd
}

// ─── intent ───────────────────────────────────────────────────────────────────

// intentInput is the JSON shape the intent command reads.
type intentInput struct {
	EmailSubject string `json:"email_subject"`
	EmailBody    string `json:"email_body"`
}

func intentCmd() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "intent <email.json>",
		Short: "Classify the cooperation intent of a reply email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, runner, err := buildRunner(model)
			if err != nil {
				return err
			}

			var in intentInput
			if err := readJSONFile(args[0], &in); err != nil {
				return err
			}

			ctx := signalContext(cmd.Context())
			final, err := runner.RunIntentClassification(ctx, in.EmailSubject, in.EmailBody)
			if err != nil {
				return err
			}
			return printJSON(final)
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "LLM model (provider:model-id); overrides KOLGRAPH_MODEL")
	return cmd
}

// ─── panel ────────────────────────────────────────────────────────────────────

func panelCmd() *cobra.Command {
	var (
		model  string
		guests []string
		turns  int
		seed   uint64
		host   string
	)

	cmd := &cobra.Command{
		Use:   "panel <topic>",
		Short: "Simulate a talk-show panel discussion on a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if model == "" {
				model = cfg.Model
			}
			if turns == 0 {
				turns = cfg.PanelTurns
			}
			if !cmd.Flags().Changed("seed") {
				seed = cfg.PanelSeed
			}
			if host == "" {
				host = cfg.PanelHost
			}

			client, err := llm.NewClient(model)
			if err != nil {
				return err
			}
			_, modelName, err := llm.ParseModelID(model)
			if err != nil {
				return err
			}

			ctx := signalContext(cmd.Context())
			personas, err := panel.DescribePersonas(ctx, client, modelName, guests)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			}
			if len(personas) == 0 {
				return fmt.Errorf("no personas could be generated")
			}

			disc, err := panel.NewDiscussion(client, panel.Config{
				Model:     modelName,
				HostName:  host,
				TurnLimit: turns,
				Seed:      seed,
			})
			if err != nil {
				return err
			}

			final, err := disc.Run(ctx, args[0], personas)
			if err != nil {
				return err
			}
			return printJSON(final)
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "LLM model (provider:model-id); overrides KOLGRAPH_MODEL")
	cmd.Flags().StringSliceVar(&guests, "guests", []string{"Elon Musk", "Sam Altman"}, "guest names to simulate")
	cmd.Flags().IntVar(&turns, "turns", 0, "host turns before the show ends (0 uses the configured default)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "RNG seed for reproducible speaker selection")
	cmd.Flags().StringVar(&host, "host", "", "host display name")
	return cmd
}

// ─── graph ────────────────────────────────────────────────────────────────────

func graphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <workflow|product|profile|intent|panel>",
		Short: "Print a pipeline graph in Graphviz DOT format",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// DOT export never calls the model; a nil-safe placeholder client
			// would still be wrong, so compile against a no-op client.
			runner, err := workflow.NewRunner(noopClient{}, workflow.Config{})
			if err != nil {
				return err
			}

			var dot string
			switch strings.ToLower(args[0]) {
			case "workflow":
				dot, err = runner.MarketingGraph().DOT()
			case "product":
				dot, err = runner.ProductGraph().DOT()
			case "profile":
				dot, err = runner.ProfileGraph().DOT()
			case "intent":
				dot, err = runner.IntentGraph().DOT()
			case "panel":
				disc, derr := panel.NewDiscussion(noopClient{}, panel.Config{
					RNG: rand.New(rand.NewPCG(0, 0)),
				})
				if derr != nil {
					return derr
				}
				g, gerr := disc.BuildGraph([]panel.Persona{
					{Name: "guest_a"}, {Name: "guest_b"},
				})
				if gerr != nil {
					return gerr
				}
				dot, err = g.DOT()
			default:
				return fmt.Errorf("unknown graph %q: use workflow, product, profile, intent or panel", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Print(dot)
			return nil
		},
	}
	return cmd
}

// noopClient satisfies llm.Client for commands that never complete anything.
type noopClient struct{}

func (noopClient) Complete(context.Context, llm.CompletionRequest) (llm.CompletionResponse, error) {
	return llm.CompletionResponse{}, fmt.Errorf("no-op client cannot complete")
}

// ─── helpers ─────────────────────────────────────────────────────────────────

// buildRunner loads config and compiles the marketing-family graphs.
func buildRunner(modelOverride string) (config.Config, *workflow.Runner, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	model := cfg.Model
	if modelOverride != "" {
		model = modelOverride
	}

	client, err := llm.NewClient(model)
	if err != nil {
		return config.Config{}, nil, err
	}
	// Nodes pass Model per request; it must be the bare model name, not the
	// provider-qualified id the client was constructed from.
	_, modelName, err := llm.ParseModelID(model)
	if err != nil {
		return config.Config{}, nil, err
	}

	runner, err := workflow.NewRunner(client, workflow.Config{
		Model:          modelName,
		Workers:        cfg.Workers,
		MatchThreshold: cfg.MatchThreshold,
		MaxSteps:       cfg.MaxSteps,
	})
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, runner, nil
}

func readJSONFile(path string, v any) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read input file: %w", err)
	}
	if err := json.Unmarshal(src, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			fmt.Fprintln(os.Stderr, "\n[kolgraph] interrupted — cancelling run")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx
}
