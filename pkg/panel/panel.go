package panel

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/crossborderlabs/kolgraph/pkg/graph"
	"github.com/crossborderlabs/kolgraph/pkg/llm"
)

const (
	// NodeHost is the host node's name; player nodes are named after their persona.
	NodeHost = "host"

	// DefaultHostName is used when Config.HostName is empty.
	DefaultHostName = "Mia"

	// DefaultTurnLimit caps the number of host turns per discussion.
	DefaultTurnLimit = 5
)

// Config tunes a discussion. Zero values fall back to defaults. Seed makes a
// run reproducible; when RNG is set it takes precedence over Seed.
type Config struct {
	Model     string
	HostName  string
	TurnLimit int
	Seed      uint64
	RNG       *rand.Rand
}

// Discussion drives the cyclic host↔players graph.
type Discussion struct {
	client llm.Client
	cfg    Config
	rng    *rand.Rand
}

// NewDiscussion validates the config and fixes defaults.
func NewDiscussion(client llm.Client, cfg Config) (*Discussion, error) {
	if client == nil {
		return nil, fmt.Errorf("panel: client must not be nil")
	}
	if cfg.HostName == "" {
		cfg.HostName = DefaultHostName
	}
	if cfg.TurnLimit <= 0 {
		cfg.TurnLimit = DefaultTurnLimit
	}
	rng := cfg.RNG
	if rng == nil {
		rng = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	}
	return &Discussion{client: client, cfg: cfg, rng: rng}, nil
}

// BuildGraph assembles the discussion graph for a given guest list: the host
// node, one node per persona, player edges back to the host, and a single
// conditional edge out of the host. The Ended check comes before the speaker
// lookup so the closing turn never routes to another guest.
func (d *Discussion) BuildGraph(personas []Persona) (*graph.Graph[State], error) {
	if len(personas) == 0 {
		return nil, fmt.Errorf("panel: at least one persona is required")
	}

	targets := make([]string, 0, len(personas)+1)
	b := graph.NewBuilder[State]("panel_discussion").
		AddNode(NodeHost, d.hostTurn).
		SetEntryPoint(NodeHost)
	for _, p := range personas {
		b.AddNode(p.Name, d.playerTurn(p))
		b.AddEdge(p.Name, NodeHost)
		targets = append(targets, p.Name)
	}
	targets = append(targets, graph.End)
	b.AddConditionalEdge(NodeHost, routeFromHost, targets...)
	return b.Compile()
}

func routeFromHost(s State) string {
	if s.Ended {
		return graph.End
	}
	return s.NextSpeaker
}

// Run executes one full discussion on the topic. The executor's step ceiling
// is scaled to the turn limit so a routing defect cannot spin forever.
func (d *Discussion) Run(ctx context.Context, topic string, personas []Persona) (State, error) {
	g, err := d.BuildGraph(personas)
	if err != nil {
		return State{}, err
	}
	exec := graph.NewExecutor(g, graph.WithMaxSteps(2*d.cfg.TurnLimit+4))
	return exec.Run(ctx, State{Topic: topic, Personas: personas})
}

// hostTurn is the hub of the cycle: the host reacts, and either closes the
// show (final turn) or picks the next guest uniformly at random.
func (d *Discussion) hostTurn(ctx context.Context, s State) (State, error) {
	var delta State
	turn := s.TurnCount + 1
	closing := turn >= d.cfg.TurnLimit

	next := ""
	if !closing {
		next = s.Personas[d.rng.IntN(len(s.Personas))].Name
	}

	prompt, err := render(hostTmpl, struct {
		Topic       string
		GuestIntros string
		Transcript  string
		Closing     bool
		NextSpeaker string
		HostName    string
	}{s.Topic, guestIntros(s.Personas), transcriptText(s.Transcript), closing, next, d.cfg.HostName})
	if err != nil {
		delta.ErrorMessages = []string{fmt.Sprintf("host turn: %v", err)}
		delta.Ended = true
		return delta, nil
	}

	resp, err := d.client.Complete(ctx, llm.CompletionRequest{Model: d.cfg.Model, Prompt: prompt})
	if err != nil {
		delta.ErrorMessages = []string{fmt.Sprintf("host turn: completion failed: %v", err)}
		delta.Ended = true
		return delta, nil
	}

	slog.Info("host spoke", "turn", turn, "closing", closing, "next", next)

	delta.Transcript = append(append([]string{}, s.Transcript...),
		fmt.Sprintf("Host (%s): %s", d.cfg.HostName, resp.Text))
	delta.TurnCount = turn
	delta.NextSpeaker = next
	delta.Ended = closing
	return delta, nil
}

// playerTurn binds one persona to its node. A failed guest turn is logged and
// play returns to the host rather than ending the show.
func (d *Discussion) playerTurn(p Persona) graph.NodeFunc[State] {
	return func(ctx context.Context, s State) (State, error) {
		var delta State

		prompt, err := render(playerTmpl, struct {
			Topic       string
			GuestNames  string
			Transcript  string
			Name        string
			Description string
			Nature      string
			Experience  string
		}{s.Topic, guestNames(s.Personas), transcriptText(s.Transcript), p.Name, p.Description, p.Nature, p.Experience})
		if err != nil {
			delta.ErrorMessages = []string{fmt.Sprintf("guest turn for %s: %v", p.Name, err)}
			return delta, nil
		}

		resp, err := d.client.Complete(ctx, llm.CompletionRequest{Model: d.cfg.Model, Prompt: prompt})
		if err != nil {
			delta.ErrorMessages = []string{fmt.Sprintf("guest turn for %s: completion failed: %v", p.Name, err)}
			return delta, nil
		}

		slog.Info("guest spoke", "guest", p.Name)

		delta.Transcript = append(append([]string{}, s.Transcript...),
			fmt.Sprintf("Guest (%s): %s", p.Name, resp.Text))
		return delta, nil
	}
}
