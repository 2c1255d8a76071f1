package panel_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossborderlabs/kolgraph/pkg/llm"
	"github.com/crossborderlabs/kolgraph/pkg/panel"
)

type fakeClient struct {
	mu      sync.Mutex
	prompts []string
	fn      func(prompt string) (string, error)
}

func (f *fakeClient) Complete(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, req.Prompt)
	f.mu.Unlock()
	text, err := f.fn(req.Prompt)
	if err != nil {
		return llm.CompletionResponse{}, err
	}
	return llm.CompletionResponse{Text: text}, nil
}

func (f *fakeClient) promptsContaining(substr string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.prompts {
		if strings.Contains(p, substr) {
			n++
		}
	}
	return n
}

func sayOK() *fakeClient {
	return &fakeClient{fn: func(string) (string, error) { return "ok", nil }}
}

var guests = []panel.Persona{
	{Name: "Ada", Description: "mathematician", Nature: "precise", Experience: "wrote the first program"},
	{Name: "Grace", Description: "admiral", Nature: "witty", Experience: "invented the compiler"},
}

func TestNewDiscussion_Defaults(t *testing.T) {
	_, err := panel.NewDiscussion(nil, panel.Config{})
	assert.Error(t, err, "nil client rejected")

	disc, err := panel.NewDiscussion(sayOK(), panel.Config{})
	require.NoError(t, err)
	_ = disc
}

func TestBuildGraph_RequiresPersonas(t *testing.T) {
	disc, err := panel.NewDiscussion(sayOK(), panel.Config{})
	require.NoError(t, err)
	_, err = disc.BuildGraph(nil)
	assert.Error(t, err)
}

func TestRun_EndsAtTurnLimit(t *testing.T) {
	client := sayOK()
	disc, err := panel.NewDiscussion(client, panel.Config{TurnLimit: 2, Seed: 1})
	require.NoError(t, err)

	final, err := disc.Run(context.Background(), "the future of computing", guests)
	require.NoError(t, err)

	assert.True(t, final.Ended)
	assert.Equal(t, 2, final.TurnCount)
	// host opens, one guest speaks, host closes
	require.Len(t, final.Transcript, 3)
	assert.True(t, strings.HasPrefix(final.Transcript[0], "Host (Mia):"), "transcript[0] = %q", final.Transcript[0])
	assert.True(t, strings.HasPrefix(final.Transcript[1], "Guest ("), "transcript[1] = %q", final.Transcript[1])
	assert.True(t, strings.HasPrefix(final.Transcript[2], "Host (Mia):"), "transcript[2] = %q", final.Transcript[2])
	assert.Empty(t, final.ErrorMessages)
}

func TestRun_ClosingTurnNeverRoutesToGuest(t *testing.T) {
	// TurnLimit 1: the host's very first turn is the closing one.
	client := sayOK()
	disc, err := panel.NewDiscussion(client, panel.Config{TurnLimit: 1})
	require.NoError(t, err)

	final, err := disc.Run(context.Background(), "anything", guests)
	require.NoError(t, err)

	assert.True(t, final.Ended)
	require.Len(t, final.Transcript, 1)
	assert.Zero(t, client.promptsContaining("You are playing"), "no guest turn after the close")
}

func TestRun_ReproducibleWithSeed(t *testing.T) {
	run := func(seed uint64) panel.State {
		disc, err := panel.NewDiscussion(sayOK(), panel.Config{TurnLimit: 4, Seed: seed})
		require.NoError(t, err)
		final, err := disc.Run(context.Background(), "reproducibility", guests)
		require.NoError(t, err)
		return final
	}

	a := run(42)
	b := run(42)
	assert.Equal(t, a.Transcript, b.Transcript, "same seed, same speaker sequence")
	assert.True(t, a.Ended)
	assert.Equal(t, 4, a.TurnCount)
}

func TestRun_CustomHostName(t *testing.T) {
	disc, err := panel.NewDiscussion(sayOK(), panel.Config{TurnLimit: 1, HostName: "Jules"})
	require.NoError(t, err)

	final, err := disc.Run(context.Background(), "hosting", guests)
	require.NoError(t, err)
	require.Len(t, final.Transcript, 1)
	assert.True(t, strings.HasPrefix(final.Transcript[0], "Host (Jules):"))
}

func TestRun_HostFailureEndsShow(t *testing.T) {
	client := &fakeClient{fn: func(string) (string, error) {
		return "", fmt.Errorf("provider down")
	}}
	disc, err := panel.NewDiscussion(client, panel.Config{TurnLimit: 3})
	require.NoError(t, err)

	final, err := disc.Run(context.Background(), "resilience", guests)
	require.NoError(t, err, "a failed host turn degrades, not aborts")
	assert.True(t, final.Ended)
	assert.Empty(t, final.Transcript)
	require.Len(t, final.ErrorMessages, 1)
	assert.Contains(t, final.ErrorMessages[0], "host turn: completion failed")
}

func TestRun_GuestFailureReturnsToHost(t *testing.T) {
	client := &fakeClient{fn: func(prompt string) (string, error) {
		if strings.Contains(prompt, "You are playing") {
			return "", fmt.Errorf("mic broke")
		}
		return "ok", nil
	}}
	disc, err := panel.NewDiscussion(client, panel.Config{TurnLimit: 2, Seed: 7})
	require.NoError(t, err)

	final, err := disc.Run(context.Background(), "failure modes", guests)
	require.NoError(t, err)
	assert.True(t, final.Ended)
	assert.Equal(t, 2, final.TurnCount)
	// Both host turns landed; the guest's did not.
	require.Len(t, final.Transcript, 2)
	require.Len(t, final.ErrorMessages, 1)
	assert.Contains(t, final.ErrorMessages[0], "guest turn for")
}

func TestState_MergeLatchesEnded(t *testing.T) {
	s := panel.State{Ended: true, Transcript: []string{"a"}}
	merged := s.Merge(panel.State{Transcript: []string{"a", "b"}})
	assert.True(t, merged.Ended)
	assert.Equal(t, []string{"a", "b"}, merged.Transcript)
}

func TestDescribePersonas_IsolatesFailures(t *testing.T) {
	client := &fakeClient{fn: func(prompt string) (string, error) {
		if strings.Contains(prompt, "Broken") {
			return "", fmt.Errorf("no such figure")
		}
		return `{"name": "Ada", "description": "mathematician", "nature": "precise", "experience": "programs"}`, nil
	}}

	personas, err := panel.DescribePersonas(context.Background(), client, "m", []string{"Ada", "Broken"})
	require.Len(t, personas, 1)
	assert.Equal(t, "Ada", personas[0].Name)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "describe persona Broken")
}

func TestDescribePersonas_MissingKey(t *testing.T) {
	client := &fakeClient{fn: func(string) (string, error) {
		return `{"name": "Ada", "description": "mathematician"}`, nil
	}}
	personas, err := panel.DescribePersonas(context.Background(), client, "m", []string{"Ada"})
	assert.Empty(t, personas)
	assert.Error(t, err)
}
