package graph_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/crossborderlabs/kolgraph/pkg/graph"
)

// testState is a minimal state for exercising the engine: Visits records node
// execution order (overwrite on merge, like any set field), Route steers
// conditional edges, and Errs appends.
type testState struct {
	Visits []string
	Route  string
	Errs   []string
}

func (s testState) Merge(d testState) testState {
	if d.Visits != nil {
		s.Visits = d.Visits
	}
	if d.Route != "" {
		s.Route = d.Route
	}
	s.Errs = append(s.Errs, d.Errs...)
	return s
}

// visit returns a node that appends its own name to Visits.
func visit(name string) graph.NodeFunc[testState] {
	return func(_ context.Context, s testState) (testState, error) {
		return testState{Visits: append(append([]string{}, s.Visits...), name)}, nil
	}
}

// ─── Builder tests ────────────────────────────────────────────────────────────

func TestCompile_Valid(t *testing.T) {
	g, err := graph.NewBuilder[testState]("ok").
		AddNode("a", visit("a")).
		AddNode("b", visit("b")).
		AddEdge("a", "b").
		AddEdge("b", graph.End).
		SetEntryPoint("a").
		Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if g.Name() != "ok" {
		t.Errorf("Name = %q, want %q", g.Name(), "ok")
	}
	if g.EntryPoint() != "a" {
		t.Errorf("EntryPoint = %q, want %q", g.EntryPoint(), "a")
	}
}

func TestCompile_NoEntryPoint(t *testing.T) {
	_, err := graph.NewBuilder[testState]("bad").
		AddNode("a", visit("a")).
		Compile()
	if err == nil {
		t.Fatal("expected error for missing entry point")
	}
}

func TestCompile_ReservedNodeName(t *testing.T) {
	_, err := graph.NewBuilder[testState]("bad").
		AddNode(graph.End, visit("x")).
		SetEntryPoint(graph.End).
		Compile()
	if err == nil {
		t.Fatal("expected error for reserved node name")
	}
}

func TestCompile_DuplicateNode(t *testing.T) {
	_, err := graph.NewBuilder[testState]("bad").
		AddNode("a", visit("a")).
		AddNode("a", visit("a")).
		SetEntryPoint("a").
		Compile()
	if err == nil || !strings.Contains(err.Error(), "registered twice") {
		t.Fatalf("err = %v, want duplicate-node error", err)
	}
}

func TestCompile_UnknownEdgeTarget(t *testing.T) {
	_, err := graph.NewBuilder[testState]("bad").
		AddNode("a", visit("a")).
		AddEdge("a", "ghost").
		SetEntryPoint("a").
		Compile()
	if err == nil || !strings.Contains(err.Error(), "unknown target") {
		t.Fatalf("err = %v, want unknown-target error", err)
	}
}

func TestCompile_UnreachableNode(t *testing.T) {
	_, err := graph.NewBuilder[testState]("bad").
		AddNode("a", visit("a")).
		AddNode("island", visit("island")).
		AddEdge("a", graph.End).
		SetEntryPoint("a").
		Compile()
	if err == nil || !strings.Contains(err.Error(), "not reachable") {
		t.Fatalf("err = %v, want unreachable-node error", err)
	}
}

func TestCompile_CollectsAllErrors(t *testing.T) {
	_, err := graph.NewBuilder[testState]("bad").
		AddNode("a", visit("a")).
		AddNode("a", visit("a")).
		AddEdge("a", "ghost").
		Compile()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"registered twice", "unknown target", "no entry point"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestCompile_SecondOutgoingEdgeRejected(t *testing.T) {
	_, err := graph.NewBuilder[testState]("bad").
		AddNode("a", visit("a")).
		AddNode("b", visit("b")).
		AddNode("c", visit("c")).
		AddEdge("a", "b").
		AddEdge("a", "c").
		AddEdge("b", "c").
		SetEntryPoint("a").
		Compile()
	if err == nil || !strings.Contains(err.Error(), "already has an outgoing edge") {
		t.Fatalf("err = %v, want duplicate-edge error", err)
	}
}

// ─── Executor tests ───────────────────────────────────────────────────────────

func TestRun_LinearOrder(t *testing.T) {
	g, err := graph.NewBuilder[testState]("linear").
		AddNode("a", visit("a")).
		AddNode("b", visit("b")).
		AddNode("c", visit("c")).
		AddEdge("a", "b").
		AddEdge("b", "c").
		AddEdge("c", graph.End).
		SetEntryPoint("a").
		Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	final, err := graph.NewExecutor(g).Run(context.Background(), testState{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := strings.Join(final.Visits, ","), "a,b,c"; got != want {
		t.Errorf("visits = %q, want %q", got, want)
	}
}

func TestRun_MissingEdgeTerminates(t *testing.T) {
	// "b" has no outgoing edge; the run must end after it.
	g, err := graph.NewBuilder[testState]("dangling").
		AddNode("a", visit("a")).
		AddNode("b", visit("b")).
		AddEdge("a", "b").
		SetEntryPoint("a").
		Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	final, err := graph.NewExecutor(g).Run(context.Background(), testState{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := strings.Join(final.Visits, ","), "a,b"; got != want {
		t.Errorf("visits = %q, want %q", got, want)
	}
}

func TestRun_ConditionalRouting(t *testing.T) {
	route := func(s testState) string {
		if s.Route == "left" {
			return "left"
		}
		return graph.End
	}
	build := func() (*graph.Graph[testState], error) {
		return graph.NewBuilder[testState]("cond").
			AddNode("a", visit("a")).
			AddNode("left", visit("left")).
			AddConditionalEdge("a", route, "left", graph.End).
			AddEdge("left", graph.End).
			SetEntryPoint("a").
			Compile()
	}

	g, err := build()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	final, err := graph.NewExecutor(g).Run(context.Background(), testState{Route: "left"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := strings.Join(final.Visits, ","), "a,left"; got != want {
		t.Errorf("visits = %q, want %q", got, want)
	}

	final, err = graph.NewExecutor(g).Run(context.Background(), testState{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := strings.Join(final.Visits, ","), "a"; got != want {
		t.Errorf("visits = %q, want %q", got, want)
	}
}

func TestRun_RouteToUnknownNodeFails(t *testing.T) {
	// The route returns a node outside its declared targets; execution must
	// fail rather than jump somewhere undefined.
	g, err := graph.NewBuilder[testState]("rogue").
		AddNode("a", visit("a")).
		AddNode("b", visit("b")).
		AddConditionalEdge("a", func(testState) string { return "ghost" }, "b", graph.End).
		AddEdge("b", graph.End).
		SetEntryPoint("a").
		Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	_, err = graph.NewExecutor(g).Run(context.Background(), testState{})
	if err == nil || !strings.Contains(err.Error(), "unknown node") {
		t.Fatalf("err = %v, want unknown-node routing error", err)
	}
}

func TestRun_StepLimitOnCycle(t *testing.T) {
	g, err := graph.NewBuilder[testState]("cycle").
		AddNode("a", visit("a")).
		AddNode("b", visit("b")).
		AddEdge("a", "b").
		AddEdge("b", "a").
		SetEntryPoint("a").
		Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	final, err := graph.NewExecutor(g, graph.WithMaxSteps(7)).Run(context.Background(), testState{})
	var limitErr *graph.StepLimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("err = %v, want *StepLimitError", err)
	}
	if limitErr.Limit != 7 {
		t.Errorf("limit = %d, want 7", limitErr.Limit)
	}
	// Exactly maxSteps nodes ran before the ceiling hit.
	if len(final.Visits) != 7 {
		t.Errorf("visits = %d, want 7", len(final.Visits))
	}
}

func TestRun_NodeErrorIsFatal(t *testing.T) {
	boom := errors.New("boom")
	g, err := graph.NewBuilder[testState]("fatal").
		AddNode("a", visit("a")).
		AddNode("b", func(context.Context, testState) (testState, error) {
			return testState{}, boom
		}).
		AddNode("c", visit("c")).
		AddEdge("a", "b").
		AddEdge("b", "c").
		AddEdge("c", graph.End).
		SetEntryPoint("a").
		Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	final, err := graph.NewExecutor(g).Run(context.Background(), testState{})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
	if got, want := strings.Join(final.Visits, ","), "a"; got != want {
		t.Errorf("visits = %q, want %q", got, want)
	}
}

func TestRun_ErrorLogAppends(t *testing.T) {
	logErr := func(msg string) graph.NodeFunc[testState] {
		return func(_ context.Context, _ testState) (testState, error) {
			return testState{Errs: []string{msg}}, nil
		}
	}
	g, err := graph.NewBuilder[testState]("errs").
		AddNode("a", logErr("first")).
		AddNode("b", logErr("second")).
		AddEdge("a", "b").
		AddEdge("b", graph.End).
		SetEntryPoint("a").
		Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	final, err := graph.NewExecutor(g).Run(context.Background(), testState{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := strings.Join(final.Errs, ","), "first,second"; got != want {
		t.Errorf("errs = %q, want %q", got, want)
	}
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g, err := graph.NewBuilder[testState]("cancel").
		AddNode("a", func(_ context.Context, s testState) (testState, error) {
			cancel() // cancel mid-run; the next iteration must observe it
			return testState{Visits: append(append([]string{}, s.Visits...), "a")}, nil
		}).
		AddNode("b", visit("b")).
		AddEdge("a", "b").
		AddEdge("b", graph.End).
		SetEntryPoint("a").
		Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	final, err := graph.NewExecutor(g).Run(ctx, testState{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if got, want := strings.Join(final.Visits, ","), "a"; got != want {
		t.Errorf("visits = %q, want %q", got, want)
	}
}

// ─── DOT tests ────────────────────────────────────────────────────────────────

func TestDOT_RendersStructure(t *testing.T) {
	g, err := graph.NewBuilder[testState]("render_me").
		AddNode("a", visit("a")).
		AddNode("b", visit("b")).
		AddConditionalEdge("a", func(testState) string { return "b" }, "b", graph.End).
		AddEdge("b", graph.End).
		SetEntryPoint("a").
		Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	dot, err := g.DOT()
	if err != nil {
		t.Fatalf("DOT: %v", err)
	}
	for _, want := range []string{"digraph", "render_me", "a", "b", "end", "dashed", "peripheries"} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT output missing %q:\n%s", want, dot)
		}
	}
}
