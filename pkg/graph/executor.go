package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// DefaultMaxSteps bounds node visits per run, guarding against runaway cycles.
const DefaultMaxSteps = 50

// Executor drives a compiled Graph. Execution is strictly sequential: one
// node at a time, merge, route, repeat. The state is owned by the executor
// for the duration of a run; no two runs share a state value.
type Executor[S State[S]] struct {
	graph    *Graph[S]
	maxSteps int
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*executorOptions)

type executorOptions struct {
	maxSteps int
}

// WithMaxSteps overrides the step ceiling (default DefaultMaxSteps).
func WithMaxSteps(n int) ExecutorOption {
	return func(o *executorOptions) {
		if n > 0 {
			o.maxSteps = n
		}
	}
}

// NewExecutor creates an Executor for g.
func NewExecutor[S State[S]](g *Graph[S], opts ...ExecutorOption) *Executor[S] {
	o := executorOptions{maxSteps: DefaultMaxSteps}
	for _, opt := range opts {
		opt(&o)
	}
	return &Executor[S]{graph: g, maxSteps: o.maxSteps}
}

// Run executes the graph from its entry point over initial and returns the
// final state. Node deltas are merged even when the node logged errors —
// partial success is first-class. Run fails only on context cancellation,
// a node returning a non-nil error, a routing fault, or the step ceiling.
func (e *Executor[S]) Run(ctx context.Context, initial S) (S, error) {
	state := initial
	cursor := e.graph.entry
	runID := uuid.NewString()[:8]

	slog.Info("graph run starting", "graph", e.graph.name, "run", runID, "entry", cursor)

	for step := 1; ; step++ {
		// Respect cancellation between nodes.
		select {
		case <-ctx.Done():
			return state, fmt.Errorf("graph %q: cancelled at node %q: %w", e.graph.name, cursor, ctx.Err())
		default:
		}

		if step > e.maxSteps {
			return state, &StepLimitError{Graph: e.graph.name, Node: cursor, Limit: e.maxSteps}
		}

		node, ok := e.graph.nodes[cursor]
		if !ok {
			return state, fmt.Errorf("graph %q: node %q not found", e.graph.name, cursor)
		}

		slog.Info("executing node", "graph", e.graph.name, "run", runID, "node", cursor, "step", step)

		delta, err := node(ctx, state)
		if err != nil {
			return state, fmt.Errorf("graph %q: node %q: %w", e.graph.name, cursor, err)
		}
		state = state.Merge(delta)

		next, err := e.selectNext(cursor, state)
		if err != nil {
			return state, fmt.Errorf("graph %q: %w", e.graph.name, err)
		}
		if next == End {
			slog.Info("graph run complete", "graph", e.graph.name, "run", runID, "steps", step)
			return state, nil
		}
		cursor = next
	}
}

// selectNext resolves the outgoing edge of nodeName against the merged state.
// A missing edge terminates the run.
func (e *Executor[S]) selectNext(nodeName string, state S) (string, error) {
	edge, ok := e.graph.edges[nodeName]
	if !ok {
		return End, nil
	}
	if edge.route == nil {
		return edge.to, nil
	}
	next := edge.route(state)
	if next == End {
		return End, nil
	}
	if _, ok := e.graph.nodes[next]; !ok {
		return "", fmt.Errorf("node %q: route returned unknown node %q", nodeName, next)
	}
	return next, nil
}
