// Package graph implements a small stateful directed-graph execution engine.
// A graph is a set of named nodes over a single state type; each node returns
// a partial state ("delta") that the executor merges into the running state
// before following the node's outgoing edge. Edges are either unconditional
// or carry a routing predicate that picks the next node from the merged state.
package graph

import (
	"context"
	"fmt"
)

// End is the reserved routing target that terminates execution.
const End = "__end__"

// State is the constraint every pipeline state type must satisfy.
// Merge applies a delta to the receiver: set fields overwrite (last writer
// wins), unset fields leave the receiver untouched, and error logs append.
type State[S any] interface {
	Merge(delta S) S
}

// NodeFunc executes one unit of work. It receives the current state and
// returns a delta to merge. A non-nil error is fatal to the whole run;
// recoverable failures belong in the state's error log instead.
type NodeFunc[S State[S]] func(ctx context.Context, s S) (S, error)

// RouteFunc inspects the merged state and returns the name of the next node,
// or End to terminate.
type RouteFunc[S State[S]] func(s S) string

type edge[S State[S]] struct {
	to      string
	route   RouteFunc[S]
	targets []string // declared destinations of a conditional edge
}

// Graph is a compiled, immutable pipeline definition. Build one with Builder.
type Graph[S State[S]] struct {
	name  string
	entry string
	nodes map[string]NodeFunc[S]
	edges map[string]edge[S]
	order []string // node names in registration order
}

// Name returns the graph's name.
func (g *Graph[S]) Name() string { return g.name }

// EntryPoint returns the name of the entry node.
func (g *Graph[S]) EntryPoint() string { return g.entry }

// Builder assembles a Graph. Errors are collected and reported by Compile so
// call sites can chain additions without per-call checks.
type Builder[S State[S]] struct {
	g    *Graph[S]
	errs []error
}

// NewBuilder creates a Builder for a named graph.
func NewBuilder[S State[S]](name string) *Builder[S] {
	return &Builder[S]{
		g: &Graph[S]{
			name:  name,
			nodes: make(map[string]NodeFunc[S]),
			edges: make(map[string]edge[S]),
		},
	}
}

// AddNode registers a node under name.
func (b *Builder[S]) AddNode(name string, fn NodeFunc[S]) *Builder[S] {
	switch {
	case name == "" || name == End:
		b.errs = append(b.errs, fmt.Errorf("node name %q is reserved", name))
	case fn == nil:
		b.errs = append(b.errs, fmt.Errorf("node %q: nil NodeFunc", name))
	default:
		if _, dup := b.g.nodes[name]; dup {
			b.errs = append(b.errs, fmt.Errorf("node %q registered twice", name))
			return b
		}
		b.g.nodes[name] = fn
		b.g.order = append(b.g.order, name)
	}
	return b
}

// AddEdge registers an unconditional edge from -> to. Use End as the target
// to terminate after from; omitting an edge entirely has the same effect.
func (b *Builder[S]) AddEdge(from, to string) *Builder[S] {
	if _, dup := b.g.edges[from]; dup {
		b.errs = append(b.errs, fmt.Errorf("node %q already has an outgoing edge", from))
		return b
	}
	b.g.edges[from] = edge[S]{to: to}
	return b
}

// AddConditionalEdge registers a routing predicate on from. The predicate
// must return one of targets or End; targets are declared up front so the
// graph can be validated and rendered without evaluating the predicate.
func (b *Builder[S]) AddConditionalEdge(from string, route RouteFunc[S], targets ...string) *Builder[S] {
	if route == nil {
		b.errs = append(b.errs, fmt.Errorf("node %q: nil RouteFunc", from))
		return b
	}
	if _, dup := b.g.edges[from]; dup {
		b.errs = append(b.errs, fmt.Errorf("node %q already has an outgoing edge", from))
		return b
	}
	b.g.edges[from] = edge[S]{route: route, targets: targets}
	return b
}

// SetEntryPoint names the node execution starts from.
func (b *Builder[S]) SetEntryPoint(name string) *Builder[S] {
	b.g.entry = name
	return b
}

// Compile validates the graph and returns it. All structural errors are
// reported together, not just the first.
func (b *Builder[S]) Compile() (*Graph[S], error) {
	errs := b.errs

	if b.g.entry == "" {
		errs = append(errs, fmt.Errorf("no entry point set"))
	} else if _, ok := b.g.nodes[b.g.entry]; !ok {
		errs = append(errs, fmt.Errorf("entry point %q is not a registered node", b.g.entry))
	}

	for from, e := range b.g.edges {
		if _, ok := b.g.nodes[from]; !ok {
			errs = append(errs, fmt.Errorf("edge leaves unknown node %q", from))
		}
		if e.route == nil {
			if e.to != End {
				if _, ok := b.g.nodes[e.to]; !ok {
					errs = append(errs, fmt.Errorf("edge %q -> %q: unknown target", from, e.to))
				}
			}
			continue
		}
		for _, t := range e.targets {
			if t == End {
				continue
			}
			if _, ok := b.g.nodes[t]; !ok {
				errs = append(errs, fmt.Errorf("conditional edge from %q: unknown target %q", from, t))
			}
		}
	}

	// Every node must be reachable from the entry point.
	if b.g.entry != "" {
		reachable := b.g.reachableFromEntry()
		for _, name := range b.g.order {
			if !reachable[name] {
				errs = append(errs, fmt.Errorf("node %q is not reachable from entry point %q", name, b.g.entry))
			}
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("graph %q validation failed: %w", b.g.name, joinErrors(errs))
	}
	return b.g, nil
}

// reachableFromEntry returns the set of node names reachable from the entry
// via declared edges (conditional edges contribute their declared targets).
func (g *Graph[S]) reachableFromEntry() map[string]bool {
	visited := make(map[string]bool)
	queue := []string{g.entry}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == End || visited[cur] {
			continue
		}
		visited[cur] = true
		e, ok := g.edges[cur]
		if !ok {
			continue
		}
		if e.route == nil {
			queue = append(queue, e.to)
			continue
		}
		queue = append(queue, e.targets...)
	}
	return visited
}

func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	msg := errs[0].Error()
	for _, e := range errs[1:] {
		msg += "; " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}
