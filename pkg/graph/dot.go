package graph

import (
	"fmt"

	gographviz "github.com/awalterschulze/gographviz"
)

// DOT renders the graph in Graphviz DOT form. The entry node is drawn with a
// double border, conditional edges are dashed with one edge per declared
// target, and terminal edges point at a synthetic end node.
func (g *Graph[S]) DOT() (string, error) {
	viz := gographviz.NewEscape()
	if err := viz.SetName(g.name); err != nil {
		return "", fmt.Errorf("dot: set name: %w", err)
	}
	if err := viz.SetDir(true); err != nil {
		return "", fmt.Errorf("dot: set directed: %w", err)
	}

	for _, name := range g.order {
		attrs := map[string]string{"shape": "box"}
		if name == g.entry {
			attrs["peripheries"] = "2"
		}
		if err := viz.AddNode(g.name, name, attrs); err != nil {
			return "", fmt.Errorf("dot: add node %q: %w", name, err)
		}
	}

	if g.hasTerminalEdge() {
		if err := viz.AddNode(g.name, "end", map[string]string{"shape": "doublecircle"}); err != nil {
			return "", fmt.Errorf("dot: add end node: %w", err)
		}
	}

	addEdge := func(from, to string, attrs map[string]string) error {
		if to == End {
			to = "end"
		}
		return viz.AddEdge(from, to, true, attrs)
	}

	for _, from := range g.order {
		e, ok := g.edges[from]
		if !ok {
			if err := addEdge(from, End, nil); err != nil {
				return "", fmt.Errorf("dot: add edge from %q: %w", from, err)
			}
			continue
		}
		if e.route == nil {
			if err := addEdge(from, e.to, nil); err != nil {
				return "", fmt.Errorf("dot: add edge from %q: %w", from, err)
			}
			continue
		}
		for _, t := range e.targets {
			if err := addEdge(from, t, map[string]string{"style": "dashed"}); err != nil {
				return "", fmt.Errorf("dot: add conditional edge from %q: %w", from, err)
			}
		}
	}

	return viz.String(), nil
}

// hasTerminalEdge reports whether any node terminates the graph, either via
// an explicit End target or by having no outgoing edge at all.
func (g *Graph[S]) hasTerminalEdge() bool {
	for _, name := range g.order {
		e, ok := g.edges[name]
		if !ok {
			return true
		}
		if e.route == nil {
			if e.to == End {
				return true
			}
			continue
		}
		for _, t := range e.targets {
			if t == End {
				return true
			}
		}
	}
	return false
}
