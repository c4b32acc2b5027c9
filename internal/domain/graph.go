package domain

import (
	"context"
	"sort"
)

// End is the terminal edge target. Routing a node to End finishes the turn.
const End = "__end__"

type NodeFunc func(ctx context.Context, state ConversationState) (ConversationState, error)

type RouterFunc func(state ConversationState) string

type NodeSpec struct {
	Name string
	Fn   NodeFunc
}

type EdgeSpec struct {
	From string
	To   string
}

// RouterSpec binds a conditional router to a node. The router must return
// one of Targets; anything else fails the turn as a configuration error.
type RouterSpec struct {
	Node    string
	Fn      RouterFunc
	Targets []string
}

type GraphSpec struct {
	Start           string
	Nodes           []NodeSpec
	Edges           []EdgeSpec
	Routers         []RouterSpec
	InterruptBefore []string
}

// Graph is the validated, immutable form of a GraphSpec.
type Graph struct {
	start      string
	nodes      map[string]NodeFunc
	edges      map[string]string
	routers    map[string]routerBinding
	interrupts map[string]struct{}
}

type routerBinding struct {
	fn      RouterFunc
	targets map[string]struct{}
}

// BuildGraph validates a GraphSpec for closure and returns an immutable
// graph. Every structural defect is a configuration error raised here,
// never during execution: unknown edge endpoints, duplicate nodes, nodes
// without an outgoing edge or router, router targets that do not exist,
// interrupt names that do not exist.
func BuildGraph(spec GraphSpec) (*Graph, error) {
	g := &Graph{
		start:      spec.Start,
		nodes:      make(map[string]NodeFunc, len(spec.Nodes)),
		edges:      make(map[string]string, len(spec.Edges)),
		routers:    make(map[string]routerBinding, len(spec.Routers)),
		interrupts: make(map[string]struct{}, len(spec.InterruptBefore)),
	}

	for _, n := range spec.Nodes {
		if n.Name == "" || n.Name == End {
			return nil, Error{
				Type:    ErrorTypeConfiguration,
				Message: "invalid node name",
				Details: map[string]interface{}{"name": n.Name},
			}
		}
		if n.Fn == nil {
			return nil, Error{
				Type:    ErrorTypeConfiguration,
				Message: "node has no function",
				Details: map[string]interface{}{"name": n.Name},
			}
		}
		if _, dup := g.nodes[n.Name]; dup {
			return nil, Error{
				Type:    ErrorTypeConfiguration,
				Message: "duplicate node name",
				Details: map[string]interface{}{"name": n.Name},
			}
		}
		g.nodes[n.Name] = n.Fn
	}

	if spec.Start == "" {
		return nil, Error{Type: ErrorTypeConfiguration, Message: "graph has no start node"}
	}
	if _, ok := g.nodes[spec.Start]; !ok {
		return nil, Error{
			Type:    ErrorTypeConfiguration,
			Message: "start node does not exist",
			Details: map[string]interface{}{"start": spec.Start},
		}
	}

	for _, e := range spec.Edges {
		if _, ok := g.nodes[e.From]; !ok {
			return nil, Error{
				Type:    ErrorTypeConfiguration,
				Message: "edge from unknown node",
				Details: map[string]interface{}{"from": e.From, "to": e.To},
			}
		}
		if e.To != End {
			if _, ok := g.nodes[e.To]; !ok {
				return nil, Error{
					Type:    ErrorTypeConfiguration,
					Message: "edge to unknown node",
					Details: map[string]interface{}{"from": e.From, "to": e.To},
				}
			}
		}
		if _, dup := g.edges[e.From]; dup {
			return nil, Error{
				Type:    ErrorTypeConfiguration,
				Message: "node has multiple static edges",
				Details: map[string]interface{}{"from": e.From},
			}
		}
		g.edges[e.From] = e.To
	}

	for _, r := range spec.Routers {
		if _, ok := g.nodes[r.Node]; !ok {
			return nil, Error{
				Type:    ErrorTypeConfiguration,
				Message: "router on unknown node",
				Details: map[string]interface{}{"node": r.Node},
			}
		}
		if r.Fn == nil {
			return nil, Error{
				Type:    ErrorTypeConfiguration,
				Message: "router has no function",
				Details: map[string]interface{}{"node": r.Node},
			}
		}
		if _, hasEdge := g.edges[r.Node]; hasEdge {
			return nil, Error{
				Type:    ErrorTypeConfiguration,
				Message: "node has both a static edge and a router",
				Details: map[string]interface{}{"node": r.Node},
			}
		}
		if _, dup := g.routers[r.Node]; dup {
			return nil, Error{
				Type:    ErrorTypeConfiguration,
				Message: "node has multiple routers",
				Details: map[string]interface{}{"node": r.Node},
			}
		}
		if len(r.Targets) == 0 {
			return nil, Error{
				Type:    ErrorTypeConfiguration,
				Message: "router declares no targets",
				Details: map[string]interface{}{"node": r.Node},
			}
		}
		targets := make(map[string]struct{}, len(r.Targets))
		for _, t := range r.Targets {
			if t != End {
				if _, ok := g.nodes[t]; !ok {
					return nil, Error{
						Type:    ErrorTypeConfiguration,
						Message: "router target does not exist",
						Details: map[string]interface{}{"node": r.Node, "target": t},
					}
				}
			}
			targets[t] = struct{}{}
		}
		g.routers[r.Node] = routerBinding{fn: r.Fn, targets: targets}
	}

	for name := range g.nodes {
		_, hasEdge := g.edges[name]
		_, hasRouter := g.routers[name]
		if !hasEdge && !hasRouter {
			return nil, Error{
				Type:    ErrorTypeConfiguration,
				Message: "node has no outgoing edge",
				Details: map[string]interface{}{"node": name},
			}
		}
	}

	for _, name := range spec.InterruptBefore {
		if _, ok := g.nodes[name]; !ok {
			return nil, Error{
				Type:    ErrorTypeConfiguration,
				Message: "interrupt on unknown node",
				Details: map[string]interface{}{"node": name},
			}
		}
		g.interrupts[name] = struct{}{}
	}

	return g, nil
}

func (g *Graph) Start() string {
	return g.start
}

func (g *Graph) Node(name string) (NodeFunc, bool) {
	fn, ok := g.nodes[name]
	return fn, ok
}

func (g *Graph) HasNode(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

func (g *Graph) Size() int {
	return len(g.nodes)
}

// Successor resolves the outgoing edge of a node against the given state.
// Routers fail closed: a returned name outside the declared target set is
// a configuration error.
func (g *Graph) Successor(name string, state ConversationState) (string, error) {
	if to, ok := g.edges[name]; ok {
		return to, nil
	}
	r, ok := g.routers[name]
	if !ok {
		return "", Error{
			Type:    ErrorTypeConfiguration,
			Message: "node has no outgoing edge",
			Details: map[string]interface{}{"node": name},
		}
	}
	to := r.fn(state)
	if _, declared := r.targets[to]; !declared {
		return "", Error{
			Type:    ErrorTypeConfiguration,
			Message: "router returned undeclared target",
			Details: map[string]interface{}{"node": name, "target": to},
		}
	}
	return to, nil
}

// Interrupts returns the interrupt-before node names, sorted.
func (g *Graph) Interrupts() []string {
	names := make([]string, 0, len(g.interrupts))
	for name := range g.interrupts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
