// SPDX-License-Identifier: MPL-2.0

// Package dag provides directed graph operations for topological ordering and
// cycle detection. It orders the packs of a composition graph so that every
// parent precedes the packs extending it.
package dag

import (
	"fmt"
	"strings"
)

type (
	// CycleError indicates that the graph contains a cycle, preventing topological ordering.
	CycleError[K comparable] struct {
		// Cycle is a closed path: the first and last element are the same node,
		// so a self-loop on A is reported as [A A].
		Cycle []K
	}

	// Graph is a directed graph keyed by K. An edge from A to B means A must
	// be ordered before B.
	Graph[K comparable] struct {
		// adjacency maps each node to its outgoing neighbors.
		adjacency map[K][]K
		// nodes tracks all nodes in insertion order for deterministic output.
		nodes []K
		// nodeSet provides O(1) lookup for node existence.
		nodeSet map[K]bool
		// edgeSet drops duplicate edges.
		edgeSet map[[2]K]bool
	}
)

func (e *CycleError[K]) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, node := range e.Cycle {
		parts[i] = fmt.Sprint(node)
	}
	return fmt.Sprintf("cycle detected: %s", strings.Join(parts, " -> "))
}

// New creates an empty Graph.
func New[K comparable]() *Graph[K] {
	return &Graph[K]{
		adjacency: make(map[K][]K),
		nodeSet:   make(map[K]bool),
		edgeSet:   make(map[[2]K]bool),
	}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph[K]) AddNode(node K) {
	if g.nodeSet[node] {
		return
	}
	g.nodeSet[node] = true
	g.nodes = append(g.nodes, node)
}

// AddEdge adds a directed edge from -> to. Both nodes are implicitly added if
// they don't exist, and repeated edges are ignored.
func (g *Graph[K]) AddEdge(from, to K) {
	g.AddNode(from)
	g.AddNode(to)
	key := [2]K{from, to}
	if g.edgeSet[key] {
		return
	}
	g.edgeSet[key] = true
	g.adjacency[from] = append(g.adjacency[from], to)
}

// Has reports whether node is in the graph.
func (g *Graph[K]) Has(node K) bool { return g.nodeSet[node] }

// Len returns the number of nodes.
func (g *Graph[K]) Len() int { return len(g.nodes) }

// Nodes returns all nodes in insertion order.
func (g *Graph[K]) Nodes() []K {
	out := make([]K, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Successors returns the targets of node's outgoing edges in insertion order.
func (g *Graph[K]) Successors(node K) []K {
	out := make([]K, len(g.adjacency[node]))
	copy(out, g.adjacency[node])
	return out
}

// TopologicalSort returns an order using Kahn's algorithm, or a CycleError
// carrying one concrete cycle. Nodes at the same topological level appear in
// the order they were first added to the graph.
func (g *Graph[K]) TopologicalSort() ([]K, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[K]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node] = 0
	}
	for _, neighbors := range g.adjacency {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	// Seed the queue with nodes that have no incoming edges, in insertion order.
	queue := make([]K, 0, len(g.nodes))
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := make([]K, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range g.adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	if len(result) != len(g.nodes) {
		if cycle := g.FindCycle(); cycle != nil {
			return nil, &CycleError[K]{Cycle: cycle}
		}
	}

	return result, nil
}

// FindCycle returns the first cycle reached by a depth-first walk that starts
// from nodes in insertion order, as a closed path, or nil if the graph is
// acyclic.
func (g *Graph[K]) FindCycle() []K {
	const (
		unvisited = iota
		onStack
		done
	)
	state := make(map[K]int, len(g.nodes))
	var stack []K

	var visit func(node K) []K
	visit = func(node K) []K {
		state[node] = onStack
		stack = append(stack, node)
		for _, next := range g.adjacency[node] {
			switch state[next] {
			case onStack:
				start := len(stack) - 1
				for stack[start] != next {
					start--
				}
				cycle := make([]K, 0, len(stack)-start+1)
				cycle = append(cycle, stack[start:]...)
				return append(cycle, next)
			case unvisited:
				if cycle := visit(next); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[node] = done
		return nil
	}

	for _, node := range g.nodes {
		if state[node] == unvisited {
			if cycle := visit(node); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
