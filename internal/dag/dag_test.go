// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"
)

func TestTopologicalSort_EmptyGraph(t *testing.T) {
	t.Parallel()
	g := New[string]()
	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != nil {
		t.Errorf("expected nil, got %v", order)
	}
}

func TestTopologicalSort_LinearChain(t *testing.T) {
	t.Parallel()
	g := New[string]()
	// base -> error -> cli: every parent precedes its extender.
	g.AddEdge("base", "error")
	g.AddEdge("error", "cli")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"base", "error", "cli"}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestTopologicalSort_Diamond(t *testing.T) {
	t.Parallel()
	g := New[string]()
	g.AddNode("root")
	g.AddEdge("left", "root")
	g.AddEdge("right", "root")
	g.AddEdge("base", "left")
	g.AddEdge("base", "right")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"base", "left", "right", "root"}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestTopologicalSort_InsertionOrderTieBreak(t *testing.T) {
	t.Parallel()
	g := New[int]()
	for _, n := range []int{3, 1, 2} {
		g.AddNode(n)
	}

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []int{3, 1, 2}) {
		t.Errorf("expected insertion order, got %v", order)
	}
}

func TestTopologicalSort_Cycles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		edges [][2]string
		want  []string
	}{
		{"self loop", [][2]string{{"A", "A"}}, []string{"A", "A"}},
		{"two nodes", [][2]string{{"A", "B"}, {"B", "A"}}, []string{"A", "B", "A"}},
		{"three nodes", [][2]string{{"A", "B"}, {"B", "C"}, {"C", "A"}}, []string{"A", "B", "C", "A"}},
		{"cycle behind a tail", [][2]string{{"T", "A"}, {"A", "B"}, {"B", "A"}}, []string{"A", "B", "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := New[string]()
			for _, e := range tt.edges {
				g.AddEdge(e[0], e[1])
			}

			_, err := g.TopologicalSort()
			var cycleErr *CycleError[string]
			if !errors.As(err, &cycleErr) {
				t.Fatalf("expected *CycleError, got %T: %v", err, err)
			}
			if !slices.Equal(cycleErr.Cycle, tt.want) {
				t.Errorf("Cycle = %v, want %v", cycleErr.Cycle, tt.want)
			}
		})
	}
}

func TestFindCycle_Acyclic(t *testing.T) {
	t.Parallel()
	g := New[string]()
	g.AddEdge("A", "B")
	g.AddEdge("A", "C")
	g.AddEdge("B", "C")

	if cycle := g.FindCycle(); cycle != nil {
		t.Errorf("expected no cycle, got %v", cycle)
	}
}

func TestAddEdge_Duplicates(t *testing.T) {
	t.Parallel()
	g := New[string]()
	g.AddEdge("A", "B")
	g.AddEdge("A", "B")

	if got := g.Successors("A"); !slices.Equal(got, []string{"B"}) {
		t.Errorf("Successors(A) = %v, want [B]", got)
	}
	if g.Len() != 2 || !g.Has("A") || g.Has("Z") {
		t.Errorf("unexpected node set %v", g.Nodes())
	}
}

func TestCycleError_Message(t *testing.T) {
	t.Parallel()
	err := &CycleError[string]{Cycle: []string{"A", "B", "A"}}
	expected := "cycle detected: A -> B -> A"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}
