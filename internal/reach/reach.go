// Package reach computes transitive reachability over a dependency graph.
//
// The graph is condensed into strongly connected components first; the reach of a
// component is computed once from its successor components and cached, so every
// answer is independent of the order in which nodes are queried.
package reach

import (
	"github.com/zheng/modgraph/internal/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Direction selects which edges are followed
type Direction int

const (
	// Dependencies follows outgoing edges: everything a file pulls in
	Dependencies Direction = iota
	// Dependents follows incoming edges: everything that pulls a file in
	Dependents
)

func (d Direction) String() string {
	if d == Dependents {
		return "dependents"
	}
	return "dependencies"
}

// Table holds the reachable set of every node of one graph
type Table struct {
	g         *graph.Graph
	direction Direction

	comp    []int    // node index -> component
	members []bitset // component -> member nodes
	reach   []bitset // component -> nodes reachable from the component, members excluded
	counts  []int    // node index -> reachable count
}

// Forward returns the table of transitive dependencies
func Forward(g *graph.Graph) *Table {
	return compute(g, Dependencies)
}

// Reverse returns the table of transitive dependents
func Reverse(g *graph.Graph) *Table {
	return compute(g, Dependents)
}

func compute(g *graph.Graph, dir Direction) *Table {
	n := g.Len()
	adj := make([][]int, n)
	dg := simple.NewDirectedGraph()
	for i := 0; i < n; i++ {
		dg.AddNode(simple.Node(i))
	}
	for i := 0; i < n; i++ {
		id := g.At(i)
		next := g.Successors(id)
		if dir == Dependents {
			next = g.Predecessors(id)
		}
		for _, to := range next {
			j, ok := g.Index(to)
			// simple graphs reject self loops; a node never reaches itself anyway
			if !ok || j == i {
				continue
			}
			adj[i] = append(adj[i], j)
			dg.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(j)})
		}
	}

	sccs := topo.TarjanSCC(dg)
	t := &Table{
		g:         g,
		direction: dir,
		comp:      make([]int, n),
		members:   make([]bitset, len(sccs)),
		reach:     make([]bitset, len(sccs)),
		counts:    make([]int, n),
	}
	for c, nodes := range sccs {
		t.members[c] = newBitset(n)
		for _, node := range nodes {
			i := int(node.ID())
			t.comp[i] = c
			t.members[c].set(i)
		}
	}

	// components' member lists, used to walk successor components
	compNodes := make([][]int, len(sccs))
	for i := 0; i < n; i++ {
		compNodes[t.comp[i]] = append(compNodes[t.comp[i]], i)
	}

	var visit func(c int) bitset
	visit = func(c int) bitset {
		if t.reach[c] != nil {
			return t.reach[c]
		}
		set := newBitset(n)
		for _, i := range compNodes[c] {
			for _, j := range adj[i] {
				d := t.comp[j]
				if d == c {
					continue
				}
				set.or(t.members[d])
				set.or(visit(d))
			}
		}
		t.reach[c] = set
		return set
	}

	for c := range sccs {
		visit(c)
	}
	for i := 0; i < n; i++ {
		c := t.comp[i]
		t.counts[i] = len(compNodes[c]) - 1 + t.reach[c].count()
	}
	return t
}

// Direction reports which edges the table follows
func (t *Table) Direction() Direction {
	return t.direction
}

// Count returns the number of nodes reachable from id, id itself excluded.
// Unknown ids have a count of zero.
func (t *Table) Count(id graph.NodeID) int {
	i, ok := t.g.Index(id)
	if !ok {
		return 0
	}
	return t.counts[i]
}

// Reachable returns the nodes reachable from id in discovery order
func (t *Table) Reachable(id graph.NodeID) []graph.NodeID {
	i, ok := t.g.Index(id)
	if !ok {
		return nil
	}
	c := t.comp[i]
	out := make([]graph.NodeID, 0, t.counts[i])
	set := newBitset(t.g.Len())
	set.or(t.members[c])
	set.or(t.reach[c])
	set.each(func(j int) {
		if j != i {
			out = append(out, t.g.At(j))
		}
	})
	return out
}

// Reaches reports whether to is reachable from from
func (t *Table) Reaches(from, to graph.NodeID) bool {
	i, ok := t.g.Index(from)
	if !ok {
		return false
	}
	j, ok := t.g.Index(to)
	if !ok || i == j {
		return false
	}
	c := t.comp[i]
	return t.members[c].has(j) || t.reach[c].has(j)
}

// Cyclic reports whether id shares a strongly connected component with another node
func (t *Table) Cyclic(id graph.NodeID) bool {
	i, ok := t.g.Index(id)
	if !ok {
		return false
	}
	return t.members[t.comp[i]].count() > 1
}

// Cycles returns every strongly connected component with more than one member,
// each in discovery order, ordered by the discovery position of the first member
func (t *Table) Cycles() [][]graph.NodeID {
	var out [][]graph.NodeID
	seen := make(map[int]bool)
	for i := 0; i < t.g.Len(); i++ {
		c := t.comp[i]
		if seen[c] {
			continue
		}
		seen[c] = true
		if t.members[c].count() < 2 {
			continue
		}
		var cycle []graph.NodeID
		t.members[c].each(func(j int) {
			cycle = append(cycle, t.g.At(j))
		})
		out = append(out, cycle)
	}
	return out
}

// Entry is one node and its reachable count
type Entry struct {
	ID    graph.NodeID `json:"id"`
	Count int          `json:"count"`
}

// Counts returns every node with its count, in discovery order
func (t *Table) Counts() []Entry {
	out := make([]Entry, t.g.Len())
	for i := range out {
		out[i] = Entry{ID: t.g.At(i), Count: t.counts[i]}
	}
	return out
}
