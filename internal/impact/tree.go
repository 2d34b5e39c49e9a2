package impact

import (
	"math"

	"github.com/zheng/modgraph/internal/graph"
)

// TreeNode represents a file in a dependency tree with its children
type TreeNode struct {
	ID       graph.NodeID `json:"id"`
	Cycle    bool         `json:"cycle,omitempty"`
	Seen     bool         `json:"seen,omitempty"`
	Children []*TreeNode  `json:"children,omitempty"`
}

// DependencyTree builds the tree of files imported by id, down to maxDepth levels (0 = no limit).
// A file that already appears on the path from the root is marked as a cycle and not expanded.
// A file whose subtree was already expanded elsewhere in the tree is marked as seen and
// not expanded again, so the tree stays linear in the size of the graph.
func (a *Analyzer) DependencyTree(id graph.NodeID, maxDepth int) []*TreeNode {
	return newTreeBuilder(a.g.Successors).build(id, maxDepth)
}

// DependentTree builds the tree of files importing id
func (a *Analyzer) DependentTree(id graph.NodeID, maxDepth int) []*TreeNode {
	return newTreeBuilder(a.g.Predecessors).build(id, maxDepth)
}

type treeBuilder struct {
	next func(graph.NodeID) []graph.NodeID
	path map[graph.NodeID]bool
	// expanded holds the depth budget each file's children were built with
	expanded map[graph.NodeID]int
}

func newTreeBuilder(next func(graph.NodeID) []graph.NodeID) *treeBuilder {
	return &treeBuilder{
		next:     next,
		path:     make(map[graph.NodeID]bool),
		expanded: make(map[graph.NodeID]int),
	}
}

func (b *treeBuilder) build(root graph.NodeID, maxDepth int) []*TreeNode {
	budget := maxDepth
	if budget <= 0 {
		budget = math.MaxInt
	}
	b.path[root] = true
	b.expanded[root] = budget
	return b.expand(root, budget)
}

func (b *treeBuilder) expand(id graph.NodeID, budget int) []*TreeNode {
	below := budget
	if budget != math.MaxInt {
		below = budget - 1
	}

	children := b.next(id)
	result := make([]*TreeNode, 0, len(children))
	for _, child := range children {
		node := &TreeNode{ID: child}
		switch {
		case b.path[child]:
			node.Cycle = true
		case budget == 1:
		case b.expanded[child] >= below:
			node.Seen = len(b.next(child)) > 0
		default:
			// a shallower revisit of a depth-limited tree expands again with the larger budget
			b.expanded[child] = below
			b.path[child] = true
			node.Children = b.expand(child, below)
			delete(b.path, child)
		}
		result = append(result, node)
	}
	return result
}
