package graph

import "fmt"

// Graph is the module dependency graph of one source tree.
// It is populated completely before it is handed out and never changes afterwards,
// so any number of readers may share it.
type Graph struct {
	order []NodeID
	index map[NodeID]int
	nodes map[NodeID]*FileNode
}

func newGraph(capacity int) *Graph {
	return &Graph{
		order: make([]NodeID, 0, capacity),
		index: make(map[NodeID]int, capacity),
		nodes: make(map[NodeID]*FileNode, capacity),
	}
}

func (g *Graph) add(n *FileNode) {
	g.index[n.id] = len(g.order)
	g.order = append(g.order, n.id)
	g.nodes[n.id] = n
}

// link fills every incoming set from the outgoing edges, visiting nodes in discovery order.
// A self import stays on the outgoing list but never enters the node's own incoming set.
func (g *Graph) link() {
	for _, id := range g.order {
		for _, e := range g.nodes[id].outgoing {
			if to, ok := e.Target.Node(); ok && to != id {
				g.nodes[to].addIncoming(id)
			}
		}
	}
}

// Len returns the number of files
func (g *Graph) Len() int {
	return len(g.order)
}

// IDs returns all node ids in discovery order
func (g *Graph) IDs() []NodeID {
	out := make([]NodeID, len(g.order))
	copy(out, g.order)
	return out
}

// At returns the id of the i-th discovered node
func (g *Graph) At(i int) NodeID {
	return g.order[i]
}

// Index returns the discovery position of id
func (g *Graph) Index(id NodeID) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Has reports whether id is a node of the graph
func (g *Graph) Has(id NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns the file node for id
func (g *Graph) Node(id NodeID) (*FileNode, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Successors returns the distinct files id imports, in first-import order.
// Self imports are dropped.
func (g *Graph) Successors(id NodeID) []NodeID {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	var out []NodeID
	seen := make(map[NodeID]struct{})
	for _, e := range n.outgoing {
		to, ok := e.Target.Node()
		if !ok || to == id {
			continue
		}
		if _, dup := seen[to]; dup {
			continue
		}
		seen[to] = struct{}{}
		out = append(out, to)
	}
	return out
}

// Predecessors returns the incoming set of id
func (g *Graph) Predecessors(id NodeID) []NodeID {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return n.Incoming()
}

// EdgeCount returns the total number of outgoing edges
func (g *Graph) EdgeCount() int {
	total := 0
	for _, n := range g.nodes {
		total += len(n.outgoing)
	}
	return total
}

// ResolvedEdgeCount returns the number of outgoing edges that point at a node
func (g *Graph) ResolvedEdgeCount() int {
	total := 0
	for _, n := range g.nodes {
		for _, e := range n.outgoing {
			if e.Target.IsNode() {
				total++
			}
		}
	}
	return total
}

// Equal reports structural equality: same nodes in the same order,
// same edges in the same order and the same incoming sets.
func (g *Graph) Equal(other *Graph) bool {
	if g.Len() != other.Len() {
		return false
	}
	for i, id := range g.order {
		if other.order[i] != id {
			return false
		}
		a, b := g.nodes[id], other.nodes[id]
		if len(a.outgoing) != len(b.outgoing) || len(a.incoming) != len(b.incoming) {
			return false
		}
		for j := range a.outgoing {
			if a.outgoing[j] != b.outgoing[j] {
				return false
			}
		}
		for j := range a.incoming {
			if a.incoming[j] != b.incoming[j] {
				return false
			}
		}
		if a.failed != b.failed {
			return false
		}
	}
	return true
}

// NodeRecord is the pre-resolved form of a node, as persisted in a snapshot or database
type NodeRecord struct {
	ID               NodeID
	Edges            []EdgeRecord
	ExtractionFailed bool
}

// EdgeRecord is a persisted edge. Resolved is either a node id or an opaque string;
// an empty Kind is inferred from Raw and Resolved. External pins the target to an
// external reference even when Resolved happens to name a node.
type EdgeRecord struct {
	Raw      string
	Resolved string
	Kind     EdgeKind
	External bool
}

// Assemble builds a graph from persisted records. Every Resolved value is checked
// against the node set; values that name no node become external targets.
// Bare edges stay external even when a file shares the package name.
func Assemble(records []NodeRecord) (*Graph, []Diagnostic) {
	g := newGraph(len(records))
	var diags []Diagnostic

	for _, rec := range records {
		if g.Has(rec.ID) {
			diags = append(diags, Diagnostic{
				Code:    DiagDuplicateFile,
				File:    rec.ID,
				Message: fmt.Sprintf("duplicate node %s ignored", rec.ID),
			})
			continue
		}
		n := newFileNode(rec.ID)
		n.failed = rec.ExtractionFailed
		g.add(n)
	}

	filled := make(map[NodeID]bool, len(records))
	for _, rec := range records {
		if filled[rec.ID] {
			continue
		}
		filled[rec.ID] = true
		n := g.nodes[rec.ID]
		n.outgoing = make([]Edge, 0, len(rec.Edges))
		for _, er := range rec.Edges {
			kind := er.Kind
			if kind == "" {
				kind = inferKind(er.Raw, er.Resolved)
			}
			target := ExternalTarget(er.Resolved)
			if !er.External && kind != EdgeKindBare && g.Has(NodeID(er.Resolved)) {
				target = NodeTarget(NodeID(er.Resolved))
			}
			n.outgoing = append(n.outgoing, Edge{Raw: er.Raw, Target: target, Kind: kind})
		}
	}

	g.link()
	return g, diags
}

// Records returns the persisted form of the graph in discovery order
func (g *Graph) Records() []NodeRecord {
	out := make([]NodeRecord, 0, len(g.order))
	for _, id := range g.order {
		n := g.nodes[id]
		rec := NodeRecord{ID: id, ExtractionFailed: n.failed, Edges: make([]EdgeRecord, 0, len(n.outgoing))}
		for _, e := range n.outgoing {
			rec.Edges = append(rec.Edges, EdgeRecord{
				Raw:      e.Raw,
				Resolved: e.Target.String(),
				Kind:     e.Kind,
				External: !e.Target.IsNode(),
			})
		}
		out = append(out, rec)
	}
	return out
}

func inferKind(raw, resolved string) EdgeKind {
	switch {
	case IsRelativeSpecifier(raw):
		return EdgeKindRelative
	case raw == resolved:
		return EdgeKindBare
	default:
		return EdgeKindAliased
	}
}
