package graph

// NodeID is the canonical, root-relative, slash-separated path of a source file.
type NodeID string

// FileNode is one source file in the dependency graph.
// Incoming is a set (insertion ordered), Outgoing preserves duplicates and source order.
type FileNode struct {
	id       NodeID
	incoming []NodeID
	inSet    map[NodeID]struct{}
	outgoing []Edge
	failed   bool
}

func newFileNode(id NodeID) *FileNode {
	return &FileNode{
		id:    id,
		inSet: make(map[NodeID]struct{}),
	}
}

// ID returns the node id
func (n *FileNode) ID() NodeID {
	return n.id
}

// Incoming returns the ids of files that import this file, in stable order
func (n *FileNode) Incoming() []NodeID {
	out := make([]NodeID, len(n.incoming))
	copy(out, n.incoming)
	return out
}

// Outgoing returns the file's edges in source order
func (n *FileNode) Outgoing() []Edge {
	out := make([]Edge, len(n.outgoing))
	copy(out, n.outgoing)
	return out
}

// InDegree returns the size of the incoming set
func (n *FileNode) InDegree() int {
	return len(n.incoming)
}

// OutDegree returns the number of outgoing edges, duplicates included
func (n *FileNode) OutDegree() int {
	return len(n.outgoing)
}

// HasIncoming reports whether from is in the incoming set
func (n *FileNode) HasIncoming(from NodeID) bool {
	_, ok := n.inSet[from]
	return ok
}

// ExtractionFailed reports whether the upstream extraction step failed for this file
func (n *FileNode) ExtractionFailed() bool {
	return n.failed
}

// addIncoming is only called while the graph is being assembled
func (n *FileNode) addIncoming(from NodeID) {
	if _, ok := n.inSet[from]; ok {
		return
	}
	n.inSet[from] = struct{}{}
	n.incoming = append(n.incoming, from)
}
