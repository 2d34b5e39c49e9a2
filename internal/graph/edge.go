package graph

import "strings"

// EdgeKind represents how a raw specifier was interpreted
type EdgeKind string

const (
	EdgeKindRelative EdgeKind = "relative"
	EdgeKindAliased  EdgeKind = "aliased"
	EdgeKindBare     EdgeKind = "bare"
)

// TargetKind tags the two shapes an edge target can take
type TargetKind uint8

const (
	// TargetExternal is an opaque reference: a package name, or a path with no node behind it
	TargetExternal TargetKind = iota
	// TargetNode names a file. Inside a built Graph it is always a member of the node set.
	TargetNode
)

func (k TargetKind) String() string {
	switch k {
	case TargetNode:
		return "node"
	default:
		return "external"
	}
}

// Target is the resolved side of an edge
type Target struct {
	Kind  TargetKind
	value string
}

// NodeTarget returns a target naming a file
func NodeTarget(id NodeID) Target {
	return Target{Kind: TargetNode, value: string(id)}
}

// ExternalTarget returns an opaque target that keeps ref verbatim
func ExternalTarget(ref string) Target {
	return Target{Kind: TargetExternal, value: ref}
}

// Node returns the node id when the target is a file
func (t Target) Node() (NodeID, bool) {
	if t.Kind != TargetNode {
		return "", false
	}
	return NodeID(t.value), true
}

// IsNode reports whether the target is a file
func (t Target) IsNode() bool {
	return t.Kind == TargetNode
}

// String returns the value written to the snapshot's resolvedPath
func (t Target) String() string {
	return t.value
}

// Edge is one import statement of a file
type Edge struct {
	Raw    string
	Target Target
	Kind   EdgeKind
}

// IsRelativeSpecifier reports whether raw starts with a path-relative marker
func IsRelativeSpecifier(raw string) bool {
	return raw == "." || raw == ".." ||
		strings.HasPrefix(raw, "./") || strings.HasPrefix(raw, "../")
}
