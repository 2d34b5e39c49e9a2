package graph

import (
	"fmt"
)

// SourceFile is the extraction result for one discovered file
type SourceFile struct {
	ID         NodeID
	Specifiers []string
	// Err is set when specifier extraction failed upstream
	Err error
}

// Builder builds the dependency graph from extracted specifiers
type Builder struct {
	root       string
	aliases    AliasTable
	extensions []string
	exists     FileChecker
}

// BuilderOption configures the builder
type BuilderOption func(*Builder)

// WithExtensions sets the extension lookup order used by the resolver
func WithExtensions(exts []string) BuilderOption {
	return func(b *Builder) {
		b.extensions = exts
	}
}

// WithFileChecker replaces the default existence check (membership in the discovered set)
func WithFileChecker(fn FileChecker) BuilderOption {
	return func(b *Builder) {
		b.exists = fn
	}
}

// NewBuilder creates a new graph builder for the tree rooted at root
func NewBuilder(root string, aliases AliasTable, opts ...BuilderOption) *Builder {
	b := &Builder{
		root:    root,
		aliases: aliases,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build constructs the graph in two passes.
// First pass: one node per file, every specifier resolved into an edge in source order.
// Second pass: incoming sets, visiting nodes in discovery order.
// The graph is returned only after both passes are complete.
func (b *Builder) Build(files []SourceFile) (*Graph, []Diagnostic) {
	g := newGraph(len(files))
	var diags []Diagnostic

	for _, f := range files {
		if g.Has(f.ID) {
			diags = append(diags, Diagnostic{
				Code:    DiagDuplicateFile,
				File:    f.ID,
				Message: fmt.Sprintf("file %s discovered twice, keeping the first", f.ID),
			})
			continue
		}
		g.add(newFileNode(f.ID))
	}

	exists := b.exists
	if exists == nil {
		exists = g.Has
	}
	resolver := NewResolver(b.root, b.aliases, exists, b.extensions)

	filled := make(map[NodeID]bool, len(files))
	for _, f := range files {
		if filled[f.ID] {
			continue
		}
		filled[f.ID] = true
		node := g.nodes[f.ID]

		if f.Err != nil {
			node.failed = true
			diags = append(diags, Diagnostic{
				Code:    DiagExtractionFailed,
				File:    f.ID,
				Message: f.Err.Error(),
			})
			continue
		}

		node.outgoing = make([]Edge, 0, len(f.Specifiers))
		for _, raw := range f.Specifiers {
			target, kind := resolver.Resolve(f.ID, raw)
			if id, ok := target.Node(); ok && !g.Has(id) {
				target = ExternalTarget(string(id))
			}
			node.outgoing = append(node.outgoing, Edge{Raw: raw, Target: target, Kind: kind})
		}
	}

	g.link()
	return g, diags
}
