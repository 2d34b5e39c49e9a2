package graph

import (
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExtensions is the lookup order used when a specifier has no usable extension
var DefaultExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".css"}

// AliasTable maps an alias prefix (e.g. "@app/") to an absolute base directory
type AliasTable map[string]string

type alias struct {
	prefix string
	base   string
}

// FileChecker reports whether a root-relative path is an existing file
type FileChecker func(p NodeID) bool

// Resolver maps raw import specifiers to graph targets
type Resolver struct {
	root       string
	aliases    []alias
	extensions []string
	exists     FileChecker
}

// NewResolver creates a resolver for the tree rooted at root.
// Aliases are tried longest prefix first, so the winner never depends on map order.
func NewResolver(root string, aliases AliasTable, exists FileChecker, extensions []string) *Resolver {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	r := &Resolver{
		root:       filepath.ToSlash(filepath.Clean(root)),
		extensions: extensions,
		exists:     exists,
	}
	for prefix, base := range aliases {
		if prefix == "" {
			continue
		}
		r.aliases = append(r.aliases, alias{prefix: prefix, base: filepath.ToSlash(filepath.Clean(base))})
	}
	sort.Slice(r.aliases, func(i, j int) bool {
		if len(r.aliases[i].prefix) != len(r.aliases[j].prefix) {
			return len(r.aliases[i].prefix) > len(r.aliases[j].prefix)
		}
		return r.aliases[i].prefix < r.aliases[j].prefix
	})
	return r
}

// Resolve maps raw, imported from source, to a target. It never fails:
// relative and aliased specifiers that match no file come back as their normalized path,
// bare specifiers come back as an external reference.
func (r *Resolver) Resolve(source NodeID, raw string) (Target, EdgeKind) {
	if a, ok := r.matchAlias(raw); ok {
		abs := path.Join(a.base, strings.TrimPrefix(raw, a.prefix))
		return NodeTarget(r.lookup(r.relative(abs))), EdgeKindAliased
	}

	if IsRelativeSpecifier(raw) {
		candidate := path.Join(path.Dir(string(source)), raw)
		return NodeTarget(r.lookup(NodeID(candidate))), EdgeKindRelative
	}

	return ExternalTarget(raw), EdgeKindBare
}

func (r *Resolver) matchAlias(raw string) (alias, bool) {
	for _, a := range r.aliases {
		if strings.HasPrefix(raw, a.prefix) {
			return a, true
		}
	}
	return alias{}, false
}

// lookup tries candidate+ext for every extension, then candidate/index+ext
func (r *Resolver) lookup(candidate NodeID) NodeID {
	if r.exists == nil {
		return candidate
	}
	for _, ext := range r.extensions {
		if p := NodeID(string(candidate) + ext); r.exists(p) {
			return p
		}
	}
	for _, ext := range r.extensions {
		if p := NodeID(path.Join(string(candidate), "index"+ext)); r.exists(p) {
			return p
		}
	}
	return candidate
}

// relative converts an absolute slash path to a root-relative id
func (r *Resolver) relative(abs string) NodeID {
	if abs == r.root {
		return "."
	}
	if strings.HasPrefix(abs, r.root+"/") {
		return NodeID(abs[len(r.root)+1:])
	}
	rel, err := filepath.Rel(filepath.FromSlash(r.root), filepath.FromSlash(abs))
	if err != nil {
		return NodeID(abs)
	}
	return NodeID(filepath.ToSlash(rel))
}
