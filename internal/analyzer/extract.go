package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"unsafe"

	"github.com/cespare/xxhash/v2"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrMalformedSource is returned when a file does not parse
	ErrMalformedSource = errors.New("malformed source")
	// ErrUnsupportedLanguage is returned for file extensions without a grammar
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// specifierQuery captures every string literal that names a module:
// static imports, re-exports, require() and dynamic import().
const specifierQuery = `
(import_statement source: (string) @source)
(export_statement source: (string) @source)
(call_expression
  function: (identifier) @callee
  arguments: (arguments . (string) @source))
(call_expression
  function: (import)
  arguments: (arguments . (string) @source))
`

type language struct {
	name  string
	lang  *tree_sitter.Language
	query *tree_sitter.Query
}

// Extractor pulls raw import specifiers out of JS/TS sources with tree-sitter
type Extractor struct {
	languages map[string]*language
	workers   int
	logger    *slog.Logger
}

// ExtractorOption configures the extractor
type ExtractorOption func(*Extractor)

// WithWorkers sets how many files are parsed concurrently
func WithWorkers(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithExtractLogger sets the logger
func WithExtractLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// NewExtractor compiles the specifier queries for every supported grammar.
// Close must be called to release them.
func NewExtractor(opts ...ExtractorOption) (*Extractor, error) {
	e := &Extractor{
		languages: make(map[string]*language),
		workers:   runtime.NumCPU(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	javascript, err := newLanguage("javascript", tree_sitter_javascript.Language(), specifierQuery)
	if err != nil {
		return nil, err
	}
	typescript, err := newLanguage("typescript", tree_sitter_typescript.LanguageTypescript(), specifierQuery)
	if err != nil {
		javascript.query.Close()
		return nil, err
	}
	tsx, err := newLanguage("tsx", tree_sitter_typescript.LanguageTSX(), specifierQuery)
	if err != nil {
		javascript.query.Close()
		typescript.query.Close()
		return nil, err
	}

	// the javascript grammar covers JSX
	for _, ext := range []string{".js", ".jsx", ".mjs", ".cjs"} {
		e.languages[ext] = javascript
	}
	e.languages[".ts"] = typescript
	e.languages[".mts"] = typescript
	e.languages[".cts"] = typescript
	e.languages[".tsx"] = tsx
	return e, nil
}

func newLanguage(name string, ptr unsafe.Pointer, source string) (*language, error) {
	lang := tree_sitter.NewLanguage(ptr)
	query, qerr := tree_sitter.NewQuery(lang, source)
	if qerr != nil {
		return nil, fmt.Errorf("failed to compile %s query: %v", name, qerr)
	}
	return &language{name: name, lang: lang, query: query}, nil
}

// Close releases the compiled queries
func (e *Extractor) Close() {
	seen := make(map[*language]bool)
	for _, l := range e.languages {
		if seen[l] {
			continue
		}
		seen[l] = true
		l.query.Close()
	}
}

// Supports reports whether a grammar exists for the file name
func (e *Extractor) Supports(name string) bool {
	_, ok := e.languages[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Extract returns the import specifiers of one source file, in source order.
// A file whose syntax tree contains errors yields ErrMalformedSource.
func (e *Extractor) Extract(name string, content []byte) ([]string, error) {
	l, ok := e.languages[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, name)
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(l.lang); err != nil {
		return nil, fmt.Errorf("failed to set %s grammar: %w", l.name, err)
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("%w: %s: parser returned no tree", ErrMalformedSource, name)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("%w: %s: syntax error near line %d", ErrMalformedSource, name, firstErrorLine(root))
	}

	qc := tree_sitter.NewQueryCursor()
	defer qc.Close()
	matches := qc.Matches(l.query, root, content)
	captureNames := l.query.CaptureNames()

	type found struct {
		start uint
		text  string
	}
	var specs []found
	for {
		match := matches.Next()
		if match == nil {
			break
		}
		var source *tree_sitter.Node
		callee := ""
		for i := range match.Captures {
			c := match.Captures[i]
			switch captureNames[c.Index] {
			case "source":
				node := c.Node
				source = &node
			case "callee":
				callee = c.Node.Utf8Text(content)
			}
		}
		if source == nil {
			continue
		}
		// plain function calls only count when the function is require
		if callee != "" && callee != "require" {
			continue
		}
		specs = append(specs, found{start: source.StartByte(), text: unquote(source.Utf8Text(content))})
	}

	sort.SliceStable(specs, func(i, j int) bool { return specs[i].start < specs[j].start })
	out := make([]string, 0, len(specs))
	var last uint
	for i, s := range specs {
		// the same literal can be captured by more than one pattern
		if i > 0 && s.start == last {
			continue
		}
		last = s.start
		out = append(out, s.text)
	}
	return out, nil
}

// ExtractAll reads and parses files concurrently. Failures are recorded on the file
// (File.Err) rather than returned; the returned error is only set on cancellation.
func (e *Extractor) ExtractAll(ctx context.Context, files []File) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i := range files {
		f := &files[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(f.Path)
			if err != nil {
				f.Err = fmt.Errorf("failed to read %s: %w", f.ID, err)
				e.logger.Warn("read failed", "file", f.ID, "error", err)
				return nil
			}
			f.Hash = xxhash.Sum64(content)
			specs, err := e.Extract(f.Path, content)
			if err != nil {
				f.Err = err
				e.logger.Warn("extraction failed", "file", f.ID, "error", err)
				return nil
			}
			f.Specifiers = specs
			e.logger.Debug("extracted", "file", f.ID, "specifiers", len(specs))
			return nil
		})
	}
	return g.Wait()
}

func firstErrorLine(node *tree_sitter.Node) uint {
	if node.IsError() || node.IsMissing() {
		return node.StartPosition().Row + 1
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.HasError() {
			return firstErrorLine(child)
		}
	}
	return node.StartPosition().Row + 1
}

func unquote(s string) string {
	if len(s) >= 2 {
		switch s[0] {
		case '"', '\'', '`':
			if s[len(s)-1] == s[0] {
				return s[1 : len(s)-1]
			}
		}
	}
	return s
}
