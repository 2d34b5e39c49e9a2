package analyzer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/zheng/modgraph/internal/graph"
)

// DefaultSourceExtensions are the file extensions scanned for import specifiers
var DefaultSourceExtensions = []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs"}

// DefaultExclude are the glob patterns skipped while scanning.
// A pattern matches either the root-relative path or the base name.
var DefaultExclude = []string{
	"node_modules",
	"dist",
	"build",
	"coverage",
	".git",
	".storybook",
	"__tests__",
	"*.d.ts",
	"*.test.*",
	"*.spec.*",
	"*.stories.*",
}

// File is one scanned source file
type File struct {
	ID   graph.NodeID
	Path string
	// Hash is the xxhash of the file content, filled in by the extractor
	Hash       uint64
	Specifiers []string
	Err        error
}

// Source returns the graph builder input for the file
func (f File) Source() graph.SourceFile {
	return graph.SourceFile{ID: f.ID, Specifiers: f.Specifiers, Err: f.Err}
}

// Scanner walks a project tree and collects source files
type Scanner struct {
	root       string
	sourceDir  string
	extensions []string
	exclude    []string
	logger     *slog.Logger
}

// ScanOption configures the scanner
type ScanOption func(*Scanner)

// WithSourceDir restricts the walk to dir (relative to the root); ids stay root-relative
func WithSourceDir(dir string) ScanOption {
	return func(s *Scanner) {
		s.sourceDir = dir
	}
}

// WithSourceExtensions sets which files are scanned
func WithSourceExtensions(exts []string) ScanOption {
	return func(s *Scanner) {
		if len(exts) > 0 {
			s.extensions = exts
		}
	}
}

// WithExclude sets the exclusion globs
func WithExclude(patterns []string) ScanOption {
	return func(s *Scanner) {
		s.exclude = patterns
	}
}

// WithScanLogger sets the logger
func WithScanLogger(logger *slog.Logger) ScanOption {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// NewScanner creates a scanner for the project at root
func NewScanner(root string, opts ...ScanOption) *Scanner {
	s := &Scanner{
		root:       root,
		extensions: DefaultSourceExtensions,
		exclude:    DefaultExclude,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SourceRoot returns the directory actually walked: the configured source dir,
// else "src" when it exists, else the root itself
func (s *Scanner) SourceRoot() string {
	if s.sourceDir != "" {
		return filepath.Join(s.root, s.sourceDir)
	}
	src := filepath.Join(s.root, "src")
	if info, err := os.Stat(src); err == nil && info.IsDir() {
		return src
	}
	return s.root
}

// Scan walks the source directory in lexical order. The walk order is the discovery order of the graph.
func (s *Scanner) Scan(ctx context.Context) ([]File, error) {
	walkRoot := s.SourceRoot()
	info, err := os.Stat(walkRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source directory is not a directory: %s", walkRoot)
	}

	var files []File
	err = filepath.WalkDir(walkRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if p != walkRoot && s.excluded(rel) {
			s.logger.Debug("excluded", "path", rel)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !s.wanted(rel) {
			return nil
		}
		files = append(files, File{ID: graph.NodeID(rel), Path: p})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", walkRoot, err)
	}

	s.logger.Debug("scan complete", "root", walkRoot, "files", len(files))
	return files, nil
}

func (s *Scanner) excluded(rel string) bool {
	base := path.Base(rel)
	for _, pattern := range s.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

func (s *Scanner) wanted(rel string) bool {
	for _, ext := range s.extensions {
		if strings.HasSuffix(rel, ext) {
			return true
		}
	}
	return false
}
