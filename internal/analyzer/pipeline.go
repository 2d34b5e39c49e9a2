package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/zheng/modgraph/internal/graph"
)

// Options controls one analysis run
type Options struct {
	Root              string
	SourceDir         string
	SourceExtensions  []string
	ResolveExtensions []string
	Exclude           []string
	Aliases           map[string]string
	TSConfig          string
	Workers           int
	Logger            *slog.Logger
}

// Result is the output of Analyze
type Result struct {
	Root        string
	Graph       *graph.Graph
	Files       []File
	Aliases     graph.AliasTable
	AliasSource string
	Diagnostics []graph.Diagnostic
}

// Analyze scans the project, extracts specifiers and builds the dependency graph
func Analyze(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}

	tsAliases, aliasSource, err := ReadAliases(root, opts.TSConfig)
	if err != nil {
		return nil, err
	}
	aliases := MergeAliases(root, tsAliases, opts.Aliases)
	if aliasSource != "" {
		logger.Debug("aliases loaded", "file", aliasSource, "count", len(tsAliases))
	}

	scanOpts := []ScanOption{WithSourceDir(opts.SourceDir), WithScanLogger(logger), WithSourceExtensions(opts.SourceExtensions)}
	if opts.Exclude != nil {
		scanOpts = append(scanOpts, WithExclude(opts.Exclude))
	}
	files, err := NewScanner(root, scanOpts...).Scan(ctx)
	if err != nil {
		return nil, err
	}

	extractor, err := NewExtractor(WithWorkers(opts.Workers), WithExtractLogger(logger))
	if err != nil {
		return nil, err
	}
	defer extractor.Close()
	if err := extractor.ExtractAll(ctx, files); err != nil {
		return nil, err
	}

	sources := make([]graph.SourceFile, len(files))
	for i, f := range files {
		sources[i] = f.Source()
	}
	g, diags := graph.NewBuilder(root, aliases, graph.WithExtensions(opts.ResolveExtensions)).Build(sources)
	logger.Info("graph built", "files", g.Len(), "edges", g.EdgeCount(), "resolved", g.ResolvedEdgeCount(), "diagnostics", len(diags))

	return &Result{
		Root:        root,
		Graph:       g,
		Files:       files,
		Aliases:     aliases,
		AliasSource: aliasSource,
		Diagnostics: diags,
	}, nil
}
