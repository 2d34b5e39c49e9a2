package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zheng/modgraph/internal/graph"
	"go.uber.org/goleak"
	"golang.org/x/tools/txtar"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// writeTree materializes a txtar archive into a temporary directory
func writeTree(t *testing.T, archive string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range txtar.Parse([]byte(archive)).Files {
		p := filepath.Join(dir, filepath.FromSlash(f.Name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, f.Data, 0o644))
	}
	return dir
}

const reactProject = `
-- tsconfig.json --
{
  // comments and trailing commas are fine
  "compilerOptions": {
    "baseUrl": ".",
    "paths": {
      "@/*": ["src/*"],
    },
  },
}
-- src/index.js --
import React from 'react';
import App from './App';
import './index.css';
-- src/App.tsx --
import Button from '@/components/Button';
import { useThing } from "./hooks";
export * from './types';
const lazy = () => import('./pages/Lazy');
-- src/components/Button.tsx --
import cx from 'classnames';
const fmt = require('../utils/format');
-- src/hooks/index.ts --
export { default } from '../App';
-- src/types.ts --
export type Id = string;
-- src/pages/Lazy.jsx --
export default function Lazy() { return <div />; }
-- src/utils/format.js --
module.exports = function format(x) { return String(x); };
-- src/utils/format.test.js --
import format from './format';
-- src/broken.js --
import { from 'nowhere';
-- node_modules/react/index.js --
module.exports = {};
`

func TestAnalyze_ReactProject(t *testing.T) {
	root := writeTree(t, reactProject)

	res, err := Analyze(context.Background(), Options{Root: root, Workers: 2})
	require.NoError(t, err)
	g := res.Graph

	assert.Equal(t, []graph.NodeID{
		"src/App.tsx",
		"src/broken.js",
		"src/components/Button.tsx",
		"src/hooks/index.ts",
		"src/index.js",
		"src/pages/Lazy.jsx",
		"src/types.ts",
		"src/utils/format.js",
	}, g.IDs(), "lexical walk order, tests and node_modules excluded")

	app, _ := g.Node("src/App.tsx")
	var targets []string
	for _, e := range app.Outgoing() {
		targets = append(targets, e.Target.String())
	}
	assert.Equal(t, []string{"src/components/Button.tsx", "src/hooks/index.ts", "src/types.ts", "src/pages/Lazy.jsx"}, targets)

	button, _ := g.Node("src/components/Button.tsx")
	require.Len(t, button.Outgoing(), 2)
	assert.Equal(t, graph.ExternalTarget("classnames"), button.Outgoing()[0].Target)
	assert.Equal(t, graph.NodeTarget("src/utils/format.js"), button.Outgoing()[1].Target)

	broken, _ := g.Node("src/broken.js")
	assert.True(t, broken.ExtractionFailed())
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, graph.DiagExtractionFailed, res.Diagnostics[0].Code)

	assert.Equal(t, filepath.Join(root, "tsconfig.json"), res.AliasSource)
	for _, f := range res.Files {
		if f.Err == nil {
			assert.NotZero(t, f.Hash, f.ID)
		}
	}
}

func TestExtract_Forms(t *testing.T) {
	e, err := NewExtractor()
	require.NoError(t, err)
	defer e.Close()

	src := []byte(`
import a from "a";
import "side-effect";
import * as ns from './ns';
export { x } from "./x";
export * from "./all";
const b = require('b');
const c = someFn('not-a-module');
const d = import("./dynamic");
const e = require(variable);
const f = import(` + "`./template`" + `);
`)
	specs, err := e.Extract("file.js", src)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "side-effect", "./ns", "./x", "./all", "b", "./dynamic"}, specs)
}

func TestExtract_TypeScript(t *testing.T) {
	e, err := NewExtractor()
	require.NoError(t, err)
	defer e.Close()

	specs, err := e.Extract("c.tsx", []byte(`
import type { Props } from './props';
import React from 'react';
export const C = (p: Props) => <div>{p.name}</div>;
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"./props", "react"}, specs)
}

func TestExtract_Failures(t *testing.T) {
	e, err := NewExtractor()
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Extract("bad.js", []byte("import { from 'x';"))
	assert.ErrorIs(t, err, ErrMalformedSource)

	_, err = e.Extract("style.css", []byte("a {}"))
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
	assert.False(t, e.Supports("style.css"))
	assert.True(t, e.Supports("a.MJS"))
}

func TestScan_SourceDirAndExclude(t *testing.T) {
	root := writeTree(t, `
-- lib/a.js --
-- lib/gen/b.js --
-- lib/c.ts --
-- other/d.js --
`)
	files, err := NewScanner(root, WithSourceDir("lib"), WithExclude([]string{"lib/gen/**", "gen"})).Scan(context.Background())
	require.NoError(t, err)
	var ids []graph.NodeID
	for _, f := range files {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []graph.NodeID{"lib/a.js", "lib/c.ts"}, ids)

	// without src/ the root itself is walked
	assert.Equal(t, root, NewScanner(root).SourceRoot())
}

func TestScan_Cancelled(t *testing.T) {
	root := writeTree(t, "-- src/a.js --\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewScanner(root).Scan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseAliases(t *testing.T) {
	table, err := ParseAliases("/repo", []byte(`{
  "compilerOptions": {
    "baseUrl": "./src",
    "paths": {
      "@app/*": ["app/*", "fallback/*"],
      "@config": ["config/index.ts"],
      "*": ["types/*"]
    }
  }
}`))
	require.NoError(t, err)
	assert.Equal(t, graph.AliasTable{
		"@app/":   filepath.Join("/repo", "src", "app"),
		"@config": filepath.Join("/repo", "src", "config", "index.ts"),
	}, table)

	merged := MergeAliases("/repo", table, map[string]string{"@app/": "lib/app", "~/": "/abs"})
	assert.Equal(t, filepath.Join("/repo", "lib", "app"), merged["@app/"])
	assert.Equal(t, "/abs", merged["~/"])
}

func TestReadAliases_Missing(t *testing.T) {
	table, source, err := ReadAliases(t.TempDir(), "")
	require.NoError(t, err)
	assert.Empty(t, table)
	assert.Empty(t, source)
}
