package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load("", dir)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.RootDirectory)
	assert.Equal(t, 20, cfg.TopN)
	assert.Equal(t, []string{"index.js", "index.tsx", "App.js", "App.tsx"}, cfg.PriorityEntryNames)
	assert.Equal(t, filepath.Join(dir, "dependencyGraph.json"), cfg.Resolve(cfg.OutputPath))
}

func TestLoad_ExplicitMissingIsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	assert.Error(t, err)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`
rootDirectory: web
topN: 5
priorityEntryNames: [main.ts]
aliases:
  "@/": src
server:
  port: 9000
`), 0o644))

	cfg, err := Load("", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "web"), cfg.RootDirectory)
	assert.Equal(t, 5, cfg.TopN)
	assert.Equal(t, []string{"main.ts"}, cfg.PriorityEntryNames)
	assert.Equal(t, map[string]string{"@/": "src"}, cfg.Aliases)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "dependencyGraph.json", cfg.OutputPath)
}

func TestParse_Invalid(t *testing.T) {
	for _, doc := range []string{
		"topN: -1",
		"resolveExtensions: [ts]",
		"server: {port: 70000}",
		"topN: [",
	} {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, doc)
	}
}
