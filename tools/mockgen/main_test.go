package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelative(t *testing.T) {
	assert.Equal(t, "./layer00/mod0001", relative("src/index.js", "src/layer00/mod0001.js"))
	assert.Equal(t, "../layer02/mod0003", relative("src/layer01/mod0000.js", "src/layer02/mod0003.ts"))
	assert.Equal(t, "./mod0002", relative("src/layer01/mod0000.js", "src/layer01/mod0002.js"))
}

func TestGenerateProject(t *testing.T) {
	cfg := &Config{
		OutputDir:     t.TempDir(),
		NumLayers:     3,
		ModsPerLayer:  4,
		ImportDensity: 2,
		BackEdgeRatio: 0.5,
		AliasRatio:    0.5,
		Seed:          7,
	}
	require.NoError(t, generateProject(cfg))

	entry, err := os.ReadFile(filepath.Join(cfg.OutputDir, "src", "index.js"))
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(entry), "import "))
	assert.Contains(t, string(entry), "from './layer00/mod0000'")

	for _, id := range []string{"src/layer00/mod0000.js", "src/layer01/mod0001.ts", "src/layer02/mod0003.js"} {
		assert.FileExists(t, filepath.Join(cfg.OutputDir, filepath.FromSlash(id)))
	}
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "tsconfig.json"))

	// the same seed produces the same project
	again := *cfg
	again.OutputDir = t.TempDir()
	require.NoError(t, generateProject(&again))
	a, _ := os.ReadFile(filepath.Join(cfg.OutputDir, "src", "layer01", "mod0000.js"))
	b, _ := os.ReadFile(filepath.Join(again.OutputDir, "src", "layer01", "mod0000.js"))
	assert.Equal(t, string(a), string(b))
}

func TestGenerateProject_Invalid(t *testing.T) {
	assert.Error(t, generateProject(&Config{OutputDir: t.TempDir()}))
}
