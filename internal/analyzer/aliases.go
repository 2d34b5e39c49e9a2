package analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tailscale/hujson"
	"github.com/zheng/modgraph/internal/graph"
)

// DefaultProjectConfigs are tried in order when no tsconfig path is configured
var DefaultProjectConfigs = []string{"tsconfig.json", "jsconfig.json"}

type projectConfig struct {
	CompilerOptions struct {
		BaseURL string              `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

// ReadAliases builds the alias table from compilerOptions.paths of a tsconfig/jsconfig file.
// "@app/*": ["src/app/*"] becomes prefix "@app/" mapped to <root>/<baseUrl>/src/app/.
// Only the first target of each entry is used. A missing file yields an empty table;
// the returned string is the config file that was read, if any.
func ReadAliases(root, configFile string) (graph.AliasTable, string, error) {
	candidates := DefaultProjectConfigs
	if configFile != "" {
		candidates = []string{configFile}
	}

	for _, name := range candidates {
		p := name
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, name)
		}
		data, err := os.ReadFile(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %w", p, err)
		}
		table, err := ParseAliases(root, data)
		if err != nil {
			return nil, "", fmt.Errorf("failed to parse %s: %w", p, err)
		}
		return table, p, nil
	}
	return graph.AliasTable{}, "", nil
}

// ParseAliases parses a tsconfig document; comments and trailing commas are accepted
func ParseAliases(root string, data []byte) (graph.AliasTable, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, err
	}
	var cfg projectConfig
	if err := json.Unmarshal(std, &cfg); err != nil {
		return nil, err
	}

	base := filepath.Join(root, cfg.CompilerOptions.BaseURL)
	keys := make([]string, 0, len(cfg.CompilerOptions.Paths))
	for k := range cfg.CompilerOptions.Paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := make(graph.AliasTable, len(keys))
	for _, key := range keys {
		targets := cfg.CompilerOptions.Paths[key]
		if len(targets) == 0 {
			continue
		}
		prefix := strings.TrimSuffix(key, "*")
		target := strings.TrimSuffix(targets[0], "*")
		if prefix == "" {
			continue
		}
		table[prefix] = filepath.Join(base, target)
	}
	return table, nil
}

// MergeAliases returns base overridden by extra. Relative directories in extra are taken relative to root.
func MergeAliases(root string, base graph.AliasTable, extra map[string]string) graph.AliasTable {
	out := make(graph.AliasTable, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		if !filepath.IsAbs(v) {
			v = filepath.Join(root, v)
		}
		out[k] = v
	}
	return out
}
