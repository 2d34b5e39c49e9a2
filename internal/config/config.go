package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the project root
const FileName = ".modgraph.yaml"

type Config struct {
	RootDirectory      string            `yaml:"rootDirectory"`
	SourceDirectory    string            `yaml:"sourceDirectory"`
	OutputPath         string            `yaml:"outputPath"`
	DBPath             string            `yaml:"dbPath"`
	TopN               int               `yaml:"topN"`
	PriorityEntryNames []string          `yaml:"priorityEntryNames"`
	ResolveExtensions  []string          `yaml:"resolveExtensions"`
	SourceExtensions   []string          `yaml:"sourceExtensions"`
	Exclude            []string          `yaml:"exclude"`
	Aliases            map[string]string `yaml:"aliases"`
	TSConfig           string            `yaml:"tsconfig"`
	Workers            int               `yaml:"workers"`
	Server             Server            `yaml:"server"`
}

type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func Default() *Config {
	return &Config{
		RootDirectory:      ".",
		OutputPath:         "dependencyGraph.json",
		DBPath:             ".modgraph.db",
		TopN:               20,
		PriorityEntryNames: []string{"index.js", "index.tsx", "App.js", "App.tsx"},
		ResolveExtensions:  []string{".ts", ".tsx", ".js", ".jsx", ".css"},
		SourceExtensions:   []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs"},
		Exclude: []string{
			"node_modules", "dist", "build", "coverage", ".git", ".storybook", "__tests__",
			"*.d.ts", "*.test.*", "*.spec.*", "*.stories.*",
		},
		Aliases: map[string]string{},
		Server: Server{
			Host: "localhost",
			Port: 8080,
		},
	}
}

// Load reads the config file at path. An empty path looks for .modgraph.yaml in dir;
// when that does not exist the defaults are returned. Keys missing from the file keep their defaults.
func Load(path, dir string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = filepath.Join(dir, FileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			slog.Debug("no config file found, using default config", "path", path)
			cfg := Default()
			cfg.RootDirectory = dir
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	// a relative root is relative to the config file
	if !filepath.IsAbs(cfg.RootDirectory) {
		cfg.RootDirectory = filepath.Join(filepath.Dir(path), cfg.RootDirectory)
	}
	slog.Debug("config file found", "path", path, "root", cfg.RootDirectory)
	return cfg, nil
}

// Parse decodes a YAML document over the defaults
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be used as given
func (c *Config) Validate() error {
	if c.TopN < 0 {
		return fmt.Errorf("topN must not be negative: %d", c.TopN)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative: %d", c.Workers)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	for _, ext := range append(append([]string{}, c.ResolveExtensions...), c.SourceExtensions...) {
		if len(ext) < 2 || ext[0] != '.' {
			return fmt.Errorf("extension must start with a dot: %q", ext)
		}
	}
	return nil
}

// Resolve makes a path from the config relative to the root directory
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.RootDirectory, p)
}
