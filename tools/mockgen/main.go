package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Config represents the mock project configuration
type Config struct {
	OutputDir     string
	NumLayers     int
	ModsPerLayer  int
	ImportDensity float64 // 每个模块平均导入几个其他模块
	BackEdgeRatio float64 // 指向上层模块的导入比例，用于制造循环依赖
	AliasRatio    float64 // 使用 @/ 别名导入的比例
	Seed          int64
}

// ModInfo represents a module in the mock project
type ModInfo struct {
	Layer int
	Index int
	ID    string // 相对项目根目录的路径，例如 src/layer03/mod0012.js
}

var packages = []string{"react", "lodash", "axios", "dayjs", "classnames"}

func main() {
	cfg := Config{}
	flag.StringVar(&cfg.OutputDir, "o", "./mock-project", "输出目录")
	flag.IntVar(&cfg.NumLayers, "layers", 10, "层数")
	flag.IntVar(&cfg.ModsPerLayer, "mods", 100, "每层的模块数量")
	flag.Float64Var(&cfg.ImportDensity, "density", 3.0, "平均每个模块导入几个其他模块")
	flag.Float64Var(&cfg.BackEdgeRatio, "back", 0.02, "指向上层模块的导入比例 (制造循环依赖)")
	flag.Float64Var(&cfg.AliasRatio, "alias", 0.3, "使用 @/ 别名导入的比例")
	flag.Int64Var(&cfg.Seed, "seed", 1, "随机种子")
	flag.Parse()

	fmt.Printf("正在生成 mock 项目...\n")
	fmt.Printf("  层数: %d\n", cfg.NumLayers)
	fmt.Printf("  每层模块数: %d\n", cfg.ModsPerLayer)
	fmt.Printf("  总模块数: %d\n", cfg.NumLayers*cfg.ModsPerLayer+1)
	fmt.Printf("  导入密度: %.1f\n", cfg.ImportDensity)
	fmt.Printf("  回边比例: %.2f\n", cfg.BackEdgeRatio)

	if err := generateProject(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n✓ 项目生成完成: %s\n", cfg.OutputDir)
	fmt.Printf("\n下一步:\n")
	fmt.Printf("  modgraph analyze %s\n", cfg.OutputDir)
}

func generateProject(cfg *Config) error {
	if cfg.NumLayers < 1 || cfg.ModsPerLayer < 1 {
		return fmt.Errorf("layers and mods must be positive")
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	if err := os.MkdirAll(filepath.Join(cfg.OutputDir, "src"), 0755); err != nil {
		return err
	}
	if err := generateTSConfig(cfg); err != nil {
		return err
	}

	layers := generateModRegistry(cfg)

	// the entry point imports every module of the first layer
	var entry strings.Builder
	for _, m := range layers[0] {
		fmt.Fprintf(&entry, "import %s from '%s';\n", symbol(m), relative("src/index.js", m.ID))
	}
	entry.WriteString("\nexport default function main() {}\n")
	if err := writeFile(cfg.OutputDir, "src/index.js", entry.String()); err != nil {
		return err
	}

	for layer, mods := range layers {
		for _, m := range mods {
			imports := generateImports(m, layers, cfg, rng)
			if err := writeFile(cfg.OutputDir, m.ID, generateModule(m, imports)); err != nil {
				return err
			}
		}
		fmt.Printf("  ✓ 生成第 %d 层 (%d/%d)\n", layer, layer+1, cfg.NumLayers)
	}
	return nil
}

func generateTSConfig(cfg *Config) error {
	content := `{
  // generated by mockgen
  "compilerOptions": {
    "baseUrl": ".",
    "paths": {
      "@/*": ["src/*"]
    }
  }
}
`
	return os.WriteFile(filepath.Join(cfg.OutputDir, "tsconfig.json"), []byte(content), 0644)
}

func generateModRegistry(cfg *Config) [][]*ModInfo {
	layers := make([][]*ModInfo, cfg.NumLayers)
	for layer := range layers {
		for i := 0; i < cfg.ModsPerLayer; i++ {
			ext := ".js"
			if i%3 == 1 {
				ext = ".ts"
			}
			layers[layer] = append(layers[layer], &ModInfo{
				Layer: layer,
				Index: i,
				ID:    fmt.Sprintf("src/layer%02d/mod%04d%s", layer, i, ext),
			})
		}
	}
	return layers
}

// generateImports returns the specifiers imported by m. Imports normally point at the
// next layer down; a BackEdgeRatio share points at an upper layer and closes cycles.
func generateImports(m *ModInfo, layers [][]*ModInfo, cfg *Config, rng *rand.Rand) []string {
	var specs []string
	seen := make(map[string]bool)

	if rng.Float64() < 0.2 {
		specs = append(specs, packages[rng.Intn(len(packages))])
	}

	numImports := rng.Intn(int(cfg.ImportDensity*2)+1) + 1
	for i := 0; i < numImports; i++ {
		var candidates []*ModInfo
		switch {
		case m.Layer > 0 && rng.Float64() < cfg.BackEdgeRatio:
			candidates = layers[rng.Intn(m.Layer)]
		case m.Layer+1 < len(layers):
			candidates = layers[m.Layer+1]
		default:
			continue
		}

		target := candidates[rng.Intn(len(candidates))]
		if target.ID == m.ID || seen[target.ID] {
			continue
		}
		seen[target.ID] = true

		if rng.Float64() < cfg.AliasRatio {
			specs = append(specs, "@/"+strings.TrimPrefix(trimExt(target.ID), "src/"))
		} else {
			specs = append(specs, relative(m.ID, target.ID))
		}
	}
	return specs
}

func generateModule(m *ModInfo, imports []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "// %s is a mock module at layer %d\n", symbol(m), m.Layer)

	// mix the supported forms so the extractor sees all of them
	for i, spec := range imports {
		switch i % 4 {
		case 0:
			fmt.Fprintf(&sb, "import dep%d from '%s';\n", i, spec)
		case 1:
			fmt.Fprintf(&sb, "export * from '%s';\n", spec)
		case 2:
			fmt.Fprintf(&sb, "const dep%d = require('%s');\n", i, spec)
		default:
			fmt.Fprintf(&sb, "const lazy%d = () => import('%s');\n", i, spec)
		}
	}

	fmt.Fprintf(&sb, "\nexport default function %s(input) {\n", symbol(m))
	sb.WriteString("  return input;\n")
	sb.WriteString("}\n")
	return sb.String()
}

func symbol(m *ModInfo) string {
	return fmt.Sprintf("L%02dM%04d", m.Layer, m.Index)
}

func trimExt(id string) string {
	return strings.TrimSuffix(id, path.Ext(id))
}

// relative returns the specifier that imports to from the file from, without extension
func relative(from, to string) string {
	fromDir := strings.Split(path.Dir(from), "/")
	target := strings.Split(trimExt(to), "/")

	common := 0
	for common < len(fromDir) && common < len(target)-1 && fromDir[common] == target[common] {
		common++
	}
	up := len(fromDir) - common
	rest := strings.Join(target[common:], "/")
	if up == 0 {
		return "./" + rest
	}
	return strings.Repeat("../", up) + rest
}

func writeFile(root, id, content string) error {
	p := filepath.Join(root, filepath.FromSlash(id))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	return os.WriteFile(p, []byte(content), 0644)
}
