package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/zheng/modgraph/internal/analyzer"
	"github.com/zheng/modgraph/internal/graph"
	"github.com/zheng/modgraph/internal/impact"
	"github.com/zheng/modgraph/internal/storage"
)

func analyzeCmd() *cobra.Command {
	var outputPath string
	var sourceDir string
	var workers int
	var noDB bool

	cmd := &cobra.Command{
		Use:   "analyze [project-path]",
		Short: "分析 JS/TS 项目并构建模块依赖图",
		Long: `扫描项目源文件，提取 import/export/require/import() 语句，
解析相对路径和路径别名，写出依赖图快照 (dependencyGraph.json) 并存入数据库。`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) > 0 {
				if ConfigPath == "" {
					if err := loadConfig(cmd, args[0]); err != nil {
						return err
					}
				} else {
					cfg.RootDirectory = args[0]
				}
			}
			if cmd.Flags().Changed("source-dir") {
				cfg.SourceDirectory = sourceDir
			}
			if workers > 0 {
				cfg.Workers = workers
			}
			if outputPath == "" {
				outputPath = cfg.Resolve(cfg.OutputPath)
			}

			fmt.Fprintf(out, "分析项目: %s\n", cfg.RootDirectory)
			res, err := analyzer.Analyze(cmd.Context(), analyzer.Options{
				Root:              cfg.RootDirectory,
				SourceDir:         cfg.SourceDirectory,
				SourceExtensions:  cfg.SourceExtensions,
				ResolveExtensions: cfg.ResolveExtensions,
				Exclude:           cfg.Exclude,
				Aliases:           cfg.Aliases,
				TSConfig:          cfg.TSConfig,
				Workers:           cfg.Workers,
				Logger:            slog.Default(),
			})
			if err != nil {
				return fmt.Errorf("分析失败: %w", err)
			}
			g := res.Graph
			if res.AliasSource != "" {
				fmt.Fprintf(out, "路径别名: %d 个 (来自 %s)\n", len(res.Aliases), res.AliasSource)
			}

			if err := graph.SaveSnapshot(outputPath, g); err != nil {
				return fmt.Errorf("写入快照失败: %w", err)
			}
			fmt.Fprintf(out, "写入快照: %s\n", outputPath)

			if !noDB {
				if err := saveToDB(out, res); err != nil {
					return err
				}
			}

			a := impact.NewAnalyzer(g)
			fmt.Fprintf(out, "完成! %d 个文件, %d 条导入 (%d 条指向项目文件)\n",
				g.Len(), g.EdgeCount(), g.ResolvedEdgeCount())

			ep := impact.ClassifyEntryPoints(g, cfg.PriorityEntryNames)
			if ep.Found() {
				fmt.Fprintf(out, "入口文件: %s", ep.Canonical)
				if len(ep.Alternates) > 0 {
					fmt.Fprintf(out, " (另有 %d 个候选)", len(ep.Alternates))
				}
				fmt.Fprintln(out)
			}
			if top := impact.Top1(g, a.Forward()); top.ID != "" {
				fmt.Fprintf(out, "顶层组件: %s (依赖 %d 个文件)\n", top.ID, top.Count)
			}

			diags := append(res.Diagnostics, ep.Diagnostics...)
			if len(diags) > 0 {
				fmt.Fprintf(out, "\n诊断信息 (%d):\n", len(diags))
				for _, d := range diags {
					fmt.Fprintf(out, "  %s\n", d)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "快照输出路径 (默认 dependencyGraph.json)")
	cmd.Flags().StringVar(&sourceDir, "source-dir", "", "源码目录 (默认存在 src 时使用 src)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "并行解析的文件数 (0=CPU 核数)")
	cmd.Flags().BoolVar(&noDB, "no-db", false, "只写快照，不写数据库")

	return cmd
}

// saveToDB replaces the stored graph with the new analysis
func saveToDB(out io.Writer, res *analyzer.Result) error {
	db, err := storage.Open(DbPath)
	if err != nil {
		return fmt.Errorf("打开数据库失败: %w", err)
	}
	defer db.Close()

	previous, err := db.FileHashes()
	if err != nil {
		return fmt.Errorf("读取数据库失败: %w", err)
	}

	meta := make(map[graph.NodeID]storage.FileMeta, len(res.Files))
	changed := 0
	for _, f := range res.Files {
		m := storage.FileMeta{Hash: f.Hash}
		if f.Err != nil {
			m.ExtractError = f.Err.Error()
		}
		meta[f.ID] = m
		if old, ok := previous[f.ID]; !ok || old != f.Hash {
			changed++
		}
	}
	if len(previous) > 0 {
		fmt.Fprintf(out, "与上次分析相比: %d 个文件新增或变更\n", changed)
	}

	if err := db.SaveGraph(res.Graph, meta, res.Root); err != nil {
		return fmt.Errorf("写入数据库失败: %w", err)
	}
	files, edges, err := db.GetStats()
	if err != nil {
		return fmt.Errorf("读取数据库失败: %w", err)
	}
	fmt.Fprintf(out, "写入数据库: %s (%d 文件, %d 条导入)\n", DbPath, files, edges)
	return nil
}
