package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/zheng/modgraph/internal/analyzer"
	"github.com/zheng/modgraph/internal/export"
)

func exportCmd() *cobra.Command {
	var outputFile string
	var projectName string
	var incremental bool
	var gitBase string
	var noDirectories bool
	var noExternal bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "导出依赖图谱文档",
		Long:  "导出完整的项目模块依赖文档（Markdown 格式），可作为 AI 编码上下文",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := openGraph()
			if err != nil {
				return err
			}
			defer src.Close()

			w, closeFn, err := openOutput(cmd.OutOrStdout(), outputFile)
			if err != nil {
				return err
			}
			defer closeFn()

			exporter := export.NewExporter(src.a)
			if incremental {
				changes, err := analyzer.GetGitChanges(src.root(), gitBase, cfg.SourceExtensions)
				if err != nil {
					return fmt.Errorf("获取 git 变更失败: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "检测到 %d 个变更文件\n", len(changes.ChangedFiles))
				return exporter.ExportAffected(w, changes.ChangedFiles)
			}

			opts := export.DefaultExportOptions()
			opts.TopN = cfg.TopN
			opts.PriorityNames = cfg.PriorityEntryNames
			opts.IncludeDirectories = !noDirectories
			opts.IncludeExternal = !noExternal
			opts.ProjectName = projectName
			if opts.ProjectName == "" {
				opts.ProjectName = filepath.Base(src.root()) + " "
			}
			return exporter.Export(w, opts)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "输出文件路径 (默认输出到 stdout)")
	cmd.Flags().StringVar(&projectName, "name", "", "文档标题中的项目名 (默认根目录名)")
	cmd.Flags().BoolVarP(&incremental, "incremental", "i", false, "增量导出 (只输出 git 变更部分)")
	cmd.Flags().StringVar(&gitBase, "base", "HEAD", "git 比较基准")
	cmd.Flags().BoolVar(&noDirectories, "no-directories", false, "不生成目录详解")
	cmd.Flags().BoolVar(&noExternal, "no-external", false, "不生成外部依赖统计")

	return cmd
}

func affectedCmd() *cobra.Command {
	var gitBase string
	var remote bool
	var format string

	cmd := &cobra.Command{
		Use:   "affected [file...]",
		Short: "列出受变更影响的文件",
		Long: `找出变更文件的所有传递依赖者（行为可能随之改变的文件）。
不传文件时使用 git diff 检测变更。

示例：
  modgraph affected                       # 未提交的变更
  modgraph affected --base main           # 与 main 分支对比
  modgraph affected -r                    # 与远程同分支对比
  modgraph affected src/utils/format.js   # 指定文件`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			src, err := openGraph()
			if err != nil {
				return err
			}
			defer src.Close()

			changed := args
			if len(changed) == 0 {
				root := src.root()
				if remote {
					branch, err := analyzer.GetRemoteTrackingBranch(root)
					if err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "警告: 无法获取远程分支: %v，将使用 %s\n", err, gitBase)
					} else {
						gitBase = branch
						fmt.Fprintf(cmd.ErrOrStderr(), "对比远程分支: %s\n", branch)
					}
				}
				changes, err := analyzer.GetGitChanges(root, gitBase, cfg.SourceExtensions)
				if err != nil {
					return fmt.Errorf("获取 git 变更失败: %w", err)
				}
				if !changes.HasChanges() {
					fmt.Fprintln(out, "没有检测到源文件变更")
					return nil
				}
				changed = changes.ChangedFiles
			}

			switch format {
			case "json":
				return outputJSON(out, src.a.Affected(changed))
			case "markdown":
				return export.NewExporter(src.a).ExportAffected(out, changed)
			}

			report := src.a.Affected(changed)
			fmt.Fprintf(out, "变更文件 (%d):\n", len(report.Changed))
			for _, id := range report.Changed {
				fmt.Fprintf(out, "  %s\n", id)
			}
			if len(report.Unknown) > 0 {
				fmt.Fprintf(out, "\n不在依赖图中 (%d):\n", len(report.Unknown))
				for _, p := range report.Unknown {
					fmt.Fprintf(out, "  %s\n", p)
				}
			}
			fmt.Fprintf(out, "\n受影响文件 (%d):\n", len(report.Affected))
			for _, id := range report.Affected {
				fmt.Fprintf(out, "  %s\n", id)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&gitBase, "base", "HEAD", "git 比较基准 (默认 HEAD，即未提交的变更)")
	cmd.Flags().BoolVarP(&remote, "remote", "r", false, "与远程同分支对比 (origin/<当前分支>)")
	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json/markdown)")

	return cmd
}

// openOutput returns w for "" or "-", else a newly created file
func openOutput(w io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return w, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("创建输出文件失败: %w", err)
	}
	return f, f.Close, nil
}
