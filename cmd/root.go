package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/zheng/modgraph/internal/config"
)

var (
	DbPath       string
	SnapshotPath string
	ConfigPath   string
	Verbose      bool

	// Version is set at build time
	Version = "dev"

	cfg = config.Default()
)

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "modgraph",
		Short: "JS/TS 模块依赖图分析工具",
		Long: `modgraph 扫描 JavaScript/TypeScript 项目，构建文件级的模块依赖图，
找出入口文件和核心组件，并追踪修改一个文件会影响到哪些文件。`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogger(cmd.ErrOrStderr(), Verbose)
			return loadConfig(cmd, ".")
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&DbPath, "db", "d", ".modgraph.db", "数据库文件路径")
	rootCmd.PersistentFlags().StringVarP(&SnapshotPath, "snapshot", "s", "", "从依赖图快照 (dependencyGraph.json) 读取，而不是数据库")
	rootCmd.PersistentFlags().StringVarP(&ConfigPath, "config", "c", "", "配置文件路径 (默认 ./"+config.FileName+")")
	rootCmd.PersistentFlags().BoolVarP(&Verbose, "verbose", "v", false, "输出调试日志")

	RegisterCommands(rootCmd)
	return rootCmd
}

// RegisterCommands adds all subcommands to the root command
func RegisterCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(entryCmd())
	rootCmd.AddCommand(topCmd())
	rootCmd.AddCommand(toplevelCmd())
	rootCmd.AddCommand(impactCmd())
	rootCmd.AddCommand(upstreamCmd())
	rootCmd.AddCommand(downstreamCmd())
	rootCmd.AddCommand(riskCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(affectedCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(mcpCmd())
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}

func setupLogger(w io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// loadConfig reads the config file from --config or dir. Flags set on the command line win.
func loadConfig(cmd *cobra.Command, dir string) error {
	c, err := config.Load(ConfigPath, dir)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	if !cmd.Flags().Changed("db") {
		DbPath = c.Resolve(c.DBPath)
	}
	cfg = c
	return nil
}
