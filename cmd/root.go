// 包 cmd 为命令行入口：
// - 全局 flags：--config（settings.yaml）与 --content（内容目录）
// - 子命令：check、list、export、search、serve
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"portfolio-content/internal/config"
	"portfolio-content/internal/content"
	"portfolio-content/internal/logx"
)

// app 为各子命令共享的运行时状态，在 PersistentPreRunE 中初始化。
type app struct {
	configPath string
	contentDir string

	cfg *config.Config
	lib *content.Library
}

// NewRootCmd 构造根命令及全部子命令。
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "portfolio-content",
		Short:         "Load, validate and publish portfolio content",
		Long:          "portfolio-content loads projects, logs and essays from Markdown front matter, validates them and publishes index, sitemap and feed files.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "settings.yaml", "path to settings.yaml")
	root.PersistentFlags().StringVar(&a.contentDir, "content", "", "content directory (overrides CONTENT_DIR)")

	root.AddCommand(newCheckCmd(a))
	root.AddCommand(newListCmd(a))
	root.AddCommand(newExportCmd(a))
	root.AddCommand(newSearchCmd(a))
	root.AddCommand(newServeCmd(a))
	return root
}

// Execute 运行根命令，出错时打印到 stderr 并以 1 退出。
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *app) init() error {
	// 1) 配置：文件不存在时使用默认值
	cfg, err := config.LoadOrDefault(a.configPath)
	if err != nil {
		return err
	}
	if a.contentDir != "" {
		cfg.ContentDir = a.contentDir
	}
	a.cfg = cfg

	// 2) 日志
	logx.Init(cfg.LogLevel, cfg.LogFormat, cfg.LogColor)
	logx.Debugf("配置：%s 内容目录：%s", a.configPath, cfg.ContentDir)

	// 3) 内容库
	a.lib = content.Open(cfg.ContentDir, content.OptionsFrom(cfg))
	return nil
}
