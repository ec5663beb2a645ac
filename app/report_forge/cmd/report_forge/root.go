package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/config"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/logger"
)

var (
	flagConfig   string
	flagProvider string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "report_forge",
	Short:         "Generate, evaluate and export structured reports",
	Long:          `report_forge plans a document outline, drafts every section in parallel, scores the result and exports it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(flagConfig)
		if err != nil {
			return err
		}
		if flagProvider != "" {
			c.LLM.Provider = flagProvider
		}
		if err := logger.InitLogger(c.Log.Level, c.Log.File); err != nil {
			return fmt.Errorf("无法初始化日志: %w", err)
		}
		cfg = c
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "config.yaml", "config file (yaml or toml)")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "override llm.provider (eino_openai, openai_sdk, mock)")

	rootCmd.AddCommand(generateCmd, evaluateCmd, convertCmd, typesCmd)
}

// loadConfig 配置文件不存在时使用默认配置
func loadConfig(path string) (*config.Config, error) {
	c, err := config.LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		return config.DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("无法加载配置文件: %w", err)
	}
	return c, nil
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
	os.Exit(1)
}

// skipConfig 不需要模型与日志配置的子命令使用
func skipConfig(cmd *cobra.Command, args []string) error { return nil }
