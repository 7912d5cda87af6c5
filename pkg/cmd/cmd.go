// Package cmd 提供命令行入口：启动服务、迁移数据库与运维任务.
package cmd

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/RadiumAg/image-saas/pkg/configs"
)

var (
	configPath string
	debug      bool

	rootCmd = &cobra.Command{
		Use:           "imagesaas",
		Short:         "Image SaaS file lifecycle and tagging service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configs.InitConfig(configPath)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file or directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "print viper debug output")

	registerServeCommands()
	registerConfigsCommands()
	registerDBCommands()
	registerKVCommands()
	registerMQCommands()
	registerOpsCommands()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// printJSON 以缩进 JSON 输出.
func printJSON(cmd *cobra.Command, v any) error {
	b, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(b))

	return nil
}
