package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RadiumAg/image-saas/pkg/configs"
)

var (
	showSecrets bool

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "config subcommands",
	}

	pathCmd = &cobra.Command{
		Use:   "path",
		Short: "print the path of the current config file",
		Run: func(cmd *cobra.Command, args []string) {
			v := configs.GetViper()

			switch {
			case v == nil:
				fmt.Fprintln(cmd.ErrOrStderr(), "config not initialized")
			case v.ConfigFileUsed() == "":
				fmt.Fprintln(cmd.OutOrStdout(), "no config file used, running on defaults and IMAGESAAS_* env")
			default:
				fmt.Fprintln(cmd.OutOrStdout(), v.ConfigFileUsed())
			}
		},
	}

	debugCmd = &cobra.Command{
		Use:   "debug",
		Short: "print the effective config, secrets masked unless --show-secrets",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := configs.GetViper()
			if v == nil {
				return fmt.Errorf("config not initialized")
			}

			if debug {
				v.Debug()
			}

			c := *configs.GetConfig()
			if !showSecrets {
				c = c.Redacted()
			}

			return printJSON(cmd, c)
		},
	}
)

// registerConfigsCommands 注册 config 子命令.
func registerConfigsCommands() {
	debugCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "print passwords and keys in clear text")

	configCmd.AddCommand(pathCmd, debugCmd)
	rootCmd.AddCommand(configCmd)
}
