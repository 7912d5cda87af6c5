package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	mq "github.com/RadiumAg/image-saas/pkg/internal/storage/mq"
	"github.com/RadiumAg/image-saas/pkg/queue"
)

var (
	mqCmd = &cobra.Command{
		Use:     "mq",
		Short:   "Message queue related commands",
		Aliases: []string{"messagequeue"},
	}

	mqListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list all registered mq types",
		Aliases: []string{"ls", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered mq types:")

			for _, t := range mq.GetRegisteredMQTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+string(t))
			}
		},
	}

	mqTopicsCmd = &cobra.Command{
		Use:   "topics",
		Short: "list the topics published by the service",
		Run: func(cmd *cobra.Command, args []string) {
			for _, t := range append(append([]string{}, queue.FileTopics...), queue.RecognizeTopics...) {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
		},
	}
)

// registerMQCommands 注册 MQ 相关命令.
func registerMQCommands() {
	rootCmd.AddCommand(mqCmd)
	mqCmd.AddCommand(mqListCmd, mqTopicsCmd)
}
