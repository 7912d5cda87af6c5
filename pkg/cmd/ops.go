package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RadiumAg/image-saas/pkg/app"
	"github.com/RadiumAg/image-saas/pkg/internal/service"
)

var (
	tagsCmd = &cobra.Command{
		Use:   "tags",
		Short: "Tag maintenance commands",
	}

	tagsSeedCmd = &cobra.Command{
		Use:   "seed",
		Short: "create the default category tags for every app that lacks them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(svc *service.Services) error {
				n, err := svc.Tags.SeedAll(cmd.Context())
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "created %d tag(s)\n", n)

				return nil
			})
		},
	}

	trashCmd = &cobra.Command{
		Use:   "trash",
		Short: "Trash maintenance commands",
	}

	trashSweepCmd = &cobra.Command{
		Use:   "sweep",
		Short: "permanently delete trashed files whose retention has expired",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(svc *service.Services) error {
				res, err := svc.Files.SweepExpired(cmd.Context())
				if err != nil {
					return err
				}

				return printJSON(cmd, res)
			})
		},
	}
)

// withServices 初始化存储与业务服务后执行 fn.
func withServices(ctx context.Context, fn func(*service.Services) error) error {
	config, err := app.Bootstrap()
	if err != nil {
		return err
	}

	svc, mgr, err := app.NewServices(ctx, config)
	if err != nil {
		return err
	}
	defer mgr.Close()

	return fn(svc)
}

// registerOpsCommands 注册运维命令.
func registerOpsCommands() {
	tagsCmd.AddCommand(tagsSeedCmd)
	trashCmd.AddCommand(trashSweepCmd)

	rootCmd.AddCommand(tagsCmd, trashCmd)
}
