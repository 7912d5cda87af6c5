package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RadiumAg/image-saas/pkg/configs"
	"github.com/RadiumAg/image-saas/pkg/internal/storage/db"
)

var (
	dbCmd = &cobra.Command{
		Use:   "db",
		Short: "Database related commands",
	}

	dbListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list all registered database types",
		Aliases: []string{"ls", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered database types:")

			for _, dbType := range db.GetRegisteredDBTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+string(dbType))
			}
		},
	}

	dbMigrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(m *db.Migrator) error {
				n, err := m.Migrate(cmd.Context())
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)

				return nil
			})
		},
	}

	dbRollbackCmd = &cobra.Command{
		Use:   "rollback",
		Short: "roll back the last applied migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(m *db.Migrator) error {
				mig, err := m.Rollback(cmd.Context())
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d: %s\n", mig.Version, mig.Description)

				return nil
			})
		},
	}

	dbStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(m *db.Migrator) error {
				st, err := m.Status(cmd.Context())
				if err != nil {
					return err
				}

				return printJSON(cmd, st)
			})
		},
	}
)

// withMigrator 按配置连接数据库后执行 fn.
func withMigrator(ctx context.Context, fn func(*db.Migrator) error) error {
	cfg := configs.GetConfig()

	client, err := db.Connect(ctx, &cfg.DB, false)
	if err != nil {
		return err
	}
	defer client.Close()

	return fn(db.NewMigrator(client.GetDB()))
}

// registerDBCommands 注册数据库相关命令.
func registerDBCommands() {
	rootCmd.AddCommand(dbCmd)

	dbCmd.AddCommand(dbListCmd, dbMigrateCmd, dbRollbackCmd, dbStatusCmd)
}
