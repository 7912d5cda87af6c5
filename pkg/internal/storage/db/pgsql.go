//go:build !no_postgres

package db

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/RadiumAg/image-saas/pkg/configs"
)

// createPostgresDialector 创建 PostgreSQL dialector，使用 pgx 扩展协议以复用预编译语句.
func createPostgresDialector(dsn string) gorm.Dialector {
	return postgres.New(postgres.Config{DSN: dsn})
}

func init() {
	RegisterDialectorFactory(createPostgresDialector, configs.PostgreSQL, configs.Postgres, configs.Pg)
}
