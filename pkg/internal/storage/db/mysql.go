//go:build !no_mysql

package db

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/RadiumAg/image-saas/pkg/configs"
)

// utf8mb4 下索引列长度上限为 767 字节.
const mysqlDefaultStringSize = 191

// createMySQLDialector 创建 MySQL/MariaDB dialector.
func createMySQLDialector(dsn string) gorm.Dialector {
	return mysql.New(mysql.Config{
		DSN:                       dsn,
		DefaultStringSize:         mysqlDefaultStringSize,
		SkipInitializeWithVersion: false,
	})
}

func init() {
	RegisterDialectorFactory(createMySQLDialector, configs.MySQL, configs.MariaDB)
}
