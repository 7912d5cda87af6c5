//go:build !no_sqlite && !cgo

package db

import (
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/RadiumAg/image-saas/pkg/configs"
)

// createSQLiteDialector 纯 Go 驱动，写锁冲突时最多等待 5 秒.
func createSQLiteDialector(dsn string) gorm.Dialector {
	return sqlite.Open(withSQLiteParam(dsn, "_pragma=busy_timeout(5000)"))
}

// withSQLiteParam 在 DSN 上追加查询参数.
func withSQLiteParam(dsn, param string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + param
	}

	return dsn + "?" + param
}

func init() {
	RegisterDialectorFactory(createSQLiteDialector, configs.SQLite)
}
