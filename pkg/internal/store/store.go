// Package store 基于 gorm 的文件与标签存储，所有查询都按 owner 与 app 限定范围.
package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/RadiumAg/image-saas/pkg/apperr"
)

// Page 一页结果，NextCursor 为 nil 表示没有更多数据.
type Page[T any] struct {
	Items      []T     `json:"items"`
	NextCursor *string `json:"nextCursor"`
}

// translate 把 gorm 错误映射为业务错误.
func translate(resource string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound(resource, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict(fmt.Sprintf("%s already exists", resource), err)
	default:
		return fmt.Errorf("%s: %w", resource, err)
	}
}
