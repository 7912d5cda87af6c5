// Package cursor 实现键集分页游标的编解码.
//
// 游标记录上一页最后一行的 (排序字段值, id)，编码为不透明的 URL 安全字符串.
// 下一页的条件是 (sort, id) 严格位于游标之后，id 作为相同时间戳的决胜字段，
// 保证翻页时不重复、不遗漏.
package cursor

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// ErrMalformed 游标无法解析.
var ErrMalformed = errors.New("malformed cursor")

// Cursor 分页游标.
type Cursor struct {
	ID        string    `json:"id"`
	SortValue time.Time `json:"sv"`
	Field     string    `json:"f,omitempty"` // 签发时使用的排序字段
}

// New 用最后一行的值构造游标.
func New(field string, sortValue time.Time, id string) Cursor {
	return Cursor{ID: id, SortValue: sortValue.UTC(), Field: field}
}

// Encode 编码为 base64url（无填充）的紧凑 JSON.
func Encode(c Cursor) string {
	c.SortValue = c.SortValue.UTC()

	raw, err := sonic.Marshal(c)
	if err != nil {
		// 仅包含字符串与时间，序列化不会失败
		panic(fmt.Sprintf("cursor: marshal: %v", err))
	}

	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode 解析游标，任何格式问题都返回包装了 ErrMalformed 的错误.
func Decode(s string) (Cursor, error) {
	var c Cursor

	if s == "" {
		return c, fmt.Errorf("%w: empty", ErrMalformed)
	}

	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return c, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if err := sonic.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if c.ID == "" || c.SortValue.IsZero() {
		return c, fmt.Errorf("%w: missing id or sort value", ErrMalformed)
	}

	c.SortValue = c.SortValue.UTC()

	return c, nil
}

// Predicate 返回 "严格位于游标之后" 的参数化条件.
// desc 时为 (sort, id) < (sv, id)，asc 时为 (sort, id) > (sv, id).
// 使用展开的 OR 形式，兼容不支持行值比较的数据库.
func (c Cursor) Predicate(sortColumn, idColumn string, desc bool) (string, []any) {
	op := ">"
	if desc {
		op = "<"
	}

	query := fmt.Sprintf("(%[1]s %[3]s ? OR (%[1]s = ? AND %[2]s %[3]s ?))", sortColumn, idColumn, op)

	return query, []any{c.SortValue, c.SortValue, c.ID}
}
