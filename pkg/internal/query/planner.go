// Package query 把列表请求描述翻译为参数化的查询条件与排序.
package query

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/RadiumAg/image-saas/pkg/apperr"
	"github.com/RadiumAg/image-saas/pkg/cursor"
	"github.com/RadiumAg/image-saas/pkg/internal/lifecycle"
	"github.com/RadiumAg/image-saas/pkg/internal/model"
)

// 排序字段.
const (
	FieldCreatedAt = "createdAt"
	FieldDeleteAt  = "deleteAt"
)

// 排序方向.
const (
	OrderDesc = "desc"
	OrderAsc  = "asc"
)

// 每个状态允许的排序字段及其列名.
var sortColumns = map[lifecycle.State]map[string]string{
	lifecycle.Active: {
		FieldCreatedAt: "files.created_at",
	},
	lifecycle.Trashed: {
		FieldDeleteAt:  "files.delete_at",
		FieldCreatedAt: "files.created_at",
	},
}

var defaultField = map[lifecycle.State]string{
	lifecycle.Active:  FieldCreatedAt,
	lifecycle.Trashed: FieldDeleteAt,
}

// Descriptor 列表请求.
type Descriptor struct {
	OwnerID   string
	AppID     string
	TagID     string
	State     lifecycle.State // 为空时按 Active 处理
	SortField string
	SortOrder string
	Cursor    string
	Limit     *int // nil 表示使用默认值
}

// Limits 分页大小约束.
type Limits struct {
	Default int
	Max     int
}

// Plan 校验后的查询计划.
type Plan struct {
	OwnerID string
	AppID   string
	TagID   string
	State   lifecycle.State
	Field   string
	Column  string
	Desc    bool
	After   *cursor.Cursor
	Limit   int
}

// Build 校验描述并生成计划，所有错误都是 ValidationError.
func Build(d Descriptor, l Limits) (Plan, error) {
	if d.OwnerID == "" {
		return Plan{}, apperr.Validation("owner is required", nil)
	}

	if d.AppID == "" {
		return Plan{}, apperr.Validation("appId is required", nil)
	}

	p := Plan{OwnerID: d.OwnerID, AppID: d.AppID, TagID: d.TagID, State: d.State}

	if p.State == "" {
		p.State = lifecycle.Active
	}

	// 按标签过滤只返回正常文件
	if p.TagID != "" {
		p.State = lifecycle.Active
	}

	columns, ok := sortColumns[p.State]
	if !ok {
		return Plan{}, apperr.Validation(fmt.Sprintf("unsupported state %q", d.State), nil)
	}

	p.Field = d.SortField
	if p.Field == "" {
		p.Field = defaultField[p.State]
	}

	if p.Column, ok = columns[p.Field]; !ok {
		return Plan{}, apperr.Validation(fmt.Sprintf("unsupported sort field %q", d.SortField), nil)
	}

	switch strings.ToLower(d.SortOrder) {
	case "", OrderDesc:
		p.Desc = true
	case OrderAsc:
		p.Desc = false
	default:
		return Plan{}, apperr.Validation(fmt.Sprintf("unsupported sort order %q", d.SortOrder), nil)
	}

	limit, err := resolveLimit(d.Limit, l)
	if err != nil {
		return Plan{}, err
	}

	p.Limit = limit

	if d.Cursor != "" {
		c, err := cursor.Decode(d.Cursor)
		if err != nil {
			return Plan{}, apperr.Validation("invalid cursor", err)
		}

		if c.Field != "" && c.Field != p.Field {
			return Plan{}, apperr.Validation(
				fmt.Sprintf("cursor was issued for %q, not %q", c.Field, p.Field), cursor.ErrMalformed)
		}

		p.After = &c
	}

	return p, nil
}

func resolveLimit(limit *int, l Limits) (int, error) {
	if l.Max <= 0 {
		l.Max = 100
	}

	if l.Default <= 0 || l.Default > l.Max {
		l.Default = min(20, l.Max)
	}

	if limit == nil {
		return l.Default, nil
	}

	if *limit <= 0 {
		return 0, apperr.Validation("limit must be positive", nil)
	}

	if *limit > l.Max {
		return 0, apperr.Validation(fmt.Sprintf("limit must not exceed %d", l.Max), nil)
	}

	return *limit, nil
}

// Apply 把计划应用到查询上，多取一行用于判断是否还有下一页.
func (p Plan) Apply(db *gorm.DB) *gorm.DB {
	q := db.Model(&model.File{}).
		Select("files.*").
		Where("files.owner_id = ? AND files.app_id = ?", p.OwnerID, p.AppID)

	if p.TagID != "" {
		q = q.Joins("INNER JOIN files_tags ON files_tags.file_id = files.id AND files_tags.tag_id = ?", p.TagID)
	}

	if p.State == lifecycle.Trashed {
		q = q.Where("files.delete_at IS NOT NULL")
	} else {
		q = q.Where("files.delete_at IS NULL")
	}

	if p.After != nil {
		cond, args := p.After.Predicate(p.Column, "files.id", p.Desc)
		q = q.Where(cond, args...)
	}

	dir := " ASC"
	if p.Desc {
		dir = " DESC"
	}

	return q.Order(p.Column + dir).Order("files.id" + dir).Limit(p.Limit + 1)
}

// SortValue 取出文件在计划排序字段上的值.
func (p Plan) SortValue(f *model.File) (time.Time, bool) {
	switch p.Field {
	case FieldDeleteAt:
		if f.DeleteAt == nil {
			return time.Time{}, false
		}

		return *f.DeleteAt, true
	default:
		return f.CreatedAt, true
	}
}

// Paginate 截断多取的一行，并在还有后续数据时为最后一行生成游标.
func (p Plan) Paginate(rows []model.File) ([]model.File, *string) {
	if len(rows) <= p.Limit {
		return rows, nil
	}

	rows = rows[:p.Limit]
	last := &rows[len(rows)-1]

	sv, ok := p.SortValue(last)
	if !ok {
		return rows, nil
	}

	next := cursor.Encode(cursor.New(p.Field, sv, last.ID))

	return rows, &next
}
