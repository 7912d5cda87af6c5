package model

import "time"

// CategoryType 分类根标签类型.
type CategoryType string

const (
	CategoryPerson   CategoryType = "person"
	CategoryLocation CategoryType = "location"
	CategoryEvent    CategoryType = "event"
)

// Valid 是否为已知分类.
func (c CategoryType) Valid() bool {
	switch c {
	case CategoryPerson, CategoryLocation, CategoryEvent:
		return true
	default:
		return false
	}
}

// Tag 标签，名称在同一用户下唯一.
type Tag struct {
	ID           string        `gorm:"primaryKey;size:26"                                 json:"id"`
	AppID        string        `gorm:"size:26;not null;index"                             json:"appId"`
	OwnerID      string        `gorm:"size:255;not null;uniqueIndex:idx_tags_owner_name,priority:1" json:"ownerId"`
	Name         string        `gorm:"size:64;not null;uniqueIndex:idx_tags_owner_name,priority:2"  json:"name"`
	Color        string        `gorm:"size:16;not null"                                   json:"color"`
	CategoryType *CategoryType `gorm:"size:16;index"                                      json:"categoryType"`
	ParentID     *string       `gorm:"size:26;index"                                      json:"parentId"`
	Sort         int           `gorm:"not null;default:0"                                 json:"sort"`
	CreatedAt    time.Time     `gorm:"not null;precision:6"                               json:"createdAt"`
}

func (Tag) TableName() string { return "tags" }

// FileTag 文件与标签的关联，(file_id, tag_id) 唯一.
type FileTag struct {
	FileID    string    `gorm:"primaryKey;size:26"        json:"fileId"`
	TagID     string    `gorm:"primaryKey;size:26;index"  json:"tagId"`
	CreatedAt time.Time `gorm:"not null;precision:6"      json:"createdAt"`
}

func (FileTag) TableName() string { return "files_tags" }

// TagWithCount 标签及其关联的正常文件数.
type TagWithCount struct {
	Tag       `gorm:"embedded"`
	FileCount int64 `json:"fileCount"`
}
