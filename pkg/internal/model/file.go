package model

import (
	"time"

	"github.com/RadiumAg/image-saas/pkg/internal/lifecycle"
)

// File 文件元数据，delete_at 为空表示正常，非空表示在回收站中.
type File struct {
	ID          string `gorm:"primaryKey;size:26"                                                             json:"id"`
	AppID       string `gorm:"size:26;not null;index:idx_files_app_created,priority:1;index:idx_files_app_deleted,priority:1" json:"appId"`
	OwnerID     string `gorm:"size:255;not null;index"                                                        json:"ownerId"`
	Name        string `gorm:"size:512;not null"                                                              json:"name"`
	Path        string `gorm:"size:1024;not null"                                                             json:"path"`
	URL         string `gorm:"size:2048;not null"                                                             json:"url"`
	ContentType string `gorm:"size:255;not null"                                                              json:"contentType"`
	// 精度统一为微秒，游标中的时间可与列值精确比较
	CreatedAt           time.Time  `gorm:"not null;precision:6;index:idx_files_app_created,priority:2" json:"createdAt"`
	DeleteAt            *time.Time `gorm:"precision:6;index:idx_files_app_deleted,priority:2"          json:"deleteAt"`
	DeletedAtExpiration *time.Time `gorm:"precision:6;index"                                           json:"deletedAtExpiration"`
}

func (File) TableName() string { return "files" }

// State 当前生命周期状态.
func (f *File) State() lifecycle.State {
	return lifecycle.StateOf(f.DeleteAt)
}
