package model

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// App 应用，文件与标签都归属于某个应用.
type App struct {
	ID          string     `gorm:"primaryKey;size:26"       json:"id"`
	OwnerID     string     `gorm:"size:255;not null;index"  json:"ownerId"`
	Name        string     `gorm:"size:100;not null"        json:"name"`
	Description string     `gorm:"type:text"                json:"description"`
	StorageID   *uint      `gorm:"index"                    json:"storageId"`
	CreatedAt   time.Time  `gorm:"not null;precision:6"     json:"createdAt"`
	DeleteAt    *time.Time `gorm:"precision:6"              json:"deleteAt,omitempty"`

	Storage *StorageConfiguration `gorm:"foreignKey:StorageID" json:"storage,omitempty"`
}

func (App) TableName() string { return "apps" }

// S3Credentials 用户自有的 S3 兼容存储参数.
type S3Credentials struct {
	Bucket          string `json:"bucket"                rule:"required"`
	Region          string `json:"region"                rule:"required"`
	AccessKeyID     string `json:"accessKeyId"           rule:"required"`
	SecretAccessKey string `json:"secretAccessKey"       rule:"required"`
	APIEndpoint     string `json:"apiEndpoint,omitempty" rule:"omitempty,url"`
}

// Value 实现 driver.Valuer，以 JSON 文本存储.
func (c S3Credentials) Value() (driver.Value, error) {
	b, err := sonic.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal storage configuration: %w", err)
	}

	return string(b), nil
}

// Scan 实现 sql.Scanner.
func (c *S3Credentials) Scan(src any) error {
	var raw []byte

	switch v := src.(type) {
	case nil:
		*c = S3Credentials{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported storage configuration type %T", src)
	}

	return sonic.Unmarshal(raw, c)
}

// StorageConfiguration 用户登记的对象存储配置.
type StorageConfiguration struct {
	ID            uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID       string        `gorm:"size:255;not null;index"  json:"ownerId"`
	Name          string        `gorm:"size:50;not null"         json:"name"`
	Configuration S3Credentials `gorm:"type:text;not null"       json:"configuration"`
	CreatedAt     time.Time     `gorm:"not null;precision:6"     json:"createdAt"`
	DeleteAt      *time.Time    `gorm:"precision:6"              json:"deleteAt,omitempty"`
}

func (StorageConfiguration) TableName() string { return "storage_configurations" }

// Redacted 返回隐藏密钥后的副本，用于响应.
func (s StorageConfiguration) Redacted() StorageConfiguration {
	if s.Configuration.SecretAccessKey != "" {
		s.Configuration.SecretAccessKey = "******"
	}

	return s
}
