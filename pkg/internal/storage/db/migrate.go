package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/RadiumAg/image-saas/pkg/internal/model"
)

// Migration 一次带版本号的结构变更.
type Migration struct {
	Version     int
	Description string
	Up          func(*gorm.DB) error
	Down        func(*gorm.DB) error
}

// migrationHistory 已执行的迁移记录.
type migrationHistory struct {
	ID          uint      `gorm:"primaryKey"`
	Version     int       `gorm:"uniqueIndex;not null"`
	Description string    `gorm:"type:text"`
	AppliedAt   time.Time `gorm:"autoCreateTime"`
}

func (migrationHistory) TableName() string { return "schema_migrations" }

// MigrationStatus 迁移状态.
type MigrationStatus struct {
	Version     int
	Description string
	Applied     bool
	AppliedAt   *time.Time
}

// Migrator 执行版本化迁移.
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

// NewMigrator 使用内置迁移列表创建 Migrator.
func NewMigrator(db *gorm.DB) *Migrator {
	return &Migrator{db: db, migrations: allMigrations()}
}

// Migrate 按版本顺序执行所有未应用的迁移，返回本次执行的数量.
func (m *Migrator) Migrate(ctx context.Context) (int, error) {
	if err := m.db.WithContext(ctx).AutoMigrate(&migrationHistory{}); err != nil {
		return 0, fmt.Errorf("create migration history table: %w", err)
	}

	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	n := 0

	for _, mig := range m.migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}

		if err := m.run(ctx, mig); err != nil {
			return n, fmt.Errorf("migration %d (%s) failed: %w", mig.Version, mig.Description, err)
		}

		n++
	}

	return n, nil
}

// Rollback 回滚最后一次已应用的迁移.
func (m *Migrator) Rollback(ctx context.Context) (*Migration, error) {
	var last migrationHistory
	if err := m.db.WithContext(ctx).Order("version DESC").First(&last).Error; err != nil {
		return nil, fmt.Errorf("no migrations to rollback: %w", err)
	}

	var target *Migration

	for i := range m.migrations {
		if m.migrations[i].Version == last.Version {
			target = &m.migrations[i]
			break
		}
	}

	if target == nil {
		return nil, fmt.Errorf("migration %d not found", last.Version)
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := target.Down(tx); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}

		return tx.Delete(&last).Error
	})
	if err != nil {
		return nil, err
	}

	return target, nil
}

// Status 返回每个迁移的应用状态.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	if !m.db.WithContext(ctx).Migrator().HasTable(&migrationHistory{}) {
		out := make([]MigrationStatus, 0, len(m.migrations))
		for _, mig := range m.migrations {
			out = append(out, MigrationStatus{Version: mig.Version, Description: mig.Description})
		}

		return out, nil
	}

	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]MigrationStatus, 0, len(m.migrations))

	for _, mig := range m.migrations {
		st := MigrationStatus{Version: mig.Version, Description: mig.Description}
		if at, ok := applied[mig.Version]; ok {
			st.Applied = true
			st.AppliedAt = &at
		}

		out = append(out, st)
	}

	return out, nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	var rows []migrationHistory
	if err := m.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query migration history: %w", err)
	}

	out := make(map[int]time.Time, len(rows))
	for _, r := range rows {
		out[r.Version] = r.AppliedAt
	}

	return out, nil
}

func (m *Migrator) run(ctx context.Context, mig Migration) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mig.Up(tx); err != nil {
			return err
		}

		return tx.Create(&migrationHistory{Version: mig.Version, Description: mig.Description}).Error
	})
}

// allMigrations 按版本排列的全部迁移.
func allMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "apps and storage configurations",
			Up: func(db *gorm.DB) error {
				return db.AutoMigrate(&model.StorageConfiguration{}, &model.App{})
			},
			Down: func(db *gorm.DB) error {
				return db.Migrator().DropTable(&model.App{}, &model.StorageConfiguration{})
			},
		},
		{
			Version:     2,
			Description: "files, tags and file tag associations",
			Up: func(db *gorm.DB) error {
				return db.AutoMigrate(&model.File{}, &model.Tag{}, &model.FileTag{})
			},
			Down: func(db *gorm.DB) error {
				return db.Migrator().DropTable(&model.FileTag{}, &model.Tag{}, &model.File{})
			},
		},
	}
}
