package config

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ModelRecord 是 model_configs 表中的一行
type ModelRecord struct {
	ID          uint      `gorm:"primaryKey"`
	ModelKey    string    `gorm:"size:128;uniqueIndex;not null"`
	Name        string    `gorm:"size:128;not null"`
	Provider    string    `gorm:"size:64;not null;index"`
	Description string    `gorm:"size:512"`
	Params      string    `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName 实现 gorm 的 Tabler
func (ModelRecord) TableName() string {
	return "model_configs"
}

// DBSource 从数据库加载模型定义
type DBSource struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewDBSource 创建数据库模型源
func NewDBSource(db *gorm.DB, logger *zap.Logger) *DBSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DBSource{
		db:     db,
		logger: logger.With(zap.String("component", "model_db_source")),
	}
}

// AutoMigrate 创建或更新 model_configs 表
func (s *DBSource) AutoMigrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&ModelRecord{}); err != nil {
		return fmt.Errorf("failed to migrate model_configs: %w", err)
	}
	return nil
}

// Load 读取全部模型定义
func (s *DBSource) Load(ctx context.Context) (map[string]*ModelInfo, error) {
	var records []ModelRecord
	if err := s.db.WithContext(ctx).Order("model_key").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query model_configs: %w", err)
	}

	models := make(map[string]*ModelInfo, len(records))
	for _, r := range records {
		params := map[string]any{}
		if r.Params != "" {
			if err := json.Unmarshal([]byte(r.Params), &params); err != nil {
				return nil, fmt.Errorf("model %q: invalid params json: %w", r.ModelKey, err)
			}
		}
		models[r.ModelKey] = NewModelInfo(r.Name, r.Provider, r.Description, params)
	}

	s.logger.Info("models loaded from database", zap.Int("count", len(models)))
	return models, nil
}

// Save 按 modelKey 插入或更新一条模型定义
func (s *DBSource) Save(ctx context.Context, key string, info *ModelInfo) error {
	raw, err := json.Marshal(info.RawParams())
	if err != nil {
		return fmt.Errorf("model %q: failed to encode params: %w", key, err)
	}

	record := ModelRecord{
		ModelKey:    key,
		Name:        info.Name,
		Provider:    info.Provider,
		Description: info.Description,
		Params:      string(raw),
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "model_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "provider", "description", "params", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("model %q: failed to save: %w", key, err)
	}
	return nil
}
