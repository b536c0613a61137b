package repository

import (
	"context"
	"errors"
	"fmt"

	"FingerprintSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FingerprintStore 指纹文档仓储接口。主键为浏览器指纹ID，
// 同一浏览器重复提交整行覆盖（服务端观测字段与时间戳一并刷新）。
type FingerprintStore interface {
	Put(ctx context.Context, fp *model.Fingerprint) error
	// Get 未命中返回 (nil, nil)
	Get(ctx context.Context, id string) (*model.Fingerprint, error)
	// List 按创建时间倒序返回最近 limit 条
	List(ctx context.Context, limit int) ([]*model.Fingerprint, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type fingerprintRepository struct {
	db *gorm.DB
}

// NewFingerprintStore 创建指纹文档仓储
func NewFingerprintStore(db *gorm.DB) FingerprintStore {
	return &fingerprintRepository{db: db}
}

func (r *fingerprintRepository) Put(ctx context.Context, fp *model.Fingerprint) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(fp).Error
	if err != nil {
		return fmt.Errorf("保存指纹失败: %w", err)
	}
	return nil
}

func (r *fingerprintRepository) Get(ctx context.Context, id string) (*model.Fingerprint, error) {
	var fp model.Fingerprint
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&fp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询指纹失败: %w", err)
	}
	return &fp, nil
}

func (r *fingerprintRepository) List(ctx context.Context, limit int) ([]*model.Fingerprint, error) {
	var fps []*model.Fingerprint
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&fps).Error
	if err != nil {
		return nil, fmt.Errorf("查询指纹列表失败: %w", err)
	}
	return fps, nil
}

func (r *fingerprintRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Fingerprint{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("统计指纹数量失败: %w", err)
	}
	return count, nil
}

func (r *fingerprintRepository) Delete(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Fingerprint{})
	if result.Error != nil {
		return false, fmt.Errorf("删除指纹失败: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *fingerprintRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("1 = 1").Delete(&model.Fingerprint{})
	if result.Error != nil {
		return 0, fmt.Errorf("清空指纹表失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}
