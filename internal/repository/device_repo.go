package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"FingerprintSync/internal/model"

	"gorm.io/gorm"
)

// DeviceRegistry 设备注册表仓储接口（设备记录 + 只追加的访问日志）
type DeviceRegistry interface {
	// FindByCoreID 按 core_id 精确查找设备，未命中返回 (nil, nil)
	FindByCoreID(ctx context.Context, coreID string) (*model.DeviceFingerprint, error)
	// ListAll 全表扫描（模糊匹配用），按自增ID升序保证迭代顺序稳定
	ListAll(ctx context.Context) ([]*model.DeviceFingerprint, error)
	// TouchVisit 命中已有设备后刷新 last_seen 并把 visit_count +1
	TouchVisit(ctx context.Context, deviceID string) error
	// UpsertNewDevice 注册新设备；device_id 唯一键冲突时转为更新而非报错
	UpsertNewDevice(ctx context.Context, device *model.DeviceFingerprint) (string, error)
	// RecordVisit 追加一条访问记录
	RecordVisit(ctx context.Context, visit *model.DeviceVisit) error
	// DeleteByID 删除指定设备记录（不级联访问日志）
	DeleteByID(ctx context.Context, deviceID string) (bool, error)
	// DeleteAll 清空设备注册表
	DeleteAll(ctx context.Context) (int64, error)
}

type deviceRepository struct {
	db *gorm.DB
}

// NewDeviceRegistry 创建设备注册表仓储
func NewDeviceRegistry(db *gorm.DB) DeviceRegistry {
	return &deviceRepository{db: db}
}

func (r *deviceRepository) FindByCoreID(ctx context.Context, coreID string) (*model.DeviceFingerprint, error) {
	var device model.DeviceFingerprint
	err := r.db.WithContext(ctx).Where("core_id = ?", coreID).First(&device).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询设备失败: %w", err)
	}
	return &device, nil
}

func (r *deviceRepository) ListAll(ctx context.Context) ([]*model.DeviceFingerprint, error) {
	var devices []*model.DeviceFingerprint
	// 按自增ID升序：模糊匹配平分时保留先注册的候选，保证匹配可复现
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&devices).Error; err != nil {
		return nil, fmt.Errorf("加载设备列表失败: %w", err)
	}
	return devices, nil
}

func (r *deviceRepository) TouchVisit(ctx context.Context, deviceID string) error {
	err := r.db.WithContext(ctx).Model(&model.DeviceFingerprint{}).
		Where("device_id = ?", deviceID).
		Updates(map[string]interface{}{
			"last_seen":   time.Now(),
			"visit_count": gorm.Expr("visit_count + 1"),
		}).Error
	if err != nil {
		return fmt.Errorf("更新设备访问信息失败: %w", err)
	}
	return nil
}

func (r *deviceRepository) UpsertNewDevice(ctx context.Context, device *model.DeviceFingerprint) (string, error) {
	if err := r.db.WithContext(ctx).Create(device).Error; err != nil {
		if isDuplicateKey(err) {
			// 并发首访或重复注册：设备已存在，转为更新
			if err := r.db.WithContext(ctx).Model(&model.DeviceFingerprint{}).
				Where("device_id = ?", device.DeviceID).
				Updates(map[string]interface{}{
					"extended_id": device.ExtendedID,
					"last_seen":   time.Now(),
					"visit_count": gorm.Expr("visit_count + 1"),
				}).Error; err != nil {
				return "", fmt.Errorf("更新已存在设备失败: %w", err)
			}
			return device.DeviceID, nil
		}
		return "", fmt.Errorf("保存设备指纹失败: %w", err)
	}
	return device.DeviceID, nil
}

func (r *deviceRepository) RecordVisit(ctx context.Context, visit *model.DeviceVisit) error {
	if err := r.db.WithContext(ctx).Create(visit).Error; err != nil {
		return fmt.Errorf("记录设备访问失败: %w", err)
	}
	return nil
}

func (r *deviceRepository) DeleteByID(ctx context.Context, deviceID string) (bool, error) {
	result := r.db.WithContext(ctx).Where("device_id = ?", deviceID).Delete(&model.DeviceFingerprint{})
	if result.Error != nil {
		return false, fmt.Errorf("删除设备失败: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *deviceRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("1 = 1").Delete(&model.DeviceFingerprint{})
	if result.Error != nil {
		return 0, fmt.Errorf("清空设备表失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// isDuplicateKey 识别唯一键冲突（Postgres 23505）
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key")
}
