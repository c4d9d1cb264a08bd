package data

import (
	"context"

	"github.com/SunshineAppV2/cantinhomda-sub002/internal/biz"
	"github.com/SunshineAppV2/cantinhomda-sub002/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
)

// statusHistoryRepo 状态历史仓库实现
type statusHistoryRepo struct {
	data *Data
	log  *log.Helper
}

// NewStatusHistoryRepo 创建状态历史仓库
func NewStatusHistoryRepo(data *Data, logger log.Logger) biz.StatusHistoryRepo {
	return &statusHistoryRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// AppendStatusHistory 追加状态历史记录（仅追加，从不更新）
func (r *statusHistoryRepo) AppendStatusHistory(ctx context.Context, entry *biz.StatusHistoryEntry) error {
	m := &model.StatusHistory{
		TenantID:   entry.TenantID,
		FromStatus: string(entry.FromStatus),
		ToStatus:   string(entry.ToStatus),
		ChangedBy:  entry.ChangedBy,
		Reason:     entry.Reason,
		CreatedAt:  entry.CreatedAt,
	}
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		r.log.Errorf("Failed to append status history for tenant %s: %v", entry.TenantID, err)
		return err
	}
	return nil
}

// ListStatusHistory 获取租户状态历史（分页，新的在前）
func (r *statusHistoryRepo) ListStatusHistory(ctx context.Context, tenantID string, page, pageSize int) ([]*biz.StatusHistoryEntry, int, error) {
	var models []model.StatusHistory
	var total int64

	// 获取总数
	if err := r.data.DB(ctx).Model(&model.StatusHistory{}).Where("tenant_id = ?", tenantID).Count(&total).Error; err != nil {
		r.log.Errorf("Failed to count status history for tenant %s: %v", tenantID, err)
		return nil, 0, err
	}

	// 分页查询
	offset := (page - 1) * pageSize
	if err := r.data.DB(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(pageSize).
		Offset(offset).
		Find(&models).Error; err != nil {
		r.log.Errorf("Failed to get status history for tenant %s: %v", tenantID, err)
		return nil, 0, err
	}

	// 转换为业务对象
	items := make([]*biz.StatusHistoryEntry, len(models))
	for i, m := range models {
		items[i] = &biz.StatusHistoryEntry{
			ID:         m.StatusHistoryID,
			TenantID:   m.TenantID,
			FromStatus: biz.TenantStatus(m.FromStatus),
			ToStatus:   biz.TenantStatus(m.ToStatus),
			ChangedBy:  m.ChangedBy,
			Reason:     m.Reason,
			CreatedAt:  m.CreatedAt,
		}
	}

	return items, int(total), nil
}
