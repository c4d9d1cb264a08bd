package biz

import (
	"context"
	"time"

	"github.com/SunshineAppV2/cantinhomda-sub002/internal/auth"
	"github.com/SunshineAppV2/cantinhomda-sub002/internal/constants"
	"github.com/SunshineAppV2/cantinhomda-sub002/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
)

// BillingStatus 只读状态投影（供仪表盘展示）
// 派生数据，不作为闸门判定的权威来源
type BillingStatus struct {
	TenantID         string
	Status           TenantStatus
	SubscriptionPlan SubscriptionPlan
	NextBillingDate  *time.Time
	CutoffDate       *time.Time
	GracePeriodDays  int
	LastPaymentDate  *time.Time
	TrialEndsAt      *time.Time
	Warning72hSent   bool
	Warning48hSent   bool
	Warning24hSent   bool
	Overdue          bool
}

// BillingUsecase 计费核心的请求侧业务逻辑
// 登录与写闸门检查、状态投影、历史查询、审批和显式取消
type BillingUsecase struct {
	repo        TenantBillingRepo
	historyRepo StatusHistoryRepo
	gate        *AccessGate
	clock       Clock
	log         *log.Helper
}

// NewBillingUsecase 创建计费业务用例
func NewBillingUsecase(
	repo TenantBillingRepo,
	historyRepo StatusHistoryRepo,
	gate *AccessGate,
	clock Clock,
	logger log.Logger,
) *BillingUsecase {
	return &BillingUsecase{
		repo:        repo,
		historyRepo: historyRepo,
		gate:        gate,
		clock:       clock,
		log:         log.NewHelper(logger),
	}
}

// CheckLoginAccess 登录路径闸门检查
// 没有计费记录时 fail closed（拒绝）
func (uc *BillingUsecase) CheckLoginAccess(ctx context.Context, tenantID string, role auth.Role) error {
	t, err := uc.repo.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if t == nil {
		return errors.TenantNotFound(tenantID)
	}
	return uc.gate.CheckLogin(t, role, uc.clock.Now())
}

// CheckWriteAccess 租户范围写操作的闸门检查，无角色豁免
func (uc *BillingUsecase) CheckWriteAccess(ctx context.Context, tenantID string) error {
	t, err := uc.repo.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if t == nil {
		return errors.TenantNotFound(tenantID)
	}
	return uc.gate.CheckWrite(t, uc.clock.Now())
}

// GetBillingStatus 获取租户状态投影
// 信息性读路径：附带动态重算的欠费标志，便于仪表盘提示
func (uc *BillingUsecase) GetBillingStatus(ctx context.Context, tenantID string) (*BillingStatus, error) {
	t, err := uc.repo.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errors.TenantNotFound(tenantID)
	}

	d := uc.gate.Evaluate(t, uc.clock.Now())
	return &BillingStatus{
		TenantID:         t.ID,
		Status:           t.Status,
		SubscriptionPlan: t.SubscriptionPlan,
		NextBillingDate:  t.NextBillingDate,
		CutoffDate:       t.CutoffDate(),
		GracePeriodDays:  t.GracePeriodDays,
		LastPaymentDate:  t.LastPaymentDate,
		TrialEndsAt:      t.TrialEndsAt,
		Warning72hSent:   t.Warning72hSent,
		Warning48hSent:   t.Warning48hSent,
		Warning24hSent:   t.Warning24hSent,
		Overdue:          d.Overdue,
	}, nil
}

// GetStatusHistory 获取租户状态历史（分页）
func (uc *BillingUsecase) GetStatusHistory(ctx context.Context, tenantID string, page, pageSize int) ([]*StatusHistoryEntry, int, error) {
	// 参数验证
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > constants.MaxPageSize {
		pageSize = constants.DefaultPageSize
	}

	items, total, err := uc.historyRepo.ListStatusHistory(ctx, tenantID, page, pageSize)
	if err != nil {
		uc.log.Errorf("Failed to get status history for tenant %s: %v", tenantID, err)
		return nil, 0, err
	}
	return items, total, nil
}

// ApproveTenant 审批通过：pending_approval → active，首个到期日立即生效
func (uc *BillingUsecase) ApproveTenant(ctx context.Context, tenantID, actorID string) (*Tenant, error) {
	uc.log.Infof("ApproveTenant: tenantID=%s, actorID=%s", tenantID, actorID)

	t, err := uc.repo.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errors.TenantNotFound(tenantID)
	}
	if t.Status != StatusPendingApproval {
		return nil, errors.InvalidStatusTransition("only pending tenants can be approved")
	}

	now := uc.clock.Now()
	t.Status = StatusActive
	t.NextBillingDate = &now
	t.UpdatedAt = now
	if err := uc.repo.SaveTenant(ctx, t); err != nil {
		uc.log.Errorf("Failed to save tenant %s: %v", tenantID, err)
		return nil, err
	}

	uc.appendHistory(ctx, t.ID, StatusPendingApproval, StatusActive, actorID, "tenant approved")
	return t, nil
}

// CancelTenant 显式取消：转入 canceled 终态
// canceled 是显式终态，AccessGate 对其走快速路径，不再重算欠费
func (uc *BillingUsecase) CancelTenant(ctx context.Context, tenantID, actorID, reason string) error {
	uc.log.Infof("CancelTenant: tenantID=%s, actorID=%s, reason=%s", tenantID, actorID, reason)

	t, err := uc.repo.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if t == nil {
		return errors.TenantNotFound(tenantID)
	}
	if t.Status == StatusCanceled {
		return nil // 幂等
	}

	now := uc.clock.Now()
	fromStatus := t.Status
	t.Status = StatusCanceled
	t.UpdatedAt = now
	if err := uc.repo.SaveTenant(ctx, t); err != nil {
		uc.log.Errorf("Failed to save tenant %s: %v", tenantID, err)
		return err
	}

	if reason == "" {
		reason = "subscription canceled"
	}
	uc.appendHistory(ctx, t.ID, fromStatus, StatusCanceled, actorID, reason)
	return nil
}

// appendHistory 追加状态历史，失败不影响主流程，只记录日志
func (uc *BillingUsecase) appendHistory(ctx context.Context, tenantID string, from, to TenantStatus, actor, reason string) {
	entry := &StatusHistoryEntry{
		TenantID:   tenantID,
		FromStatus: from,
		ToStatus:   to,
		ChangedBy:  actor,
		Reason:     reason,
		CreatedAt:  uc.clock.Now(),
	}
	if err := uc.historyRepo.AppendStatusHistory(ctx, entry); err != nil {
		uc.log.Errorf("Failed to append status history for tenant %s: %v", tenantID, err)
	}
}
